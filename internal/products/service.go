// Package products serves the catalog and the admin product editor. Every admin mutation
// publishes a products.changed event.
package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/catalog"
	"github.com/fjod/butchershop/internal/domain"
	"github.com/fjod/butchershop/internal/events"
	"github.com/fjod/butchershop/internal/products/repository"
)

var ErrInvalidProduct = errors.New("invalid product")

type Service struct {
	repo      repository.RepoInterface
	publisher events.Publisher
	log       *zap.Logger
}

func NewService(repo repository.RepoInterface, publisher events.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, publisher: publisher, log: log}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) ListByName(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProductsByName(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// View applies the storefront category filter and sort to the current catalog.
func (s *Service) View(ctx context.Context, category string, sortKey catalog.SortKey) ([]domain.Product, error) {
	all, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.View(all, category, sortKey), nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if !catalog.Searchable(query) {
		return []domain.Product{}, nil
	}
	all, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Search(all, query), nil
}

func (s *Service) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validate(&p); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	if err := s.repo.CreateProduct(ctx, &p); err != nil {
		return nil, err
	}
	s.publishChange(ctx, p.ID, "created")
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id string, p domain.Product) (*domain.Product, error) {
	p.ID = id
	if err := validate(&p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, &p); err != nil {
		return nil, err
	}
	s.publishChange(ctx, p.ID, "updated")
	return &p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.publishChange(ctx, id, "deleted")
	return nil
}

// publishChange never fails the mutation; live lists catch up on the next change.
func (s *Service) publishChange(ctx context.Context, id, action string) {
	ev, err := events.New(events.ProductsChanged, id, map[string]string{"id": id, "action": action})
	if err != nil {
		s.log.Warn("failed to build product event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish product event", zap.String("product_id", id), zap.Error(err))
	}
}

func validate(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case p.Price < 0:
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	case !knownCategory(p.Category):
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.Category)
	}
	return nil
}

func knownCategory(c string) bool {
	for _, known := range catalog.Categories() {
		if known != catalog.CategoryAll && known == c {
			return true
		}
	}
	return false
}
