package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/butchershop/internal/domain"
	db "github.com/fjod/butchershop/internal/products/repository"
)

const seededProducts = 10

func setupTestDB(t *testing.T) *db.Repository {
	repo, err := db.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}

	if err := repo.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestListProducts_SeededCatalog(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, seededProducts)
	assert.Equal(t, "chicken-curry-cut", products[0].ID)
	assert.Equal(t, int64(249), products[0].Price)
}

func TestListProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListProducts(ctx)
	assert.Error(t, err)
}

func TestListProductsByName(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProductsByName(context.Background())
	require.NoError(t, err)
	require.Len(t, products, seededProducts)
	for i := 1; i < len(products); i++ {
		assert.LessOrEqual(t, products[i-1].Name, products[i].Name)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.RunMigrations())
}

func TestGetProduct(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.GetProduct(context.Background(), "mutton-mince")
	require.NoError(t, err)
	assert.Equal(t, "Mutton Mince", p.Name)
	assert.Equal(t, "Mutton", p.Category)
	assert.Equal(t, "Mince", p.Cut)

	_, err = repo.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrProductNotFound)
}

func TestCreateUpdateDeleteProduct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	p := &domain.Product{
		ID:       "duck-curry-cut",
		Name:     "Duck Curry Cut",
		Price:    599,
		Stock:    3,
		Category: "Ready to Cook",
		Cut:      "Curry Cut",
	}
	require.NoError(t, repo.CreateProduct(ctx, p))

	got, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	p.Price = 649
	p.Stock = 0
	require.NoError(t, repo.UpdateProduct(ctx, p))
	got, err = repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(649), got.Price)
	assert.True(t, got.SoldOut())

	require.NoError(t, repo.DeleteProduct(ctx, p.ID))
	_, err = repo.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, db.ErrProductNotFound)
}

func TestUpdateDelete_Missing(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	err := repo.UpdateProduct(ctx, &domain.Product{ID: "missing", Name: "x", Category: "Eggs"})
	assert.ErrorIs(t, err, db.ErrProductNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, "missing"), db.ErrProductNotFound)
}

func TestCreateProduct_DuplicateID(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.CreateProduct(context.Background(), &domain.Product{ID: "farm-eggs", Name: "Eggs", Category: "Eggs"})
	assert.Error(t, err)
}
