// Package catalog derives the visible product list from the full catalog: category filter,
// price sort and search-as-you-type.
package catalog

import (
	"slices"

	"github.com/fjod/butchershop/internal/domain"
)

// CategoryAll disables the category filter.
const CategoryAll = "All"

type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

var categories = []string{
	CategoryAll,
	"Chicken",
	"Mutton",
	"Seafood",
	"Ready to Cook",
	"Pork",
	"Eggs",
}

// Categories returns the category tabs, All first.
func Categories() []string {
	return slices.Clone(categories)
}

// ParseSortKey maps unknown or empty keys to SortDefault.
func ParseSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortDefault
	}
}

// View filters products by category and orders them by key. The input slice is never mutated
// and products with equal prices keep their relative input order.
func View(products []domain.Product, category string, key SortKey) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if category == "" || category == CategoryAll || p.Category == category {
			out = append(out, p)
		}
	}

	switch key {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmpPrice(a.Price, b.Price)
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmpPrice(b.Price, a.Price)
		})
	}
	return out
}

func cmpPrice(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
