package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/fjod/butchershop/internal/domain"
)

const (
	// MaxSearchResults caps the suggestion dropdown.
	MaxSearchResults = 5
	// MinQueryLength is counted in characters, not bytes.
	MinQueryLength   = 2
)

// Search returns up to MaxSearchResults products whose name contains query, case-insensitively,
// in catalog order. Queries shorter than two characters return nothing.
func Search(products []domain.Product, query string) []domain.Product {
	if !Searchable(query) {
		return []domain.Product{}
	}
	needle := strings.ToLower(query)

	out := make([]domain.Product, 0, MaxSearchResults)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}

func Searchable(query string) bool {
	return utf8.RuneCountInString(query) >= MinQueryLength
}
