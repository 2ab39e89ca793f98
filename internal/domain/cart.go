package domain

// CartItem is a denormalized product snapshot. There is no quantity: adding the same product
// twice yields two entries with the same ID.
type CartItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	Cut         string `json:"cut"`
	Description string `json:"description,omitempty"`
}

// SumPrices totals the price of every entry, 0 for an empty slice.
func SumPrices(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total
}
