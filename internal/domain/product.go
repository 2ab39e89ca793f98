package domain

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Cut         string `json:"cut"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

const (
	// LowStockThreshold is the stock level at or below which a product is flagged as running out.
	LowStockThreshold = 5
	// ListPriceMarkup is added to the selling price to show the struck-through list price.
	ListPriceMarkup   = 50
)

func (p Product) SoldOut() bool {
	return p.Stock == 0
}

func (p Product) LowStock() bool {
	return p.Stock > 0 && p.Stock <= LowStockThreshold
}

func (p Product) OriginalPrice() int64 {
	return p.Price + ListPriceMarkup
}

// DiscountPercent is the markup as a share of the list price, rounded half up.
func (p Product) DiscountPercent() int {
	list := p.OriginalPrice()
	if list <= 0 {
		return 0
	}
	return int((2*100*ListPriceMarkup + list) / (2 * list))
}

// Snapshot copies the fields a cart entry keeps of the product at the moment it is added.
func (p Product) Snapshot() CartItem {
	return CartItem{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Cut:         p.Cut,
		Description: p.Description,
	}
}
