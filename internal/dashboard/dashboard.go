// Package dashboard computes the admin console KPIs from the order history.
package dashboard

import (
	"cmp"
	"slices"

	"github.com/fjod/butchershop/internal/domain"
)

const topProductsLimit = 3

type ProductSales struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Units     int    `json:"units"`
	Revenue   int64  `json:"revenue"`
}

type Summary struct {
	Revenue        int64          `json:"revenue"`
	Orders         int            `json:"orders"`
	Customers      int            `json:"customers"`
	AvgOrderValue  int64          `json:"avg_order_value"`
	PopularItems   []ProductSales `json:"popular_items"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
}

// Summarize aggregates orders. The average is integer-rounded down; an empty history yields zeros.
func Summarize(orders []*domain.Order) Summary {
	s := Summary{
		PopularItems:   []ProductSales{},
		OrdersByStatus: make(map[string]int, len(domain.OrderStatuses())),
	}
	for _, st := range domain.OrderStatuses() {
		s.OrdersByStatus[st.String()] = 0
	}

	customers := make(map[string]struct{})
	sales := make(map[string]*ProductSales)
	for _, o := range orders {
		if o == nil {
			continue
		}
		s.Orders++
		s.Revenue += o.Total
		s.OrdersByStatus[o.Status.String()]++
		customers[o.UserID] = struct{}{}
		for _, it := range o.Items {
			ps, ok := sales[it.ID]
			if !ok {
				ps = &ProductSales{ProductID: it.ID, Name: it.Name}
				sales[it.ID] = ps
			}
			ps.Units++
			ps.Revenue += it.Price
		}
	}
	s.Customers = len(customers)
	if s.Orders > 0 {
		s.AvgOrderValue = s.Revenue / int64(s.Orders)
	}

	ranked := make([]ProductSales, 0, len(sales))
	for _, ps := range sales {
		ranked = append(ranked, *ps)
	}
	slices.SortFunc(ranked, func(a, b ProductSales) int {
		if c := cmp.Compare(b.Units, a.Units); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(ranked) > topProductsLimit {
		ranked = ranked[:topProductsLimit]
	}
	s.PopularItems = ranked
	return s
}
