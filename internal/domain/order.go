package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusProcessing     OrderStatus = "Processing"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusCompleted      OrderStatus = "Completed"
)

var orderStatuses = []OrderStatus{
	OrderStatusProcessing,
	OrderStatusOutForDelivery,
	OrderStatusCompleted,
}

func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is written once per successful checkout; afterwards only Status changes.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	UserName       string      `json:"userName"`
	UserAddress    string      `json:"userAddress"`
	Items          []CartItem  `json:"items"`
	Total          int64       `json:"total"`
	Status         OrderStatus `json:"status"`
	IdempotencyKey string      `json:"-"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}
