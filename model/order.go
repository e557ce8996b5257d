package model

import "github.com/shopspring/decimal"

// OrderStatus is the server-owned lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Known reports whether s is one of the statuses the storefront renders.
func (s OrderStatus) Known() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	ImageURL   string          `json:"imageUrl,omitempty"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Order is an immutable snapshot of a cart taken at checkout.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalItems      int             `json:"totalItems"`
	ShippingAddress string          `json:"shippingAddress"`
	Notes           string          `json:"notes,omitempty"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       Timestamp       `json:"createdAt"`
	UpdatedAt       Timestamp       `json:"updatedAt"`
}

// CreateOrderInput is the body of POST /orders.
type CreateOrderInput struct {
	ShippingAddress string `json:"shippingAddress"`
	Notes           string `json:"notes,omitempty"`
}
