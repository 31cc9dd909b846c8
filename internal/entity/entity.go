// Package entity provides the typed view of the catalog/order domain. The
// resolver hydrates dynamic records; this package decodes them into structs
// with native types (decimal money, time.Time timestamps) and explicit
// loaded/unloaded relation markers.
package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusCompleted OrderStatus = "COMPLETED"
)

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled, StatusCompleted:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// Department groups users under a budget.
type Department struct {
	ID          int64
	Name        string
	Description *string
	Budget      *decimal.Decimal

	Users List[User]
}

// User places orders and optionally belongs to a department.
type User struct {
	ID           int64
	Name         string
	Email        string
	CreatedAt    time.Time
	DepartmentID *int64

	Department Ref[Department]
	Orders     List[Order]
}

// Category groups products.
type Category struct {
	ID          int64
	Name        string
	Description *string

	Products List[Product]
}

// Product is a purchasable catalog item. Its image is a binary payload served
// by the blob gateway, never part of the struct.
type Product struct {
	ID            int64
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int64
	CategoryID    int64

	Category Ref[Category]
	Items    List[OrderItem]
}

// Order is one purchase with its line items. Its invoice document is a binary
// payload served by the blob gateway.
type Order struct {
	ID          int64
	OrderNumber string
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Status      OrderStatus
	UserID      int64

	User  Ref[User]
	Items List[OrderItem]
}

// OrderItem is one line of an order. TotalPrice is always quantity times unit
// price; mutate through SetQuantity and SetUnitPrice to keep it that way.
type OrderItem struct {
	ID         int64
	Quantity   int64
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
	OrderID    int64
	ProductID  int64

	Order   Ref[Order]
	Product Ref[Product]
}

// SetQuantity updates the quantity and recomputes the line total.
func (i *OrderItem) SetQuantity(quantity int64) {
	i.Quantity = quantity
	i.recompute()
}

// SetUnitPrice updates the unit price and recomputes the line total.
func (i *OrderItem) SetUnitPrice(price decimal.Decimal) {
	i.UnitPrice = price
	i.recompute()
}

func (i *OrderItem) recompute() {
	i.TotalPrice = i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}
