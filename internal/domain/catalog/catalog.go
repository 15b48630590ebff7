// Package catalog defines the product/service read contracts and the
// atomic bounded stock decrement the settlement pipeline relies on.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested catalog entry does not exist.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrInsufficientStock is returned when a bounded stock decrement would
	// take quantity on hand below zero. The conflict is detected by the
	// conditional update itself, never by a separate read.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a retail catalog item with tracked inventory.
type Product struct {
	ID              string
	SKU             string
	Name            string
	CategoryID      string
	Price           decimal.Decimal
	Taxable         bool
	LoyaltyEligible bool
	QuantityOnHand  int
}

// Service is a bookable catalog item (no inventory).
type Service struct {
	ID              string
	Name            string
	CategoryID      string
	Price           decimal.Decimal
	DurationMinutes int
	Taxable         bool
}

// Repository provides catalog reads.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]Product, error)
	ListServices(ctx context.Context) ([]Service, error)
	GetService(ctx context.Context, id string) (*Service, error)
}

// InventoryStore is the settlement-side stock contract.
type InventoryStore interface {
	// DecrementStock subtracts qty from the product's quantity on hand as
	// a single conditional update. Returns ErrInsufficientStock when the
	// decrement would cross zero; the row is left untouched in that case.
	DecrementStock(ctx context.Context, productID string, qty int) error
}
