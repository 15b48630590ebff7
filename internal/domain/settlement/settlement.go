// Package settlement commits a checkout's side effects as one atomic unit
// of work: transaction header, line items, payments, inventory, loyalty,
// and coupon/campaign attribution.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/campaign"
	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/catalog"
	"github.com/lumapos/checkout/internal/domain/customer"
)

// Sentinel errors for settlement validation.
var (
	ErrEmptyItems = errors.New("items required")
	ErrNoPayments = errors.New("at least one payment required")
	ErrBadTotals  = errors.New("totals must not be negative")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ItemName string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for %s", e.ItemName)
}

// Transaction is the immutable header row created once per settlement.
type Transaction struct {
	ID                    string
	CustomerID            string
	Status                string
	Subtotal              decimal.Decimal
	TaxAmount             decimal.Decimal
	TipAmount             decimal.Decimal
	DiscountAmount        decimal.Decimal
	TotalAmount           decimal.Decimal
	PaymentMethod         string
	CouponCode            string
	LoyaltyPointsEarned   int64
	LoyaltyPointsRedeemed int64
	LoyaltyDiscount       decimal.Decimal
	CreatedAt             time.Time
}

// TransactionItem is one immutable line item row.
type TransactionItem struct {
	ID            string
	TransactionID string
	ItemType      cart.ItemType
	ProductID     string
	ServiceID     string
	CategoryID    string
	Name          string
	UnitPrice     decimal.Decimal
	Quantity      int
	Taxable       bool
	LineTotal     decimal.Decimal
}

// Payment is one tender row. NetTip is the tip credited to staff payout
// after the card-processing fee is removed.
type Payment struct {
	ID            string
	TransactionID string
	Method        string
	Amount        decimal.Decimal
	TipAmount     decimal.Decimal
	NetTip        decimal.Decimal
}

// PaymentInput is one tender supplied by the caller.
type PaymentInput struct {
	Method    string
	Amount    decimal.Decimal
	TipAmount decimal.Decimal
}

// Draft carries the caller-validated totals for the transaction header.
// The pipeline echoes them; it does not recompute pricing.
type Draft struct {
	CustomerID      string
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	TipAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
	PaymentMethod   string
	LoyaltyDiscount decimal.Decimal
}

// TransactionStore persists the transaction header and its child rows.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *Transaction) error
	CreateItems(ctx context.Context, items []TransactionItem) error
	CreatePayments(ctx context.Context, payments []Payment) error
	// SetLoyaltyPoints records earned/redeemed point totals back onto the
	// header after the loyalty step runs.
	SetLoyaltyPoints(ctx context.Context, transactionID string, earned, redeemed int64) error
}

// CouponStore consumes coupon usage during attribution.
type CouponStore interface {
	// ConsumeUse atomically increments the coupon's use count, failing
	// with coupon.ErrUsageLimitReached when the ceiling is already hit.
	// Check-and-increment is one statement, never a read-then-write pair.
	ConsumeUse(ctx context.Context, code string) error
}

// Stores bundles the transaction-scoped write contracts the pipeline
// mutates. Every store operates inside the same unit of work.
type Stores interface {
	Transactions() TransactionStore
	Inventory() catalog.InventoryStore
	Customers() customer.Store
	Coupons() CouponStore
	Campaigns() campaign.Store
}

// UnitOfWork runs fn inside one atomic transaction. Any error from fn
// rolls back every mutation made through the supplied Stores.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
