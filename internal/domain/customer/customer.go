package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is the loyalty-bearing customer aggregate. LoyaltyPointsBalance
// is a cached projection of the ledger; it must always equal the latest
// ledger snapshot for the customer and never goes negative.
type Customer struct {
	ID                   string
	Name                 string
	Tags                 []string
	CustomerType         string // empty = unclassified
	VisitCount           int
	LifetimeSpend        decimal.Decimal
	LoyaltyPointsBalance int64
}

// HasTag reports whether the customer carries the given tag.
func (c *Customer) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LedgerAction enumerates the loyalty ledger row kinds.
type LedgerAction string

const (
	ActionEarned   LedgerAction = "earned"
	ActionRedeemed LedgerAction = "redeemed"
	ActionAdjusted LedgerAction = "adjusted"
	ActionExpired  LedgerAction = "expired"
)

// LedgerEntry is one append-only loyalty ledger row. PointsBalance is the
// balance immediately after PointsChange was applied; reconciliation
// depends on that snapshot matching the cached customer balance.
type LedgerEntry struct {
	ID            string
	CustomerID    string
	TransactionID string
	Action        LedgerAction
	PointsChange  int64
	PointsBalance int64
	Description   string
	CreatedAt     time.Time
}

// Repository provides customer reads outside of settlement.
type Repository interface {
	// GetByID returns a customer or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Customer, error)
	// ListLedger returns the customer's ledger rows, newest first.
	ListLedger(ctx context.Context, customerID string) ([]LedgerEntry, error)
}

// Store is the settlement-side write contract. All mutations are bounded
// single-statement operations so concurrent settlements serialize at the
// data store without lost updates.
type Store interface {
	// GetByID returns a customer or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Customer, error)
	// RecordVisit increments visit count and adds spend to lifetime spend.
	RecordVisit(ctx context.Context, id string, spend decimal.Decimal) error
	// RedeemPoints subtracts up to points from the balance, clamping at
	// zero. It returns the points actually deducted and the new balance.
	RedeemPoints(ctx context.Context, id string, points int64) (redeemed, balance int64, err error)
	// EarnPoints adds points to the balance and returns the new balance.
	EarnPoints(ctx context.Context, id string, points int64) (balance int64, err error)
	// AppendLedger inserts one ledger row.
	AppendLedger(ctx context.Context, entry *LedgerEntry) error
}
