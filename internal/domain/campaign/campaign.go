// Package campaign tracks marketing campaign attribution counters.
package campaign

import (
	"context"

	"github.com/shopspring/decimal"
)

// Campaign accumulates redemption counts and attributed revenue for
// coupons linked to it. Incremented once per settled transaction.
type Campaign struct {
	ID                string
	Name              string
	RedeemedCount     int
	RevenueAttributed decimal.Decimal
}

// Store is the settlement-side attribution contract.
type Store interface {
	// RecordRedemption atomically increments the campaign's redeemed count
	// and adds revenue to its attributed total.
	RecordRedemption(ctx context.Context, id string, revenue decimal.Decimal) error
}
