package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/campaign"
)

const recordRedemptionSQL = `UPDATE campaigns
	SET redeemed_count = redeemed_count + 1, revenue_attributed = revenue_attributed + $2
	WHERE id = $1`

var _ campaign.Store = (*CampaignRepository)(nil)

// CampaignRepository implements campaign.Store backed by PostgreSQL.
type CampaignRepository struct {
	q querier
}

// NewCampaignRepository returns a CampaignRepository over the given querier.
func NewCampaignRepository(q querier) *CampaignRepository {
	return &CampaignRepository{q: q}
}

// RecordRedemption atomically bumps the campaign's counters. A missing
// campaign is tolerated: attribution must not block settlement when the
// campaign row was deleted by admin tooling.
func (r *CampaignRepository) RecordRedemption(ctx context.Context, id string, revenue decimal.Decimal) error {
	_, err := r.q.Exec(ctx, recordRedemptionSQL, id, revenue)
	if err != nil {
		return fmt.Errorf("recording redemption for campaign %q: %w", id, err)
	}
	return nil
}
