package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/coupon"
	"github.com/lumapos/checkout/internal/domain/settlement"
)

const (
	couponColumns = `code, status, auto_apply, customer_id, customer_tags, tag_match_mode,
		target_customer_type, condition_logic, requires_product_ids, requires_service_ids,
		requires_product_category_ids, requires_service_category_ids, min_purchase,
		max_customer_visits, is_single_use, use_count, max_uses, expires_at, campaign_id`

	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	listAutoApplySQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE status = 'active' AND auto_apply = TRUE ORDER BY code`

	getRewardsSQL = `SELECT id, applies_to, discount_type, discount_value, max_discount,
		target_product_id, target_service_id, target_product_category_id, target_service_category_id
		FROM coupon_rewards WHERE coupon_code = $1 ORDER BY id`

	// Check-and-increment in one statement: the ceiling (and the
	// single-use cap) is enforced by the WHERE clause, so concurrent
	// settlements cannot push use_count past max_uses.
	consumeUseSQL = `UPDATE coupons SET use_count = use_count + 1
		WHERE code = $1
		  AND (max_uses = 0 OR use_count < max_uses)
		  AND (NOT is_single_use OR use_count = 0)`
)

var (
	_ coupon.Repository      = (*CouponRepository)(nil)
	_ settlement.CouponStore = (*CouponRepository)(nil)
)

// CouponRepository implements coupon.Repository and settlement.CouponStore
// backed by PostgreSQL.
type CouponRepository struct {
	q querier
}

// NewCouponRepository returns a CouponRepository over the given querier.
func NewCouponRepository(q querier) *CouponRepository {
	return &CouponRepository{q: q}
}

// FindByCode looks up a coupon and its rewards by code (case-insensitive).
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rewards, err := r.loadRewards(ctx, c.Code)
	if err != nil {
		return nil, err
	}
	c.Rewards = rewards
	return &c, nil
}

// ListAutoApply returns active coupons flagged for automatic application,
// each with its rewards attached.
func (r *CouponRepository) ListAutoApply(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.q.Query(ctx, listAutoApplySQL)
	if err != nil {
		return nil, fmt.Errorf("listing auto-apply coupons: %w", err)
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing auto-apply coupons: %w", err)
	}

	for i := range coupons {
		rewards, err := r.loadRewards(ctx, coupons[i].Code)
		if err != nil {
			return nil, err
		}
		coupons[i].Rewards = rewards
	}
	return coupons, nil
}

// ConsumeUse atomically increments the coupon's use counter, respecting
// the max-uses ceiling and the single-use flag.
func (r *CouponRepository) ConsumeUse(ctx context.Context, code string) error {
	tag, err := r.q.Exec(ctx, consumeUseSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func (r *CouponRepository) loadRewards(ctx context.Context, code string) ([]coupon.Reward, error) {
	rows, err := r.q.Query(ctx, getRewardsSQL, code)
	if err != nil {
		return nil, fmt.Errorf("loading rewards for coupon %q: %w", code, err)
	}
	return pgx.CollectRows(rows, scanReward)
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c                  coupon.Coupon
		status             string
		customerID         *string
		tagMatchMode       string
		targetCustomerType *string
		conditionLogic     string
		minPurchase        decimal.Decimal
		expiresAt          *time.Time
		campaignID         *string
	)
	err := row.Scan(
		&c.Code, &status, &c.AutoApply, &customerID, &c.CustomerTags, &tagMatchMode,
		&targetCustomerType, &conditionLogic, &c.RequiresProductIDs, &c.RequiresServiceIDs,
		&c.RequiresProductCategoryIDs, &c.RequiresServiceCategoryIDs, &minPurchase,
		&c.MaxCustomerVisits, &c.IsSingleUse, &c.UseCount, &c.MaxUses, &expiresAt, &campaignID,
	)
	c.Status = coupon.Status(status)
	c.TagMatchMode = coupon.TagMatchMode(tagMatchMode)
	c.ConditionLogic = coupon.ConditionLogic(conditionLogic)
	c.MinPurchase = minPurchase
	c.ExpiresAt = expiresAt
	if customerID != nil {
		c.CustomerID = *customerID
	}
	if targetCustomerType != nil {
		c.TargetCustomerType = *targetCustomerType
	}
	if campaignID != nil {
		c.CampaignID = *campaignID
	}
	return c, err
}

func scanReward(row pgx.CollectableRow) (coupon.Reward, error) {
	var (
		rw            coupon.Reward
		appliesTo     string
		discountType  string
		maxDiscount   *decimal.Decimal
		targetProduct *string
		targetService *string
		targetPCat    *string
		targetSCat    *string
	)
	err := row.Scan(
		&rw.ID, &appliesTo, &discountType, &rw.DiscountValue, &maxDiscount,
		&targetProduct, &targetService, &targetPCat, &targetSCat,
	)
	rw.AppliesTo = coupon.RewardScope(appliesTo)
	rw.DiscountType = coupon.DiscountType(discountType)
	if maxDiscount != nil {
		rw.MaxDiscount = *maxDiscount
	}
	if targetProduct != nil {
		rw.TargetProductID = *targetProduct
	}
	if targetService != nil {
		rw.TargetServiceID = *targetService
	}
	if targetPCat != nil {
		rw.TargetProductCategoryID = *targetPCat
	}
	if targetSCat != nil {
		rw.TargetServiceCategoryID = *targetSCat
	}
	return rw, err
}
