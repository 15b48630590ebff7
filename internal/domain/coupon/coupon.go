package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the coupon lifecycle states.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusDisabled Status = "disabled"
)

// TagMatchMode controls how customer tag targeting combines multiple tags.
type TagMatchMode string

const (
	// MatchAny passes when the customer carries at least one listed tag.
	MatchAny TagMatchMode = "any"
	// MatchAll passes only when the customer carries every listed tag.
	MatchAll TagMatchMode = "all"
)

// ConditionLogic combines a coupon's configured usage conditions.
type ConditionLogic string

const (
	LogicAnd ConditionLogic = "and"
	LogicOr  ConditionLogic = "or"
)

// RewardScope selects the base a reward's discount is computed against.
type RewardScope string

const (
	// ScopeOrder applies the reward against the full cart subtotal.
	ScopeOrder RewardScope = "order"
	// ScopeProduct applies the reward against matching product lines.
	ScopeProduct RewardScope = "product"
	// ScopeService applies the reward against matching service lines.
	ScopeService RewardScope = "service"
)

// DiscountType enumerates the supported reward discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the applicable base,
	// optionally capped by MaxDiscount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat applies a fixed monetary discount capped at the base.
	DiscountFlat DiscountType = "flat"
	// DiscountFree removes the full applicable base.
	DiscountFree DiscountType = "free"
)

var (
	// ErrNotFound is returned when a coupon code does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrUsageLimitReached is returned by the attribution step when a
	// coupon's use count is already at its ceiling.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Reward is one discount rule attached to a coupon. A coupon may carry
// several; their contributions are summed. At most one of the four target
// fields is set; none means the reward applies to every item of its scope.
type Reward struct {
	ID                      string
	AppliesTo               RewardScope
	DiscountType            DiscountType
	DiscountValue           decimal.Decimal
	MaxDiscount             decimal.Decimal // cap for percentage rewards, zero = uncapped
	TargetProductID         string
	TargetServiceID         string
	TargetProductCategoryID string
	TargetServiceCategoryID string
}

// Coupon is the full coupon aggregate: identity, targeting, conditions,
// usage accounting, and attached rewards.
type Coupon struct {
	Code      string
	Status    Status
	AutoApply bool

	// Targeting.
	CustomerID         string
	CustomerTags       []string
	TagMatchMode       TagMatchMode
	TargetCustomerType string

	// Conditions.
	ConditionLogic             ConditionLogic
	RequiresProductIDs         []string
	RequiresServiceIDs         []string
	RequiresProductCategoryIDs []string
	RequiresServiceCategoryIDs []string
	MinPurchase                decimal.Decimal
	MaxCustomerVisits          int // 0 = no ceiling

	// Usage.
	IsSingleUse bool
	UseCount    int
	MaxUses     int // 0 = unlimited
	ExpiresAt   *time.Time

	CampaignID string

	Rewards []Reward
}

// UsesRemaining reports whether the coupon can still be redeemed.
// MaxUses of zero means unlimited; single-use coupons cap at one.
func (c *Coupon) UsesRemaining() bool {
	if c.IsSingleUse && c.UseCount >= 1 {
		return false
	}
	if c.MaxUses > 0 && c.UseCount >= c.MaxUses {
		return false
	}
	return true
}

// Repository provides lookup and attribution of coupons.
type Repository interface {
	// FindByCode looks up a coupon and its rewards by code.
	// Returns ErrNotFound when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// ListAutoApply returns active coupons flagged for automatic application.
	ListAutoApply(ctx context.Context) ([]Coupon, error)
}
