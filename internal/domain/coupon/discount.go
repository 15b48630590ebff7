package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount computes the total monetary discount for the given
// rewards against the cart. Each reward's contribution is rounded to cents
// before summing, then the sum is clamped to the subtotal. That ordering
// (round per reward, clamp the sum) is load-bearing: changing it shifts
// totals by a cent when a coupon carries multiple rewards.
func CalculateDiscount(rewards []Reward, items []cart.Item, subtotal decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, reward := range rewards {
		total = total.Add(rewardAmount(reward, items, subtotal).Round(2))
	}

	if total.GreaterThan(subtotal) {
		return subtotal.Round(2)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// rewardAmount computes a single reward's contribution before rounding.
func rewardAmount(reward Reward, items []cart.Item, subtotal decimal.Decimal) decimal.Decimal {
	base := applicableBase(reward, items, subtotal)
	if !base.IsPositive() {
		return decimal.Zero
	}

	switch reward.DiscountType {
	case DiscountPercentage:
		amount := base.Mul(reward.DiscountValue).Div(hundred)
		if reward.MaxDiscount.IsPositive() && amount.GreaterThan(reward.MaxDiscount) {
			amount = reward.MaxDiscount
		}
		return amount
	case DiscountFlat:
		return decimal.Min(reward.DiscountValue, base)
	case DiscountFree:
		return base
	default:
		return decimal.Zero
	}
}

// applicableBase returns the amount the reward's rule is computed against:
// the full subtotal for order scope, otherwise the summed line totals of
// matching items. A targeted id narrows to that item; a targeted category
// narrows to that category; neither matches every item of the scope's type.
func applicableBase(reward Reward, items []cart.Item, subtotal decimal.Decimal) decimal.Decimal {
	if reward.AppliesTo == ScopeOrder {
		return subtotal
	}

	itemType := cart.ItemProduct
	targetID := reward.TargetProductID
	targetCategory := reward.TargetProductCategoryID
	if reward.AppliesTo == ScopeService {
		itemType = cart.ItemService
		targetID = reward.TargetServiceID
		targetCategory = reward.TargetServiceCategoryID
	}

	base := decimal.Zero
	for _, item := range items {
		if item.Type != itemType {
			continue
		}
		switch {
		case targetID != "":
			if item.ID() != targetID {
				continue
			}
		case targetCategory != "":
			if item.CategoryID != targetCategory {
				continue
			}
		}
		base = base.Add(item.LineTotal())
	}
	return base
}
