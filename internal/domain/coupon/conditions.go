package coupon

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/customer"
)

// ConditionResult is the outcome of evaluating a coupon's usage conditions
// against a cart. FailedConditions carries human-readable messages for
// staff; MissingItems carries machine-readable tags a caller can use to
// suggest what to add to the cart to qualify.
type ConditionResult struct {
	Passed           bool
	FailedConditions []string
	MissingItems     []string
}

// condition is one evaluated sub-condition. New kinds plug in here without
// touching the AND/OR combinator below.
type condition struct {
	met         bool
	description string
	missingTag  string
}

// EvaluateConditions checks every configured condition independently, then
// combines them with the coupon's ConditionLogic. A coupon with zero
// configured conditions passes unconditionally.
func EvaluateConditions(c *Coupon, items []cart.Item, subtotal decimal.Decimal, cust *customer.Customer) ConditionResult {
	conditions := collectConditions(c, items, subtotal, cust)
	if len(conditions) == 0 {
		return ConditionResult{Passed: true}
	}

	result := ConditionResult{}
	metCount := 0
	for _, cond := range conditions {
		if cond.met {
			metCount++
			continue
		}
		result.FailedConditions = append(result.FailedConditions, cond.description)
		if cond.missingTag != "" {
			result.MissingItems = append(result.MissingItems, cond.missingTag)
		}
	}

	if c.ConditionLogic == LogicOr {
		result.Passed = metCount > 0
	} else {
		result.Passed = metCount == len(conditions)
	}
	return result
}

func collectConditions(c *Coupon, items []cart.Item, subtotal decimal.Decimal, cust *customer.Customer) []condition {
	var conds []condition

	for _, id := range c.RequiresProductIDs {
		conds = append(conds, condition{
			met:         hasItemWithID(items, cart.ItemProduct, id),
			description: fmt.Sprintf("requires product %s in cart", id),
			missingTag:  "product:" + id,
		})
	}
	for _, id := range c.RequiresServiceIDs {
		conds = append(conds, condition{
			met:         hasItemWithID(items, cart.ItemService, id),
			description: fmt.Sprintf("requires service %s in cart", id),
			missingTag:  "service:" + id,
		})
	}
	for _, id := range c.RequiresProductCategoryIDs {
		conds = append(conds, condition{
			met:         hasItemInCategory(items, cart.ItemProduct, id),
			description: fmt.Sprintf("requires a product from category %s", id),
			missingTag:  "product-category:" + id,
		})
	}
	for _, id := range c.RequiresServiceCategoryIDs {
		conds = append(conds, condition{
			met:         hasItemInCategory(items, cart.ItemService, id),
			description: fmt.Sprintf("requires a service from category %s", id),
			missingTag:  "service-category:" + id,
		})
	}

	if c.MinPurchase.IsPositive() {
		conds = append(conds, condition{
			met:         subtotal.GreaterThanOrEqual(c.MinPurchase),
			description: fmt.Sprintf("requires minimum purchase of %s", c.MinPurchase.StringFixed(2)),
		})
	}

	if c.MaxCustomerVisits > 0 {
		// Absent customer means the visit ceiling cannot be verified, so
		// the condition is not met.
		met := cust != nil && cust.VisitCount <= c.MaxCustomerVisits
		conds = append(conds, condition{
			met:         met,
			description: fmt.Sprintf("limited to customers with at most %d visits", c.MaxCustomerVisits),
		})
	}

	return conds
}

func hasItemWithID(items []cart.Item, itemType cart.ItemType, id string) bool {
	for _, item := range items {
		if item.Type == itemType && item.ID() == id {
			return true
		}
	}
	return false
}

func hasItemInCategory(items []cart.Item, itemType cart.ItemType, categoryID string) bool {
	for _, item := range items {
		if item.Type == itemType && item.CategoryID == categoryID {
			return true
		}
	}
	return false
}
