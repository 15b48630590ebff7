package coupon

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/customer"
)

// Evaluation is the structured outcome of evaluating a coupon against a
// cart. Ineligibility is business data, not an error: callers show the
// failed conditions and let checkout proceed without the coupon.
type Evaluation struct {
	Eligible         bool
	DiscountAmount   decimal.Decimal
	Warnings         []string
	FailedConditions []string
	MissingItems     []string
}

// Evaluator composes targeting, condition, and discount evaluation for one
// coupon. All three stages are pure over the supplied data; the Evaluator
// only adds a clock for expiry checks.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator returns an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// Evaluate runs the full eligibility chain: status and expiry, usage
// ceiling, targeting, conditions, then discount calculation. It never
// returns an error; every ineligible outcome is reported in the result.
func (e *Evaluator) Evaluate(c *Coupon, cust *customer.Customer, items []cart.Item, mode EnforcementMode) Evaluation {
	subtotal := cart.Subtotal(items)

	if c.Status != StatusActive {
		return ineligible("coupon is not active")
	}
	if c.ExpiresAt != nil && e.now().After(*c.ExpiresAt) {
		return ineligible("coupon has expired")
	}
	if !c.UsesRemaining() {
		return ineligible("coupon usage limit reached")
	}

	targeting := EvaluateTargeting(c, cust, mode)
	if !targeting.Passed {
		return ineligible("coupon is not available for this customer")
	}

	conditions := EvaluateConditions(c, items, subtotal, cust)
	if !conditions.Passed {
		return Evaluation{
			Eligible:         false,
			DiscountAmount:   decimal.Zero,
			FailedConditions: conditions.FailedConditions,
			MissingItems:     conditions.MissingItems,
		}
	}

	eval := Evaluation{
		Eligible:       true,
		DiscountAmount: CalculateDiscount(c.Rewards, items, subtotal),
	}
	if targeting.Warning != "" {
		eval.Warnings = append(eval.Warnings, targeting.Warning)
	}
	return eval
}

func ineligible(reason string) Evaluation {
	return Evaluation{
		Eligible:         false,
		DiscountAmount:   decimal.Zero,
		FailedConditions: []string{reason},
	}
}
