package coupon

import (
	"fmt"

	"github.com/lumapos/checkout/internal/domain/customer"
)

// EnforcementMode controls how customer-class targeting mismatches are
// handled. Identity and tag targeting always fail hard; class targeting is
// a merchandising hint, so soft mode passes with a warning the caller may
// surface to staff without blocking checkout.
type EnforcementMode string

const (
	EnforceSoft EnforcementMode = "soft"
	EnforceHard EnforcementMode = "hard"
)

// TargetingResult is the outcome of evaluating a coupon's targeting rules.
type TargetingResult struct {
	Passed  bool
	Warning string
}

// EvaluateTargeting decides whether a coupon is eligible for the given
// customer. Rules short-circuit in order: exact customer restriction, tag
// match, then customer class.
func EvaluateTargeting(c *Coupon, cust *customer.Customer, mode EnforcementMode) TargetingResult {
	if c.CustomerID != "" {
		if cust == nil || cust.ID != c.CustomerID {
			return TargetingResult{Passed: false}
		}
	}

	if len(c.CustomerTags) > 0 {
		if cust == nil || !tagsMatch(c.CustomerTags, c.TagMatchMode, cust) {
			return TargetingResult{Passed: false}
		}
	}

	if c.TargetCustomerType != "" {
		custType := ""
		if cust != nil {
			custType = cust.CustomerType
		}
		if custType != c.TargetCustomerType {
			if mode == EnforceHard {
				return TargetingResult{Passed: false}
			}
			return TargetingResult{
				Passed:  true,
				Warning: fmt.Sprintf("coupon %s is intended for %s customers", c.Code, c.TargetCustomerType),
			}
		}
	}

	return TargetingResult{Passed: true}
}

func tagsMatch(tags []string, mode TagMatchMode, cust *customer.Customer) bool {
	if mode == MatchAll {
		for _, tag := range tags {
			if !cust.HasTag(tag) {
				return false
			}
		}
		return true
	}
	for _, tag := range tags {
		if cust.HasTag(tag) {
			return true
		}
	}
	return false
}
