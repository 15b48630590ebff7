package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/customer"
)

func welcomeCoupon() *Coupon {
	return &Coupon{
		Code:           "WELCOME10",
		Status:         StatusActive,
		ConditionLogic: LogicAnd,
		Rewards: []Reward{
			{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("10"), MaxDiscount: dec("5")},
		},
	}
}

func eightyDollarCart() []cart.Item {
	return []cart.Item{
		{Type: cart.ItemService, ServiceID: "svc-color", CategoryID: "cat-color", UnitPrice: dec("60.00"), Quantity: 1},
		{Type: cart.ItemProduct, ProductID: "prod-pomade", CategoryID: "cat-retail", UnitPrice: dec("10.00"), Quantity: 2},
	}
}

func TestEvaluate_CappedPercentage(t *testing.T) {
	e := NewEvaluator()

	// 10% of $80 is $8, capped at $5 by the reward's max discount.
	got := e.Evaluate(welcomeCoupon(), nil, eightyDollarCart(), EnforceSoft)

	assert.True(t, got.Eligible)
	assert.True(t, dec("5.00").Equal(got.DiscountAmount), "got %s", got.DiscountAmount)
	assert.Empty(t, got.Warnings)
}

func TestEvaluate_Ineligibility(t *testing.T) {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		coupon     *Coupon
		cust       *customer.Customer
		wantReason string
	}{
		{
			name: "disabled status",
			coupon: func() *Coupon {
				c := welcomeCoupon()
				c.Status = StatusDisabled
				return c
			}(),
			wantReason: "coupon is not active",
		},
		{
			name: "expired",
			coupon: func() *Coupon {
				c := welcomeCoupon()
				c.ExpiresAt = &past
				return c
			}(),
			wantReason: "coupon has expired",
		},
		{
			name: "usage ceiling reached",
			coupon: func() *Coupon {
				c := welcomeCoupon()
				c.MaxUses = 3
				c.UseCount = 3
				return c
			}(),
			wantReason: "coupon usage limit reached",
		},
		{
			name: "single use already consumed",
			coupon: func() *Coupon {
				c := welcomeCoupon()
				c.IsSingleUse = true
				c.UseCount = 1
				return c
			}(),
			wantReason: "coupon usage limit reached",
		},
		{
			name: "targeted at a different customer",
			coupon: func() *Coupon {
				c := welcomeCoupon()
				c.CustomerID = "cust-other"
				return c
			}(),
			cust:       &customer.Customer{ID: "cust-ana"},
			wantReason: "coupon is not available for this customer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator()

			got := e.Evaluate(tt.coupon, tt.cust, eightyDollarCart(), EnforceSoft)

			assert.False(t, got.Eligible)
			assert.True(t, got.DiscountAmount.IsZero())
			assert.Contains(t, got.FailedConditions, tt.wantReason)
		})
	}
}

func TestEvaluate_UnmetConditionsSurfaceMissingItems(t *testing.T) {
	c := welcomeCoupon()
	c.RequiresServiceIDs = []string{"svc-cut"}
	e := NewEvaluator()

	got := e.Evaluate(c, nil, eightyDollarCart(), EnforceSoft)

	assert.False(t, got.Eligible)
	assert.Contains(t, got.MissingItems, "service:svc-cut")
	assert.NotEmpty(t, got.FailedConditions)
}

func TestEvaluate_SoftClassMismatchWarnsButApplies(t *testing.T) {
	c := welcomeCoupon()
	c.TargetCustomerType = "student"
	cust := &customer.Customer{ID: "cust-ana", CustomerType: "member"}
	e := NewEvaluator()

	got := e.Evaluate(c, cust, eightyDollarCart(), EnforceSoft)

	assert.True(t, got.Eligible)
	assert.True(t, dec("5.00").Equal(got.DiscountAmount))
	assert.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "student")
}

func TestEvaluate_ExpiryUsesEvaluatorClock(t *testing.T) {
	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := welcomeCoupon()
	c.ExpiresAt = &expiry

	before := &Evaluator{now: func() time.Time { return expiry.Add(-time.Hour) }}
	after := &Evaluator{now: func() time.Time { return expiry.Add(time.Hour) }}

	assert.True(t, before.Evaluate(c, nil, eightyDollarCart(), EnforceSoft).Eligible)
	assert.False(t, after.Evaluate(c, nil, eightyDollarCart(), EnforceSoft).Eligible)
}

func TestEvaluate_MinPurchaseUsesGrossSubtotal(t *testing.T) {
	c := welcomeCoupon()
	c.MinPurchase = dec("80.00")
	e := NewEvaluator()

	got := e.Evaluate(c, nil, eightyDollarCart(), EnforceSoft)

	assert.True(t, got.Eligible)
	assert.True(t, decimal.RequireFromString("5.00").Equal(got.DiscountAmount))
}
