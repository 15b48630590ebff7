package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/customer"
)

func colorCart() []cart.Item {
	return []cart.Item{
		{Type: cart.ItemService, ServiceID: "svc-color", CategoryID: "cat-color", UnitPrice: decimal.RequireFromString("60.00"), Quantity: 1},
		{Type: cart.ItemProduct, ProductID: "prod-pomade", CategoryID: "cat-retail", UnitPrice: decimal.RequireFromString("18.00"), Quantity: 1},
	}
}

func TestEvaluateConditions_NoConditionsPasses(t *testing.T) {
	c := &Coupon{Code: "OPEN", ConditionLogic: LogicAnd}

	got := EvaluateConditions(c, colorCart(), decimal.RequireFromString("78.00"), nil)

	assert.True(t, got.Passed)
	assert.Empty(t, got.FailedConditions)
}

func TestEvaluateConditions_AndRequiresAll(t *testing.T) {
	// Min purchase is met but no item is in the required product category.
	c := &Coupon{
		Code:                       "COMBO",
		ConditionLogic:             LogicAnd,
		MinPurchase:                decimal.RequireFromString("50.00"),
		RequiresProductCategoryIDs: []string{"cat-tools"},
	}

	got := EvaluateConditions(c, colorCart(), decimal.RequireFromString("60.00"), nil)

	assert.False(t, got.Passed)
	assert.Len(t, got.FailedConditions, 1)
	assert.Contains(t, got.MissingItems, "product-category:cat-tools")
}

func TestEvaluateConditions_OrRequiresOne(t *testing.T) {
	c := &Coupon{
		Code:                       "COMBO",
		ConditionLogic:             LogicOr,
		MinPurchase:                decimal.RequireFromString("50.00"),
		RequiresProductCategoryIDs: []string{"cat-tools"},
	}

	got := EvaluateConditions(c, colorCart(), decimal.RequireFromString("60.00"), nil)

	assert.True(t, got.Passed)
	// The unmet condition is still surfaced for messaging.
	assert.Len(t, got.FailedConditions, 1)
}

func TestEvaluateConditions_RequiredItems(t *testing.T) {
	tests := []struct {
		name       string
		coupon     *Coupon
		wantPassed bool
		wantTag    string
	}{
		{
			name:       "required service present",
			coupon:     &Coupon{ConditionLogic: LogicAnd, RequiresServiceIDs: []string{"svc-color"}},
			wantPassed: true,
		},
		{
			name:       "required service absent",
			coupon:     &Coupon{ConditionLogic: LogicAnd, RequiresServiceIDs: []string{"svc-cut"}},
			wantPassed: false,
			wantTag:    "service:svc-cut",
		},
		{
			name:       "required product present",
			coupon:     &Coupon{ConditionLogic: LogicAnd, RequiresProductIDs: []string{"prod-pomade"}},
			wantPassed: true,
		},
		{
			name:       "required service category present",
			coupon:     &Coupon{ConditionLogic: LogicAnd, RequiresServiceCategoryIDs: []string{"cat-color"}},
			wantPassed: true,
		},
		{
			name:       "product id does not satisfy service requirement",
			coupon:     &Coupon{ConditionLogic: LogicAnd, RequiresServiceIDs: []string{"prod-pomade"}},
			wantPassed: false,
			wantTag:    "service:prod-pomade",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateConditions(tt.coupon, colorCart(), decimal.RequireFromString("78.00"), nil)

			assert.Equal(t, tt.wantPassed, got.Passed)
			if tt.wantTag != "" {
				assert.Contains(t, got.MissingItems, tt.wantTag)
			}
		})
	}
}

func TestEvaluateConditions_MinPurchase(t *testing.T) {
	c := &Coupon{ConditionLogic: LogicAnd, MinPurchase: decimal.RequireFromString("80.00")}

	below := EvaluateConditions(c, colorCart(), decimal.RequireFromString("78.00"), nil)
	exact := EvaluateConditions(c, colorCart(), decimal.RequireFromString("80.00"), nil)

	assert.False(t, below.Passed)
	assert.True(t, exact.Passed)
}

func TestEvaluateConditions_MaxVisits(t *testing.T) {
	c := &Coupon{ConditionLogic: LogicAnd, MaxCustomerVisits: 3}

	newCustomer := &customer.Customer{ID: "c1", VisitCount: 2}
	regular := &customer.Customer{ID: "c2", VisitCount: 10}

	assert.True(t, EvaluateConditions(c, colorCart(), decimal.Zero, newCustomer).Passed)
	assert.False(t, EvaluateConditions(c, colorCart(), decimal.Zero, regular).Passed)
	// Absent customer: the visit ceiling cannot be verified.
	assert.False(t, EvaluateConditions(c, colorCart(), decimal.Zero, nil).Passed)
}
