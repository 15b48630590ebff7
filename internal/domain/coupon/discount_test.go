package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lumapos/checkout/internal/domain/cart"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mixedCart() []cart.Item {
	return []cart.Item{
		{Type: cart.ItemService, ServiceID: "svc-cut", CategoryID: "cat-hair", UnitPrice: dec("45.00"), Quantity: 1},
		{Type: cart.ItemService, ServiceID: "svc-color", CategoryID: "cat-color", UnitPrice: dec("120.00"), Quantity: 1},
		{Type: cart.ItemProduct, ProductID: "prod-pomade", CategoryID: "cat-retail", UnitPrice: dec("18.00"), Quantity: 2},
	}
}

func TestCalculateDiscount(t *testing.T) {
	items := mixedCart()
	subtotal := cart.Subtotal(items) // 201.00

	tests := []struct {
		name    string
		rewards []Reward
		want    string
	}{
		{
			name: "order percentage",
			rewards: []Reward{
				{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("10")},
			},
			want: "20.10",
		},
		{
			name: "percentage capped at max discount",
			rewards: []Reward{
				{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("50"), MaxDiscount: dec("10")},
			},
			want: "10.00",
		},
		{
			name: "flat capped at applicable base",
			rewards: []Reward{
				{AppliesTo: ScopeProduct, DiscountType: DiscountFlat, DiscountValue: dec("100"), TargetProductID: "prod-pomade"},
			},
			want: "36.00",
		},
		{
			name: "free removes full applicable base",
			rewards: []Reward{
				{AppliesTo: ScopeService, DiscountType: DiscountFree, TargetServiceID: "svc-cut"},
			},
			want: "45.00",
		},
		{
			name: "service category target",
			rewards: []Reward{
				{AppliesTo: ScopeService, DiscountType: DiscountPercentage, DiscountValue: dec("20"), TargetServiceCategoryID: "cat-color"},
			},
			want: "24.00",
		},
		{
			name: "untargeted service scope covers all services",
			rewards: []Reward{
				{AppliesTo: ScopeService, DiscountType: DiscountPercentage, DiscountValue: dec("10")},
			},
			want: "16.50",
		},
		{
			name: "no matching items contributes zero",
			rewards: []Reward{
				{AppliesTo: ScopeProduct, DiscountType: DiscountFree, TargetProductID: "prod-unknown"},
			},
			want: "0.00",
		},
		{
			name: "multiple rewards are summed",
			rewards: []Reward{
				{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("10")},
				{AppliesTo: ScopeProduct, DiscountType: DiscountFlat, DiscountValue: dec("5")},
			},
			want: "25.10",
		},
		{
			name: "sum clamped at subtotal",
			rewards: []Reward{
				{AppliesTo: ScopeOrder, DiscountType: DiscountFree},
				{AppliesTo: ScopeOrder, DiscountType: DiscountFlat, DiscountValue: dec("50")},
			},
			want: "201.00",
		},
		{
			name:    "no rewards",
			rewards: nil,
			want:    "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDiscount(tt.rewards, items, subtotal)
			assert.True(t, dec(tt.want).Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateDiscount_PerRewardRounding(t *testing.T) {
	// Two rewards each producing a third of a cent: each contribution is
	// rounded before summing, so the halves do not accumulate.
	items := []cart.Item{
		{Type: cart.ItemService, ServiceID: "s1", UnitPrice: dec("10.03"), Quantity: 1},
	}
	subtotal := dec("10.03")
	rewards := []Reward{
		{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("33.3")},
		{AppliesTo: ScopeOrder, DiscountType: DiscountPercentage, DiscountValue: dec("33.3")},
	}

	// 10.03 * 0.333 = 3.33999 -> 3.34 per reward, 6.68 total.
	got := CalculateDiscount(rewards, items, subtotal)
	assert.True(t, dec("6.68").Equal(got), "got %s", got)
}
