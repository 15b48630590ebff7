package coupon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumapos/checkout/internal/domain/customer"
)

func TestEvaluateTargeting(t *testing.T) {
	member := &customer.Customer{ID: "cust-1", Tags: []string{"vip"}, CustomerType: "member"}

	tests := []struct {
		name        string
		coupon      *Coupon
		cust        *customer.Customer
		mode        EnforcementMode
		wantPassed  bool
		wantWarning bool
	}{
		{
			name:       "no targeting passes for anyone",
			coupon:     &Coupon{Code: "OPEN"},
			cust:       nil,
			mode:       EnforceHard,
			wantPassed: true,
		},
		{
			name:       "customer restriction matches",
			coupon:     &Coupon{Code: "PERSONAL", CustomerID: "cust-1"},
			cust:       member,
			mode:       EnforceHard,
			wantPassed: true,
		},
		{
			name:       "customer restriction mismatch fails",
			coupon:     &Coupon{Code: "PERSONAL", CustomerID: "cust-2"},
			cust:       member,
			mode:       EnforceSoft,
			wantPassed: false,
		},
		{
			name:       "customer restriction fails without customer",
			coupon:     &Coupon{Code: "PERSONAL", CustomerID: "cust-1"},
			cust:       nil,
			mode:       EnforceSoft,
			wantPassed: false,
		},
		{
			name:       "tag match any passes with one shared tag",
			coupon:     &Coupon{Code: "TAGS", CustomerTags: []string{"vip", "fleet"}, TagMatchMode: MatchAny},
			cust:       member,
			mode:       EnforceHard,
			wantPassed: true,
		},
		{
			name:       "tag match all fails with missing tag",
			coupon:     &Coupon{Code: "TAGS", CustomerTags: []string{"vip", "fleet"}, TagMatchMode: MatchAll},
			cust:       member,
			mode:       EnforceHard,
			wantPassed: false,
		},
		{
			name:       "tag targeting fails without customer",
			coupon:     &Coupon{Code: "TAGS", CustomerTags: []string{"vip"}, TagMatchMode: MatchAny},
			cust:       nil,
			mode:       EnforceSoft,
			wantPassed: false,
		},
		{
			name:       "class mismatch hard mode fails",
			coupon:     &Coupon{Code: "CLASS", TargetCustomerType: "student"},
			cust:       member,
			mode:       EnforceHard,
			wantPassed: false,
		},
		{
			name:        "class mismatch soft mode passes with warning",
			coupon:      &Coupon{Code: "CLASS", TargetCustomerType: "student"},
			cust:        member,
			mode:        EnforceSoft,
			wantPassed:  true,
			wantWarning: true,
		},
		{
			name:       "class match passes without warning",
			coupon:     &Coupon{Code: "CLASS", TargetCustomerType: "member"},
			cust:       member,
			mode:       EnforceHard,
			wantPassed: true,
		},
		{
			name:        "class targeting without customer soft mode warns",
			coupon:      &Coupon{Code: "CLASS", TargetCustomerType: "member"},
			cust:        nil,
			mode:        EnforceSoft,
			wantPassed:  true,
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateTargeting(tt.coupon, tt.cust, tt.mode)

			assert.Equal(t, tt.wantPassed, got.Passed)
			if tt.wantWarning {
				assert.NotEmpty(t, got.Warning)
				assert.Contains(t, got.Warning, tt.coupon.TargetCustomerType)
			} else {
				assert.Empty(t, got.Warning)
			}
		})
	}
}
