// Package cart holds the ephemeral line items of a single checkout.
// Items exist only for the duration of one evaluation/settlement cycle.
package cart

import "github.com/shopspring/decimal"

// ItemType distinguishes product lines from service lines.
type ItemType string

const (
	ItemProduct ItemType = "product"
	ItemService ItemType = "service"
)

// Item is one cart line. ProductID or ServiceID is set according to Type.
// SKU and LoyaltyEligible are copied from the catalog when the cart is
// assembled; service lines always earn loyalty points.
type Item struct {
	Type            ItemType
	ProductID       string
	ServiceID       string
	SKU             string
	CategoryID      string
	Name            string
	UnitPrice       decimal.Decimal
	Quantity        int
	Taxable         bool
	LoyaltyEligible bool
}

// LineTotal returns unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ID returns the catalog identifier matching the item's type.
func (i Item) ID() string {
	if i.Type == ItemService {
		return i.ServiceID
	}
	return i.ProductID
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}
