package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSubtotal(t *testing.T) {
	items := []Item{
		{Type: ItemService, ServiceID: "svc-cut", UnitPrice: decimal.RequireFromString("45.00"), Quantity: 1},
		{Type: ItemProduct, ProductID: "prod-pomade", UnitPrice: decimal.RequireFromString("18.00"), Quantity: 2},
	}

	assert.True(t, decimal.RequireFromString("81.00").Equal(Subtotal(items)))
}

func TestSubtotal_Empty(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(Subtotal(nil)))
}

func TestItemID(t *testing.T) {
	p := Item{Type: ItemProduct, ProductID: "p1", ServiceID: ""}
	s := Item{Type: ItemService, ServiceID: "s1"}

	assert.Equal(t, "p1", p.ID())
	assert.Equal(t, "s1", s.ID())
}
