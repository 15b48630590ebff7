package repository

import (
	"context"
	"fmt"

	"github.com/lumapos/checkout/internal/domain/settlement"
)

const (
	createTransactionSQL = `INSERT INTO transactions
		(id, customer_id, status, subtotal, tax_amount, tip_amount, discount_amount, total_amount,
		 payment_method, coupon_code, loyalty_points_earned, loyalty_points_redeemed, loyalty_discount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	createItemSQL = `INSERT INTO transaction_items
		(id, transaction_id, item_type, product_id, service_id, category_id, name, unit_price, quantity, taxable, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	createPaymentSQL = `INSERT INTO payments
		(id, transaction_id, method, amount, tip_amount, net_tip)
		VALUES ($1, $2, $3, $4, $5, $6)`

	setLoyaltyPointsSQL = `UPDATE transactions
		SET loyalty_points_earned = $2, loyalty_points_redeemed = $3
		WHERE id = $1`
)

var _ settlement.TransactionStore = (*TransactionRepository)(nil)

// TransactionRepository implements settlement.TransactionStore backed by
// PostgreSQL. Rows are immutable once written; the only update is the
// loyalty point totals recorded back onto the header by the pipeline.
type TransactionRepository struct {
	q querier
}

// NewTransactionRepository returns a TransactionRepository over the given
// querier.
func NewTransactionRepository(q querier) *TransactionRepository {
	return &TransactionRepository{q: q}
}

// CreateTransaction persists the transaction header.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, t *settlement.Transaction) error {
	_, err := r.q.Exec(ctx, createTransactionSQL,
		t.ID, nullable(t.CustomerID), t.Status,
		t.Subtotal, t.TaxAmount, t.TipAmount, t.DiscountAmount, t.TotalAmount,
		t.PaymentMethod, nullable(t.CouponCode),
		t.LoyaltyPointsEarned, t.LoyaltyPointsRedeemed, t.LoyaltyDiscount, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating transaction %q: %w", t.ID, err)
	}
	return nil
}

// CreateItems persists the transaction's line item rows.
func (r *TransactionRepository) CreateItems(ctx context.Context, items []settlement.TransactionItem) error {
	for _, item := range items {
		_, err := r.q.Exec(ctx, createItemSQL,
			item.ID, item.TransactionID, string(item.ItemType),
			nullable(item.ProductID), nullable(item.ServiceID), nullable(item.CategoryID),
			item.Name, item.UnitPrice, item.Quantity, item.Taxable, item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("creating transaction item %q: %w", item.ID, err)
		}
	}
	return nil
}

// CreatePayments persists the transaction's tender rows.
func (r *TransactionRepository) CreatePayments(ctx context.Context, payments []settlement.Payment) error {
	for _, p := range payments {
		_, err := r.q.Exec(ctx, createPaymentSQL,
			p.ID, p.TransactionID, p.Method, p.Amount, p.TipAmount, p.NetTip,
		)
		if err != nil {
			return fmt.Errorf("creating payment %q: %w", p.ID, err)
		}
	}
	return nil
}

// SetLoyaltyPoints records earned/redeemed totals back onto the header.
func (r *TransactionRepository) SetLoyaltyPoints(ctx context.Context, transactionID string, earned, redeemed int64) error {
	_, err := r.q.Exec(ctx, setLoyaltyPointsSQL, transactionID, earned, redeemed)
	if err != nil {
		return fmt.Errorf("setting loyalty points on transaction %q: %w", transactionID, err)
	}
	return nil
}

// nullable maps empty strings to NULL for optional foreign keys.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
