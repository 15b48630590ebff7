package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, tags, customer_type, visit_count, lifetime_spend, loyalty_points_balance
		FROM customers WHERE id = $1`

	recordVisitSQL = `UPDATE customers
		SET visit_count = visit_count + 1, lifetime_spend = lifetime_spend + $2
		WHERE id = $1`

	// Clamped redemption in one statement, same shape as the other
	// bounded updates. The CTE locks the row and exposes the pre-update
	// balance so the caller learns how many points were actually deducted.
	redeemPointsSQL = `WITH prev AS (
			SELECT id, loyalty_points_balance AS balance
			FROM customers WHERE id = $1 FOR UPDATE
		)
		UPDATE customers c
		SET loyalty_points_balance = GREATEST(c.loyalty_points_balance - $2, 0)
		FROM prev
		WHERE c.id = prev.id
		RETURNING prev.balance, c.loyalty_points_balance`

	earnPointsSQL = `UPDATE customers
		SET loyalty_points_balance = loyalty_points_balance + $2
		WHERE id = $1
		RETURNING loyalty_points_balance`

	appendLedgerSQL = `INSERT INTO loyalty_ledger
		(id, customer_id, transaction_id, action, points_change, points_balance, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listLedgerSQL = `SELECT id, customer_id, transaction_id, action, points_change, points_balance, description, created_at
		FROM loyalty_ledger WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`
)

var (
	_ customer.Repository = (*CustomerRepository)(nil)
	_ customer.Store      = (*CustomerRepository)(nil)
)

// CustomerRepository implements customer.Repository and customer.Store
// backed by PostgreSQL.
type CustomerRepository struct {
	q querier
}

// NewCustomerRepository returns a CustomerRepository over the given querier.
func NewCustomerRepository(q querier) *CustomerRepository {
	return &CustomerRepository{q: q}
}

// GetByID returns a customer or customer.ErrNotFound.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.q.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// RecordVisit increments the visit counter and adds spend to lifetime spend.
func (r *CustomerRepository) RecordVisit(ctx context.Context, id string, spend decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, recordVisitSQL, id, spend)
	if err != nil {
		return fmt.Errorf("recording visit for customer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// RedeemPoints subtracts up to points from the balance, clamping at zero.
func (r *CustomerRepository) RedeemPoints(ctx context.Context, id string, points int64) (int64, int64, error) {
	rows, err := r.q.Query(ctx, redeemPointsSQL, id, points)
	if err != nil {
		return 0, 0, fmt.Errorf("redeeming points for customer %q: %w", id, err)
	}

	type balances struct {
		prev, current int64
	}
	b, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (balances, error) {
		var b balances
		err := row.Scan(&b.prev, &b.current)
		return b, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, customer.ErrNotFound
		}
		return 0, 0, fmt.Errorf("redeeming points for customer %q: %w", id, err)
	}
	return b.prev - b.current, b.current, nil
}

// EarnPoints adds points to the balance and returns the new balance.
func (r *CustomerRepository) EarnPoints(ctx context.Context, id string, points int64) (int64, error) {
	rows, err := r.q.Query(ctx, earnPointsSQL, id, points)
	if err != nil {
		return 0, fmt.Errorf("earning points for customer %q: %w", id, err)
	}

	balance, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (int64, error) {
		var b int64
		err := row.Scan(&b)
		return b, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, customer.ErrNotFound
		}
		return 0, fmt.Errorf("earning points for customer %q: %w", id, err)
	}
	return balance, nil
}

// AppendLedger inserts one loyalty ledger row.
func (r *CustomerRepository) AppendLedger(ctx context.Context, entry *customer.LedgerEntry) error {
	_, err := r.q.Exec(ctx, appendLedgerSQL,
		entry.ID, entry.CustomerID, entry.TransactionID, string(entry.Action),
		entry.PointsChange, entry.PointsBalance, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending ledger entry for customer %q: %w", entry.CustomerID, err)
	}
	return nil
}

// ListLedger returns the customer's ledger rows, newest first.
func (r *CustomerRepository) ListLedger(ctx context.Context, customerID string) ([]customer.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, listLedgerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanLedgerEntry)
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Tags, &c.CustomerType,
		&c.VisitCount, &c.LifetimeSpend, &c.LoyaltyPointsBalance,
	)
	return c, err
}

func scanLedgerEntry(row pgx.CollectableRow) (customer.LedgerEntry, error) {
	var (
		e      customer.LedgerEntry
		action string
	)
	err := row.Scan(
		&e.ID, &e.CustomerID, &e.TransactionID, &action,
		&e.PointsChange, &e.PointsBalance, &e.Description, &e.CreatedAt,
	)
	e.Action = customer.LedgerAction(action)
	return e, err
}
