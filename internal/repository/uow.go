package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumapos/checkout/internal/domain/campaign"
	"github.com/lumapos/checkout/internal/domain/catalog"
	"github.com/lumapos/checkout/internal/domain/customer"
	"github.com/lumapos/checkout/internal/domain/settlement"
)

var _ settlement.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs settlement pipelines inside a single pgx transaction.
// Unrelated checkouts proceed on separate connections; serialization of
// shared rows happens at the conditional statements, not via locks here.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork returns a UnitOfWork over the given pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// WithinTx begins a transaction, hands tx-scoped stores to fn, and commits
// only if fn succeeds. Any error rolls back every mutation.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s settlement.Stores) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(ctx, txStores{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// txStores bundles repositories bound to one pgx.Tx.
type txStores struct {
	tx pgx.Tx
}

var _ settlement.Stores = txStores{}

func (s txStores) Transactions() settlement.TransactionStore { return NewTransactionRepository(s.tx) }
func (s txStores) Inventory() catalog.InventoryStore         { return NewCatalogRepository(s.tx) }
func (s txStores) Customers() customer.Store                 { return NewCustomerRepository(s.tx) }
func (s txStores) Coupons() settlement.CouponStore           { return NewCouponRepository(s.tx) }
func (s txStores) Campaigns() campaign.Store                 { return NewCampaignRepository(s.tx) }
