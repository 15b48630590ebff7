package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/lumapos/checkout/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, sku, name, category_id, price, taxable, loyalty_eligible, quantity_on_hand
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, sku, name, category_id, price, taxable, loyalty_eligible, quantity_on_hand
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, sku, name, category_id, price, taxable, loyalty_eligible, quantity_on_hand
		FROM products WHERE id = ANY($1)`

	listServicesSQL = `SELECT id, name, category_id, price, duration_minutes, taxable
		FROM services ORDER BY id`

	getServiceByIDSQL = `SELECT id, name, category_id, price, duration_minutes, taxable
		FROM services WHERE id = $1`

	// Conditional decrement: a single statement that refuses to cross the
	// zero floor, so concurrent checkouts serialize on the row without a
	// read-then-write window.
	decrementStockSQL = `UPDATE products SET quantity_on_hand = quantity_on_hand - $2
		WHERE id = $1 AND quantity_on_hand >= $2`
)

var (
	_ catalog.Repository     = (*CatalogRepository)(nil)
	_ catalog.InventoryStore = (*CatalogRepository)(nil)
)

// CatalogRepository implements catalog.Repository and
// catalog.InventoryStore backed by PostgreSQL.
type CatalogRepository struct {
	q querier
}

// NewCatalogRepository returns a CatalogRepository over the given querier.
func NewCatalogRepository(q querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

// ListProducts returns all products ordered by ID.
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.q.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetProduct returns a single product by its identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.q.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetProductsByIDs returns products matching any of the given IDs.
func (r *CatalogRepository) GetProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.q.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListServices returns all bookable services ordered by ID.
func (r *CatalogRepository) ListServices(ctx context.Context) ([]catalog.Service, error) {
	rows, err := r.q.Query(ctx, listServicesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	return pgx.CollectRows(rows, scanService)
}

// GetService returns a single service by its identifier.
func (r *CatalogRepository) GetService(ctx context.Context, id string) (*catalog.Service, error) {
	rows, err := r.q.Query(ctx, getServiceByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanService)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	return &s, nil
}

// DecrementStock atomically subtracts qty from the product's stock.
// Zero affected rows means the decrement would cross the floor (or the
// product is unknown); either way the checkout cannot be fulfilled.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.q.Exec(ctx, decrementStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for product %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.Price,
		&p.Taxable, &p.LoyaltyEligible, &p.QuantityOnHand,
	)
	return p, err
}

func scanService(row pgx.CollectableRow) (catalog.Service, error) {
	var s catalog.Service
	err := row.Scan(
		&s.ID, &s.Name, &s.CategoryID, &s.Price,
		&s.DurationMinutes, &s.Taxable,
	)
	return s, err
}
