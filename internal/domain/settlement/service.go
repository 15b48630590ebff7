package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/coupon"
	"github.com/lumapos/checkout/internal/domain/customer"
)

// Config holds the feature toggles and rates that gate pipeline behaviour.
// Passed in explicitly so tests can exercise both settings deterministically.
type Config struct {
	// LoyaltyEnabled gates the customer stats and points step entirely.
	LoyaltyEnabled bool
	// EarnRate is the points earned per dollar of eligible spend.
	EarnRate decimal.Decimal
	// PointValue is the dollar value one point offsets when redeemed.
	PointValue decimal.Decimal
	// CardFeeRate is the processing fee removed from card tips before
	// crediting staff payout.
	CardFeeRate decimal.Decimal
	// ExcludedSKUs lists product SKUs whose lines never earn points.
	ExcludedSKUs []string
}

func (c Config) excludedSKUSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.ExcludedSKUs))
	for _, sku := range c.ExcludedSKUs {
		set[sku] = struct{}{}
	}
	return set
}

// Request is the full input to one settlement.
type Request struct {
	Draft    Draft
	Items    []cart.Item
	Payments []PaymentInput
	// Coupon is the already-evaluated coupon to attribute, nil when none.
	Coupon *coupon.Coupon
	// RedeemPoints is the loyalty redemption the caller applied, 0 for none.
	RedeemPoints int64
}

// Result holds the committed transaction and the ledger rows it produced.
type Result struct {
	Transaction   *Transaction
	LedgerEntries []customer.LedgerEntry
}

// Service is the settlement pipeline. All six mutation steps run inside
// one unit of work; any step failure rolls back the whole checkout.
type Service struct {
	uow UnitOfWork
	cfg Config
	now func() time.Time
}

// NewService creates a settlement Service over the given unit of work.
func NewService(uow UnitOfWork, cfg Config) *Service {
	return &Service{uow: uow, cfg: cfg, now: time.Now}
}

// Settle validates the request and commits the checkout. The returned
// error identifies the failed step; nothing is persisted on failure.
func (s *Service) Settle(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var result *Result
	err := s.uow.WithinTx(ctx, func(ctx context.Context, stores Stores) error {
		r, err := s.run(ctx, stores, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Debug("settlement committed",
		zap.String("transaction_id", result.Transaction.ID),
		zap.String("total", result.Transaction.TotalAmount.StringFixed(2)),
	)
	return result, nil
}

func validate(req Request) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ItemName: item.Name}
		}
	}
	if len(req.Payments) == 0 {
		return ErrNoPayments
	}
	d := req.Draft
	for _, amount := range []decimal.Decimal{d.Subtotal, d.TaxAmount, d.TipAmount, d.DiscountAmount, d.TotalAmount} {
		if amount.IsNegative() {
			return ErrBadTotals
		}
	}
	return nil
}

func (s *Service) run(ctx context.Context, stores Stores, req Request) (*Result, error) {
	// Step 1: transaction header.
	txn := s.buildTransaction(req)
	if err := stores.Transactions().CreateTransaction(ctx, txn); err != nil {
		return nil, errors.Wrap(err, "create transaction header")
	}

	// Step 2: line items.
	items := buildItems(txn.ID, req.Items)
	if err := stores.Transactions().CreateItems(ctx, items); err != nil {
		return nil, errors.Wrap(err, "insert line items")
	}

	// Step 3: payments with net tip.
	payments := s.buildPayments(txn.ID, req.Payments)
	if err := stores.Transactions().CreatePayments(ctx, payments); err != nil {
		return nil, errors.Wrap(err, "insert payments")
	}

	// Step 4: inventory decrements, one conditional update per product row.
	for _, item := range req.Items {
		if item.Type != cart.ItemProduct {
			continue
		}
		if err := stores.Inventory().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, errors.Wrapf(err, "decrement stock for product %s", item.ProductID)
		}
	}

	// Step 5: customer stats and loyalty. Visit stats accrue for every
	// attached customer; only the points sub-steps are toggled.
	var ledger []customer.LedgerEntry
	if txn.CustomerID != "" {
		if err := stores.Customers().RecordVisit(ctx, txn.CustomerID, txn.TotalAmount); err != nil {
			return nil, errors.Wrap(err, "record visit")
		}
		if s.cfg.LoyaltyEnabled {
			entries, err := s.applyLoyalty(ctx, stores, txn, req)
			if err != nil {
				return nil, errors.Wrap(err, "apply loyalty")
			}
			ledger = entries
		}
	}

	// Step 6: coupon and campaign attribution.
	if req.Coupon != nil {
		if err := stores.Coupons().ConsumeUse(ctx, req.Coupon.Code); err != nil {
			return nil, errors.Wrapf(err, "consume coupon %s", req.Coupon.Code)
		}
		if req.Coupon.CampaignID != "" {
			if err := stores.Campaigns().RecordRedemption(ctx, req.Coupon.CampaignID, txn.TotalAmount); err != nil {
				return nil, errors.Wrap(err, "record campaign redemption")
			}
		}
	}

	return &Result{Transaction: txn, LedgerEntries: ledger}, nil
}

func (s *Service) buildTransaction(req Request) *Transaction {
	d := req.Draft
	couponCode := ""
	if req.Coupon != nil {
		couponCode = req.Coupon.Code
	}
	return &Transaction{
		ID:              uuid.New().String(),
		CustomerID:      d.CustomerID,
		Status:          "completed",
		Subtotal:        d.Subtotal,
		TaxAmount:       d.TaxAmount,
		TipAmount:       d.TipAmount,
		DiscountAmount:  d.DiscountAmount,
		TotalAmount:     d.TotalAmount,
		PaymentMethod:   d.PaymentMethod,
		CouponCode:      couponCode,
		LoyaltyDiscount: d.LoyaltyDiscount,
		CreatedAt:       s.now(),
	}
}

func buildItems(transactionID string, items []cart.Item) []TransactionItem {
	rows := make([]TransactionItem, len(items))
	for i, item := range items {
		unitPrice := item.UnitPrice
		if item.Type == cart.ItemService && item.Quantity > 1 {
			// Multi-quantity service lines are booked at a total price;
			// the stored per-unit price is derived from that total.
			unitPrice = item.LineTotal().Div(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		}
		rows[i] = TransactionItem{
			ID:            uuid.New().String(),
			TransactionID: transactionID,
			ItemType:      item.Type,
			ProductID:     item.ProductID,
			ServiceID:     item.ServiceID,
			CategoryID:    item.CategoryID,
			Name:          item.Name,
			UnitPrice:     unitPrice,
			Quantity:      item.Quantity,
			Taxable:       item.Taxable,
			LineTotal:     item.LineTotal(),
		}
	}
	return rows
}

func (s *Service) buildPayments(transactionID string, inputs []PaymentInput) []Payment {
	one := decimal.NewFromInt(1)
	rows := make([]Payment, len(inputs))
	for i, in := range inputs {
		netTip := in.TipAmount
		if in.Method == "card" && in.TipAmount.IsPositive() {
			netTip = in.TipAmount.Mul(one.Sub(s.cfg.CardFeeRate)).Round(2)
		}
		rows[i] = Payment{
			ID:            uuid.New().String(),
			TransactionID: transactionID,
			Method:        in.Method,
			Amount:        in.Amount,
			TipAmount:     in.TipAmount,
			NetTip:        netTip,
		}
	}
	return rows
}

// applyLoyalty runs the points sub-steps: redemption, then earn. Each
// ledger row's PointsBalance snapshots the balance immediately after that
// row's change; reconciliation depends on it.
func (s *Service) applyLoyalty(ctx context.Context, stores Stores, txn *Transaction, req Request) ([]customer.LedgerEntry, error) {
	customers := stores.Customers()

	var entries []customer.LedgerEntry

	if req.RedeemPoints > 0 {
		redeemed, balance, err := customers.RedeemPoints(ctx, txn.CustomerID, req.RedeemPoints)
		if err != nil {
			return nil, errors.Wrap(err, "redeem points")
		}
		if redeemed > 0 {
			// The dollar value is derived from the points actually
			// deducted, not the caller's draft: a clamped redemption
			// offsets less than was requested.
			value := decimal.NewFromInt(redeemed).Mul(s.cfg.PointValue).Round(2)
			entry := customer.LedgerEntry{
				ID:            uuid.New().String(),
				CustomerID:    txn.CustomerID,
				TransactionID: txn.ID,
				Action:        customer.ActionRedeemed,
				PointsChange:  -redeemed,
				PointsBalance: balance,
				Description:   fmt.Sprintf("Redeemed %d points for $%s off", redeemed, value.StringFixed(2)),
				CreatedAt:     s.now(),
			}
			if err := customers.AppendLedger(ctx, &entry); err != nil {
				return nil, errors.Wrap(err, "append redeem ledger entry")
			}
			txn.LoyaltyPointsRedeemed = redeemed
			entries = append(entries, entry)
		}
	}

	earned := s.earnedPoints(req.Items)
	if earned > 0 {
		balance, err := customers.EarnPoints(ctx, txn.CustomerID, earned)
		if err != nil {
			return nil, errors.Wrap(err, "earn points")
		}
		entry := customer.LedgerEntry{
			ID:            uuid.New().String(),
			CustomerID:    txn.CustomerID,
			TransactionID: txn.ID,
			Action:        customer.ActionEarned,
			PointsChange:  earned,
			PointsBalance: balance,
			Description:   fmt.Sprintf("Earned %d points on purchase", earned),
			CreatedAt:     s.now(),
		}
		if err := customers.AppendLedger(ctx, &entry); err != nil {
			return nil, errors.Wrap(err, "append earn ledger entry")
		}
		txn.LoyaltyPointsEarned = earned
		entries = append(entries, entry)
	}

	if txn.LoyaltyPointsEarned > 0 || txn.LoyaltyPointsRedeemed > 0 {
		err := stores.Transactions().SetLoyaltyPoints(ctx, txn.ID, txn.LoyaltyPointsEarned, txn.LoyaltyPointsRedeemed)
		if err != nil {
			return nil, errors.Wrap(err, "record loyalty points on header")
		}
	}

	return entries, nil
}

// earnedPoints computes floor(eligible spend * earn rate). Earn is based
// on gross line totals, not the discount-net total.
func (s *Service) earnedPoints(items []cart.Item) int64 {
	excluded := s.cfg.excludedSKUSet()
	eligible := decimal.Zero
	for _, item := range items {
		if item.Type == cart.ItemProduct {
			if !item.LoyaltyEligible {
				continue
			}
			if _, skip := excluded[item.SKU]; skip {
				continue
			}
		}
		eligible = eligible.Add(item.LineTotal())
	}
	return eligible.Mul(s.cfg.EarnRate).Floor().IntPart()
}
