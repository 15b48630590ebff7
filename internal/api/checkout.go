package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/catalog"
	"github.com/lumapos/checkout/internal/domain/coupon"
	"github.com/lumapos/checkout/internal/domain/settlement"
)

type evaluateCouponRequest struct {
	CouponCode      string        `json:"couponCode"`
	CustomerID      string        `json:"customerId,omitempty"`
	EnforcementMode string        `json:"enforcementMode,omitempty"`
	Items           []itemRequest `json:"items"`
}

type evaluateCouponResponse struct {
	Eligible         bool     `json:"eligible"`
	DiscountAmount   string   `json:"discountAmount"`
	Warnings         []string `json:"warnings,omitempty"`
	FailedConditions []string `json:"failedConditions,omitempty"`
	MissingItems     []string `json:"missingItems,omitempty"`
}

// EvaluateCoupon composes targeting, condition, and discount evaluation
// for a coupon against the supplied cart. Ineligibility is a 200 with
// eligible=false; only malformed input or missing references fail.
func (h *Handler) EvaluateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req evaluateCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CouponCode == "" {
		writeError(w, http.StatusBadRequest, "couponCode required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items required")
		return
	}

	mode := coupon.EnforcementMode(req.EnforcementMode)
	if mode == "" {
		mode = coupon.EnforceSoft
	}
	if mode != coupon.EnforceSoft && mode != coupon.EnforceHard {
		writeError(w, http.StatusBadRequest, "enforcementMode must be soft or hard")
		return
	}

	items, err := h.buildCart(ctx, req.Items)
	if err != nil {
		h.respondBuildError(ctx, w, err)
		return
	}

	cust, err := h.loadCustomer(ctx, req.CustomerID)
	if err != nil {
		h.respondBuildError(ctx, w, err)
		return
	}

	c, err := h.coupons.FindByCode(ctx, req.CouponCode)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeJSON(w, http.StatusOK, evaluateCouponResponse{
				Eligible:         false,
				DiscountAmount:   decimalString(decimal.Zero),
				FailedConditions: []string{"coupon code not found"},
			})
			return
		}
		writeInternal(ctx, w, err)
		return
	}

	eval := h.evaluator.Evaluate(c, cust, items, mode)
	writeJSON(w, http.StatusOK, evaluateCouponResponse{
		Eligible:         eval.Eligible,
		DiscountAmount:   decimalString(eval.DiscountAmount),
		Warnings:         eval.Warnings,
		FailedConditions: eval.FailedConditions,
		MissingItems:     eval.MissingItems,
	})
}

type autoApplyCouponResponse struct {
	Code        string                `json:"code"`
	MinPurchase string                `json:"minPurchase,omitempty"`
	ExpiresAt   string                `json:"expiresAt,omitempty"`
	Rewards     []couponRewardSummary `json:"rewards"`
}

type couponRewardSummary struct {
	AppliesTo     string `json:"appliesTo"`
	DiscountType  string `json:"discountType"`
	DiscountValue string `json:"discountValue"`
	MaxDiscount   string `json:"maxDiscount,omitempty"`
}

// ListAutoApplyCoupons returns the active auto-apply coupons so callers can
// offer them without a typed code. Eligibility is still decided per cart by
// EvaluateCoupon.
func (h *Handler) ListAutoApplyCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	coupons, err := h.coupons.ListAutoApply(ctx)
	if err != nil {
		writeInternal(ctx, w, err)
		return
	}

	out := make([]autoApplyCouponResponse, len(coupons))
	for i, c := range coupons {
		resp := autoApplyCouponResponse{Code: c.Code}
		if c.MinPurchase.IsPositive() {
			resp.MinPurchase = decimalString(c.MinPurchase)
		}
		if c.ExpiresAt != nil {
			resp.ExpiresAt = c.ExpiresAt.Format(time.RFC3339)
		}
		for _, rw := range c.Rewards {
			summary := couponRewardSummary{
				AppliesTo:     string(rw.AppliesTo),
				DiscountType:  string(rw.DiscountType),
				DiscountValue: rw.DiscountValue.String(),
			}
			if rw.MaxDiscount.IsPositive() {
				summary.MaxDiscount = decimalString(rw.MaxDiscount)
			}
			resp.Rewards = append(resp.Rewards, summary)
		}
		out[i] = resp
	}
	writeJSON(w, http.StatusOK, out)
}

type paymentRequest struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	TipAmount decimal.Decimal `json:"tipAmount"`
}

type settleRequest struct {
	CustomerID      string           `json:"customerId,omitempty"`
	Items           []itemRequest    `json:"items"`
	Payments        []paymentRequest `json:"payments"`
	CouponCode      string           `json:"couponCode,omitempty"`
	RedeemPoints    int64            `json:"redeemPoints,omitempty"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	TipAmount       decimal.Decimal  `json:"tipAmount"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	LoyaltyDiscount decimal.Decimal  `json:"loyaltyDiscount"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type ledgerEntryResponse struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	PointsChange  int64  `json:"pointsChange"`
	PointsBalance int64  `json:"pointsBalance"`
	Description   string `json:"description"`
}

type settleResponse struct {
	TransactionID         string                `json:"transactionId"`
	Subtotal              string                `json:"subtotal"`
	DiscountAmount        string                `json:"discountAmount"`
	TotalAmount           string                `json:"totalAmount"`
	LoyaltyPointsEarned   int64                 `json:"loyaltyPointsEarned"`
	LoyaltyPointsRedeemed int64                 `json:"loyaltyPointsRedeemed"`
	LedgerEntries         []ledgerEntryResponse `json:"ledgerEntries,omitempty"`
}

// Settle commits the checkout atomically. Resource conflicts (stock floor,
// coupon ceiling) abort with 409 so the caller can retry; everything else
// fails with the generic retry message.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req settleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items, err := h.buildCart(ctx, req.Items)
	if err != nil {
		h.respondBuildError(ctx, w, err)
		return
	}

	var c *coupon.Coupon
	if req.CouponCode != "" {
		c, err = h.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			if errors.Is(err, coupon.ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity, "invalid coupon code")
				return
			}
			writeInternal(ctx, w, err)
			return
		}
	}

	subtotal := cart.Subtotal(items)
	total := req.TotalAmount
	if total.IsZero() {
		total = subtotal.Add(req.TaxAmount).Add(req.TipAmount).
			Sub(req.DiscountAmount).Sub(req.LoyaltyDiscount)
		if total.IsNegative() {
			total = decimal.Zero
		}
		total = total.Round(2)
	}

	payments := make([]settlement.PaymentInput, len(req.Payments))
	for i, p := range req.Payments {
		payments[i] = settlement.PaymentInput{
			Method:    p.Method,
			Amount:    p.Amount,
			TipAmount: p.TipAmount,
		}
	}

	result, err := h.settlement.Settle(ctx, settlement.Request{
		Draft: settlement.Draft{
			CustomerID:      req.CustomerID,
			Subtotal:        subtotal,
			TaxAmount:       req.TaxAmount,
			TipAmount:       req.TipAmount,
			DiscountAmount:  req.DiscountAmount,
			TotalAmount:     total,
			PaymentMethod:   req.PaymentMethod,
			LoyaltyDiscount: req.LoyaltyDiscount,
		},
		Items:        items,
		Payments:     payments,
		Coupon:       c,
		RedeemPoints: req.RedeemPoints,
	})
	if err != nil {
		h.respondSettleError(ctx, w, err)
		return
	}

	txn := result.Transaction
	resp := settleResponse{
		TransactionID:         txn.ID,
		Subtotal:              decimalString(txn.Subtotal),
		DiscountAmount:        decimalString(txn.DiscountAmount),
		TotalAmount:           decimalString(txn.TotalAmount),
		LoyaltyPointsEarned:   txn.LoyaltyPointsEarned,
		LoyaltyPointsRedeemed: txn.LoyaltyPointsRedeemed,
	}
	for _, entry := range result.LedgerEntries {
		resp.LedgerEntries = append(resp.LedgerEntries, ledgerEntryResponse{
			ID:            entry.ID,
			Action:        string(entry.Action),
			PointsChange:  entry.PointsChange,
			PointsBalance: entry.PointsBalance,
			Description:   entry.Description,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// respondBuildError maps cart/customer resolution failures: validation
// problems get 422, anything else is internal.
func (h *Handler) respondBuildError(ctx context.Context, w http.ResponseWriter, err error) {
	var badReq *badRequestError
	if errors.As(err, &badReq) {
		writeError(w, http.StatusUnprocessableEntity, badReq.message)
		return
	}
	writeInternal(ctx, w, err)
}

// respondSettleError maps pipeline failures per the error taxonomy:
// validation 400/422, resource conflicts 409 (retryable), the rest 500.
func (h *Handler) respondSettleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrEmptyItems),
		errors.Is(err, settlement.ErrNoPayments),
		errors.Is(err, settlement.ErrBadTotals):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock, please retry")
	case errors.Is(err, coupon.ErrUsageLimitReached):
		writeError(w, http.StatusConflict, "coupon usage limit reached")
	default:
		var iqErr *settlement.InvalidQuantityError
		if errors.As(err, &iqErr) {
			writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
			return
		}
		writeInternal(ctx, w, err)
	}
}
