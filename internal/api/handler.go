// Package api exposes the checkout engine over JSON HTTP endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lumapos/checkout/internal/domain/cart"
	"github.com/lumapos/checkout/internal/domain/catalog"
	"github.com/lumapos/checkout/internal/domain/coupon"
	"github.com/lumapos/checkout/internal/domain/customer"
	"github.com/lumapos/checkout/internal/domain/settlement"
)

// Handler serves the checkout API: coupon evaluation, settlement, and the
// catalog/ledger reads callers need around them.
type Handler struct {
	catalog    catalog.Repository
	coupons    coupon.Repository
	customers  customer.Repository
	evaluator  *coupon.Evaluator
	settlement *settlement.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cat catalog.Repository,
	coupons coupon.Repository,
	customers customer.Repository,
	evaluator *coupon.Evaluator,
	settlementSvc *settlement.Service,
) *Handler {
	return &Handler{
		catalog:    cat,
		coupons:    coupons,
		customers:  customers,
		evaluator:  evaluator,
		settlement: settlementSvc,
	}
}

// Register mounts all API routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/checkout/coupon", h.EvaluateCoupon)
	mux.HandleFunc("POST /api/checkout/settle", h.Settle)
	mux.HandleFunc("GET /api/coupons/auto-apply", h.ListAutoApplyCoupons)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/services", h.ListServices)
	mux.HandleFunc("GET /api/customers/{id}/ledger", h.CustomerLedger)
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeInternal logs the error and responds with a generic retry message;
// settlement failures are expected to be rare and transient, and the
// response must not leak which concurrent transaction caused a conflict.
func writeInternal(ctx context.Context, w http.ResponseWriter, err error) {
	zctx.From(ctx).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "checkout failed, please retry")
}

// itemRequest is one cart line reference; prices and metadata come from
// the catalog, never from the client.
type itemRequest struct {
	ItemType  string `json:"itemType"`
	ProductID string `json:"productId,omitempty"`
	ServiceID string `json:"serviceId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// buildCart resolves item references against the catalog into priced cart
// lines.
func (h *Handler) buildCart(ctx context.Context, items []itemRequest) ([]cart.Item, error) {
	out := make([]cart.Item, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &badRequestError{message: "quantity must be greater than 0"}
		}
		switch cart.ItemType(item.ItemType) {
		case cart.ItemProduct:
			p, err := h.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return nil, &badRequestError{message: "product " + item.ProductID + " not found"}
				}
				return nil, err
			}
			out = append(out, cart.Item{
				Type:            cart.ItemProduct,
				ProductID:       p.ID,
				SKU:             p.SKU,
				CategoryID:      p.CategoryID,
				Name:            p.Name,
				UnitPrice:       p.Price,
				Quantity:        item.Quantity,
				Taxable:         p.Taxable,
				LoyaltyEligible: p.LoyaltyEligible,
			})
		case cart.ItemService:
			s, err := h.catalog.GetService(ctx, item.ServiceID)
			if err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return nil, &badRequestError{message: "service " + item.ServiceID + " not found"}
				}
				return nil, err
			}
			out = append(out, cart.Item{
				Type:            cart.ItemService,
				ServiceID:       s.ID,
				CategoryID:      s.CategoryID,
				Name:            s.Name,
				UnitPrice:       s.Price,
				Quantity:        item.Quantity,
				Taxable:         s.Taxable,
				LoyaltyEligible: true,
			})
		default:
			return nil, &badRequestError{message: "unknown item type: " + item.ItemType}
		}
	}
	return out, nil
}

// loadCustomer returns nil for an empty id (walk-in checkout).
func (h *Handler) loadCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	if id == "" {
		return nil, nil
	}
	c, err := h.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, &badRequestError{message: "customer " + id + " not found"}
		}
		return nil, err
	}
	return c, nil
}

// badRequestError marks validation failures mapped to 422 responses.
type badRequestError struct {
	message string
}

func (e *badRequestError) Error() string { return e.message }

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func decimalString(d decimal.Decimal) string {
	return d.StringFixed(2)
}
