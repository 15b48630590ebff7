package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/lumapos/checkout/internal/domain/catalog"
	"github.com/lumapos/checkout/internal/domain/customer"
)

type productResponse struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	CategoryID      string `json:"categoryId"`
	Price           string `json:"price"`
	Taxable         bool   `json:"taxable"`
	LoyaltyEligible bool   `json:"loyaltyEligible"`
	QuantityOnHand  int    `json:"quantityOnHand"`
}

type serviceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	CategoryID      string `json:"categoryId"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"durationMinutes"`
	Taxable         bool   `json:"taxable"`
}

// ListProducts returns the retail catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		writeInternal(r.Context(), w, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListServices returns the bookable service catalog.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListServices(r.Context())
	if err != nil {
		writeInternal(r.Context(), w, err)
		return
	}

	out := make([]serviceResponse, len(services))
	for i, s := range services {
		out[i] = serviceResponse{
			ID:              s.ID,
			Name:            s.Name,
			CategoryID:      s.CategoryID,
			Price:           decimalString(s.Price),
			DurationMinutes: s.DurationMinutes,
			Taxable:         s.Taxable,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type ledgerRowResponse struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId,omitempty"`
	Action        string `json:"action"`
	PointsChange  int64  `json:"pointsChange"`
	PointsBalance int64  `json:"pointsBalance"`
	Description   string `json:"description"`
	CreatedAt     string `json:"createdAt"`
}

// CustomerLedger returns a customer's loyalty ledger, newest first. The
// reconciliation job compares the newest snapshot against the cached
// balance.
func (h *Handler) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if _, err := h.customers.GetByID(ctx, id); err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		writeInternal(ctx, w, err)
		return
	}

	entries, err := h.customers.ListLedger(ctx, id)
	if err != nil {
		writeInternal(ctx, w, err)
		return
	}

	out := make([]ledgerRowResponse, len(entries))
	for i, e := range entries {
		out[i] = ledgerRowResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			Action:        string(e.Action),
			PointsChange:  e.PointsChange,
			PointsBalance: e.PointsBalance,
			Description:   e.Description,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:              p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		CategoryID:      p.CategoryID,
		Price:           decimalString(p.Price),
		Taxable:         p.Taxable,
		LoyaltyEligible: p.LoyaltyEligible,
		QuantityOnHand:  p.QuantityOnHand,
	}
}
