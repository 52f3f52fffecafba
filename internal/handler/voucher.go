package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

type voucherCheckResponse struct {
	Code       string          `json:"code"`
	Applicable bool            `json:"applicable"`
	Discount   decimal.Decimal `json:"discount"`
	Reason     string          `json:"reason,omitempty"`
}

// CheckVoucher evaluates a voucher code against a subtotal without reserving
// it. An unknown or rejected code is a 200 with Applicable=false; only a
// malformed subtotal is a client error.
func (h *Handler) CheckVoucher(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	subtotal, err := decimal.NewFromString(r.URL.Query().Get("subtotal"))
	if err != nil || subtotal.IsNegative() {
		respondError(w, http.StatusBadRequest, "subtotal must be a non-negative number")
		return
	}

	eval, err := h.vouchers.Check(r.Context(), code, subtotal)
	if err != nil {
		respondDomainError(w, r, errors.Wrapf(err, "check voucher %s", code))
		return
	}

	respondJSON(w, http.StatusOK, voucherCheckResponse{
		Code:       code,
		Applicable: eval.Applicable,
		Discount:   eval.Amount,
		Reason:     eval.Reason,
	})
}
