package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/bazarly/storefront/internal/domain/order"
	"github.com/bazarly/storefront/internal/domain/product"
	"github.com/bazarly/storefront/internal/domain/shipping"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written; nothing to do about encode errors
	// beyond abandoning the body.
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string, details ...string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message, Details: details})
}

// respondDomainError maps expected domain failures to client errors and logs
// everything else as an internal error with a generic message. Internal detail
// never leaks to the client.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *order.ValidationError
	if errors.As(err, &vErr) {
		respondError(w, http.StatusUnprocessableEntity, "checkout request is invalid", vErr.Problems...)
		return
	}

	var pfErr *order.PartialFanoutError
	if errors.As(err, &pfErr) {
		// Rows survived a failed fan-out. The client must not retry blindly,
		// so this is reported distinctly from a clean failure.
		zctx.From(r.Context()).Error("Partial fan-out", zap.Error(err))
		respondError(w, http.StatusInternalServerError,
			"order was not fully created; contact support before retrying")
		return
	}

	switch {
	case errors.Is(err, shipping.ErrInvalidZone):
		respondError(w, http.StatusBadRequest, "delivery zone must be \"inside\" or \"outside\"")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, "product not found")
	case errors.Is(err, order.ErrCustomerNotFound):
		respondError(w, http.StatusUnprocessableEntity, "customer not found")
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields so typos in
// client payloads fail loudly instead of being silently dropped.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
