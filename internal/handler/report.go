package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
)

// reportDateLayout is the accepted format for range query parameters.
const reportDateLayout = "2006-01-02"

// RangeReport aggregates orders created within [from, to]. Both query
// parameters are required, dates only; the end date is inclusive through end
// of day.
func (h *Handler) RangeReport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(reportDateLayout, r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be a YYYY-MM-DD date")
		return
	}
	to, err := time.Parse(reportDateLayout, r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be a YYYY-MM-DD date")
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	// Include the whole final day.
	end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)

	rep, err := h.reports.Range(r.Context(), from, end)
	if err != nil {
		respondDomainError(w, r, errors.Wrap(err, "build report"))
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// MonthlyReport returns the report for one calendar month, serving a stored
// snapshot when available.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if _, err := time.Parse("2006-01", month); err != nil {
		respondError(w, http.StatusBadRequest, "month must be in YYYY-MM format")
		return
	}

	rep, err := h.reports.Monthly(r.Context(), month)
	if err != nil {
		respondDomainError(w, r, errors.Wrapf(err, "monthly report %s", month))
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
