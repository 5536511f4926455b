package handlers

import (
	"net/http"

	"github.com/dimasprabowo/fintrack/internal/models"
	"github.com/dimasprabowo/fintrack/internal/services/analytics"
	"github.com/google/uuid"
)

type transactionRequest struct {
	Title    string `json:"title"`
	Amount   string `json:"amount"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

// CreateTransaction handles POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.tracker.AddTransaction(req.Title, req.Amount, models.Kind(req.Kind), req.Category, req.Date)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.tracker.UpdateTransaction(id, req.Title, req.Amount, models.Kind(req.Kind), req.Category, req.Date); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transaction id"})
		return
	}

	if err := h.tracker.DeleteTransaction(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportTransactions handles POST /api/transactions/import. The request
// body is the raw CSV file.
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	result, err := h.tracker.ImportTransactions(r.Body)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"imported": len(result.Rows),
		"skipped":  result.Errors,
	})
}

// ListTransactions handles GET /api/transactions. Optional query
// parameters from, to, kind and category narrow the returned list; the
// snapshot itself is untouched.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	q := analytics.Query{
		DateFrom: r.URL.Query().Get("from"),
		DateTo:   r.URL.Query().Get("to"),
		Kind:     r.URL.Query().Get("kind"),
		Category: r.URL.Query().Get("category"),
	}
	respondJSON(w, http.StatusOK, h.tracker.Filtered(q))
}

// State handles GET /api/state, exposing the full view tuple
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	respondJSON(w, http.StatusOK, h.tracker.State())
}

// ClearError handles POST /api/state/clear-error
func (h *Handler) ClearError(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	h.tracker.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// Categories handles GET /api/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.Categories)
}
