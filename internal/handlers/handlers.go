// Package handlers provides the JSON API over the tracker actions
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dimasprabowo/fintrack/internal/services/ai"
	"github.com/dimasprabowo/fintrack/internal/services/auth"
	"github.com/dimasprabowo/fintrack/internal/middleware"
	"github.com/dimasprabowo/fintrack/internal/services/importer"
	"github.com/dimasprabowo/fintrack/internal/storage"
	"github.com/dimasprabowo/fintrack/internal/tracker"
	"github.com/rs/zerolog"
)

// Handler contains all HTTP handlers and dependencies
type Handler struct {
	tracker *tracker.Tracker
	log     zerolog.Logger
}

// New creates a new handler
func New(t *tracker.Tracker, log zerolog.Logger) *Handler {
	return &Handler{tracker: t, log: log}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps domain errors onto HTTP status codes
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrValidation),
		errors.Is(err, tracker.ErrValidation),
		errors.Is(err, tracker.ErrInvalidAmount),
		errors.Is(err, tracker.ErrInvalidDate),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrUnknownFormat),
		errors.Is(err, importer.ErrNoData):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, tracker.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
	case errors.Is(err, ai.ErrGeneration):
		status = http.StatusBadGateway
	}
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// requireSessionUser checks that the bearer-token user placed in the
// request context by the auth middleware is the user the session is
// currently bound to. The tracker acts on the session user, so a valid
// token for anyone else must not reach it.
func (h *Handler) requireSessionUser(w http.ResponseWriter, r *http.Request) bool {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return false
	}

	current := h.tracker.State().User
	if current == nil || current.ID != user.ID {
		h.log.Warn().Str("token_user", user.ID.String()).Msg("token user does not match session user")
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "session belongs to a different user"})
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
