package handlers

import (
	"net/http"
	"time"

	"github.com/dimasprabowo/fintrack/internal/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.tracker.Register(req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
	Expires time.Time    `json:"expires"`
}

// Login handles POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.tracker.Login(req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{
		User:    result.User,
		Token:   result.Token,
		Expires: result.Expires,
	})
}

// Logout handles POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	h.tracker.Logout()
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword handles POST /api/change-password. All sessions are
// invalidated; the client has to log in again.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.tracker.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
