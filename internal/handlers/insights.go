package handlers

import (
	"net/http"

	"github.com/dimasprabowo/fintrack/internal/services/ai"
)

type insightResponse struct {
	Text      string `json:"text"`
	Bullets   string `json:"bullets"`
	Paragraph string `json:"paragraph"`
}

// Insights handles GET /api/insights
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	if !h.requireSessionUser(w, r) {
		return
	}

	text, err := h.tracker.Insights(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	bullets, paragraph := ai.SplitInsight(text)
	respondJSON(w, http.StatusOK, insightResponse{
		Text:      text,
		Bullets:   bullets,
		Paragraph: paragraph,
	})
}
