package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/store"
)

// HealthHandler reports service health.
type HealthHandler struct {
	repo     store.Repository
	sessions *chat.Registry
	started  time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, sessions *chat.Registry) *HealthHandler {
	return &HealthHandler{repo: repo, sessions: sessions, started: time.Now()}
}

// RegisterHealth registers GET /health.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// Health pings the database and reports live session counts.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		JSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": "ok",
		"sessions": h.sessions.Len(),
		"uptime_s": int64(time.Since(h.started).Seconds()),
	})
}
