package analytics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// SessionLister is satisfied by every conversation.SessionStore.
type SessionLister interface {
	List(ctx context.Context) ([]*conversation.Session, error)
}

// Handler serves GET /analytics.
type Handler struct {
	sessions SessionLister
	logger   *logging.Logger
}

// NewHandler creates a new analytics handler.
func NewHandler(sessions SessionLister, logger *logging.Logger) *Handler {
	if sessions == nil {
		panic("analytics: session lister required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sessions: sessions, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sessions for analytics", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to fetch analytics"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Summarize(sessions))
}
