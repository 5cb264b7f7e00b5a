package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// TurnService is the part of Engine the HTTP layer needs.
type TurnService interface {
	HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// Handler serves the chat endpoints.
type Handler struct {
	service TurnService
	logger  *logging.Logger
}

func NewHandler(service TurnService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.HandleTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetSession handles GET /session/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("failed to fetch session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
