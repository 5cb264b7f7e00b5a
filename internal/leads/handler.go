package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// Service is the slice of Intake the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, req CreateLeadRequest) (*Lead, error)
	Get(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context) ([]*Lead, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("leads: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// SubmitLeadResponse is returned after a lead form submission.
type SubmitLeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LeadID  string `json:"leadId"`
}

// CreateLead handles POST /leads requests
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode lead request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lead, err := h.service.Submit(r.Context(), req)
	if err != nil {
		if IsValidationError(err) {
			writeError(w, http.StatusBadRequest, "Name and email are required")
			return
		}
		h.logger.Error("lead submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to submit lead")
		return
	}

	writeJSON(w, http.StatusOK, SubmitLeadResponse{
		Success: true,
		Message: "Lead submitted successfully",
		LeadID:  lead.ID,
	})
}

// ListLeads handles GET /leads requests
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch leads")
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

// GetLead handles GET /leads/{leadID} requests
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.service.Get(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.logger.Error("failed to fetch lead", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch lead")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
