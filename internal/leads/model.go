package leads

import (
	"strings"
	"time"
)

const (
	// DefaultSource tags leads that arrive without an explicit origin.
	DefaultSource = "chatbot"
	// StatusNew is the status of every freshly created lead.
	StatusNew = "new"
)

// Lead is a durable record of a visitor worth contacting. It outlives the
// chat session it may have come from.
type Lead struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	PropertyInterest string    `json:"propertyInterest,omitempty"`
	Budget           string    `json:"budget,omitempty"`
	Location         string    `json:"location,omitempty"`
	Message          string    `json:"message,omitempty"`
	Source           string    `json:"source"`
	SessionID        string    `json:"sessionId,omitempty"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PropertyInterest string `json:"propertyInterest"`
	Budget           string `json:"budget"`
	Location         string `json:"location"`
	Message          string `json:"message"`
	Source           string `json:"source"`

	// SessionID links a chatbot lead to its conversation. Form submissions
	// never set it.
	SessionID string `json:"-"`
}

// Normalize trims every field and fills in the default source.
func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.PropertyInterest = strings.TrimSpace(r.PropertyInterest)
	r.Budget = strings.TrimSpace(r.Budget)
	r.Location = strings.TrimSpace(r.Location)
	r.Message = strings.TrimSpace(r.Message)
	r.Source = strings.TrimSpace(r.Source)
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.Source == "" {
		r.Source = DefaultSource
	}
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

func newLead(id string, req *CreateLeadRequest, createdAt time.Time) *Lead {
	return &Lead{
		ID:               id,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PropertyInterest: req.PropertyInterest,
		Budget:           req.Budget,
		Location:         req.Location,
		Message:          req.Message,
		Source:           req.Source,
		SessionID:        req.SessionID,
		Status:           StatusNew,
		CreatedAt:        createdAt,
	}
}
