package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// LeadSubject is the subject line of every new-lead email.
const LeadSubject = "New Lead from Chatbot"

// LeadNotifier emails the sales inbox whenever a lead is created.
type LeadNotifier struct {
	sender     EmailSender
	adminEmail string
	logger     *logging.Logger
}

// NewLeadNotifier returns a notifier delivering to adminEmail through sender.
func NewLeadNotifier(sender EmailSender, adminEmail string, logger *logging.Logger) *LeadNotifier {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{
		sender:     sender,
		adminEmail: strings.TrimSpace(adminEmail),
		logger:     logger,
	}
}

// NotifyNewLead sends one email describing lead.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, lead *leads.Lead) error {
	if lead == nil {
		return errors.New("notify: lead required")
	}
	if n.adminEmail == "" {
		return errors.New("notify: admin email not configured")
	}

	msg := EmailMessage{
		To:          n.adminEmail,
		ReplyTo:     lead.Email,
		ReplyToName: lead.Name,
		Subject:     LeadSubject,
		Body:        LeadText(lead),
		HTML:        LeadHTML(lead),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead %s: %w", lead.ID, err)
	}
	n.logger.Info("lead notification sent", "lead_id", lead.ID)
	return nil
}

// LeadHTML renders the notification body. Every interpolated value is escaped.
func LeadHTML(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("<h2>New Lead Generated</h2>\n")
	for _, f := range leadFields(lead) {
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>\n", f.label, html.EscapeString(f.value))
	}
	return b.String()
}

// LeadText is the plain-text alternative of LeadHTML.
func LeadText(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("New Lead Generated\n\n")
	for _, f := range leadFields(lead) {
		fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
	}
	return b.String()
}

type leadField struct {
	label string
	value string
}

func leadFields(lead *leads.Lead) []leadField {
	return []leadField{
		{"Name", lead.Name},
		{"Email", lead.Email},
		{"Phone", orDefault(lead.Phone, "Not provided")},
		{"Property Interest", orDefault(lead.PropertyInterest, "Not specified")},
		{"Budget", orDefault(lead.Budget, "Not specified")},
		{"Location", orDefault(lead.Location, "Not specified")},
		{"Message", orDefault(lead.Message, "No additional message")},
		{"Date", lead.CreatedAt.Format(time.RFC1123)},
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
