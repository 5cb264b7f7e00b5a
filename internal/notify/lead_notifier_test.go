package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func sampleLead() *leads.Lead {
	return &leads.Lead{
		ID:        "lead-1",
		Name:      "Dana <script>",
		Email:     "dana@example.com",
		Budget:    "$500k",
		Source:    leads.DefaultSource,
		Status:    leads.StatusNew,
		CreatedAt: time.Date(2026, 4, 1, 15, 4, 5, 0, time.UTC),
	}
}

func TestLeadNotifier_SendsToAdmin(t *testing.T) {
	sender := &captureSender{}
	notifier := NewLeadNotifier(sender, " sales@example.com ", nil)

	require.NoError(t, notifier.NotifyNewLead(context.Background(), sampleLead()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "sales@example.com", msg.To)
	assert.Equal(t, "dana@example.com", msg.ReplyTo)
	assert.Equal(t, "Dana <script>", msg.ReplyToName)
	assert.Equal(t, "New Lead from Chatbot", msg.Subject)
	assert.Contains(t, msg.HTML, "<h2>New Lead Generated</h2>")
	assert.Contains(t, msg.Body, "Budget: $500k")
}

func TestLeadHTML_PlaceholdersAndEscaping(t *testing.T) {
	body := LeadHTML(sampleLead())

	assert.Contains(t, body, "<p><strong>Name:</strong> Dana &lt;script&gt;</p>")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "<p><strong>Phone:</strong> Not provided</p>")
	assert.Contains(t, body, "<p><strong>Property Interest:</strong> Not specified</p>")
	assert.Contains(t, body, "<p><strong>Budget:</strong> $500k</p>")
	assert.Contains(t, body, "<p><strong>Location:</strong> Not specified</p>")
	assert.Contains(t, body, "<p><strong>Message:</strong> No additional message</p>")
	assert.Contains(t, body, "Wed, 01 Apr 2026 15:04:05 UTC")

	order := []string{"Name:", "Email:", "Phone:", "Property Interest:", "Budget:", "Location:", "Message:", "Date:"}
	last := -1
	for _, label := range order {
		idx := strings.Index(body, label)
		require.Greater(t, idx, last, "field %s out of order", label)
		last = idx
	}
}

func TestLeadNotifier_Errors(t *testing.T) {
	upstream := errors.New("quota exceeded")
	notifier := NewLeadNotifier(&captureSender{err: upstream}, "sales@example.com", nil)
	assert.ErrorIs(t, notifier.NotifyNewLead(context.Background(), sampleLead()), upstream)

	assert.Error(t, notifier.NotifyNewLead(context.Background(), nil))

	noAdmin := NewLeadNotifier(&captureSender{}, "", nil)
	assert.Error(t, noAdmin.NotifyNewLead(context.Background(), sampleLead()))
}

func TestNewLeadNotifier_PanicsWithoutSender(t *testing.T) {
	assert.Panics(t, func() { NewLeadNotifier(nil, "sales@example.com", nil) })
}
