package bootstrap

import (
	"context"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/urbanhaven-leadbot/internal/config"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// BuildLeadRepository selects the lead store named by LEAD_STORE. The
// returned close func releases resources owned by the repository.
func BuildLeadRepository(cfg *appconfig.Config, res Resources, logger *logging.Logger) (leads.Repository, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch kind := strings.ToLower(strings.TrimSpace(cfg.LeadStore)); kind {
	case "", StoreMemory:
		logger.Warn("using in-memory lead repository; leads are lost on restart")
		return leads.NewInMemoryRepository(), noop, nil
	case StorePostgres:
		if res.Pool == nil {
			return nil, noop, fmt.Errorf("bootstrap: LEAD_STORE=postgres requires DATABASE_URL")
		}
		logger.Info("using postgres lead repository")
		return leads.NewPostgresRepository(res.Pool), noop, nil
	case StoreSQLite:
		repo, err := leads.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: open sqlite lead store: %w", err)
		}
		logger.Info("using sqlite lead repository", "path", cfg.SQLitePath)
		return repo, repo.Close, nil
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown LEAD_STORE %q", cfg.LeadStore)
	}
}

// LeadHandoff lets the conversation engine create leads through intake.
type LeadHandoff struct {
	intake *leads.Intake
}

// NewLeadHandoff adapts intake to conversation.LeadSubmitter.
func NewLeadHandoff(intake *leads.Intake) *LeadHandoff {
	if intake == nil {
		panic("bootstrap: lead intake required")
	}
	return &LeadHandoff{intake: intake}
}

// SubmitLead creates a chatbot-sourced lead from a qualified session.
func (h *LeadHandoff) SubmitLead(ctx context.Context, handoff conversation.LeadHandoff) (string, error) {
	lead, err := h.intake.Submit(ctx, leads.CreateLeadRequest{
		Name:             handoff.Name,
		Email:            handoff.Email,
		Phone:            handoff.Phone,
		PropertyInterest: handoff.PropertyInterest,
		Budget:           handoff.Budget,
		Location:         handoff.Location,
		Message:          handoff.Message,
		Source:           leads.DefaultSource,
		SessionID:        handoff.SessionID,
	})
	if err != nil {
		return "", err
	}
	return lead.ID, nil
}

var _ conversation.LeadSubmitter = (*LeadHandoff)(nil)
