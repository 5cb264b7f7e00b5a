package leads

import (
	"context"
	"time"

	"github.com/wolfman30/urbanhaven-leadbot/internal/observability/metrics"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

const defaultNotifyTimeout = 10 * time.Second

// Notifier announces a newly created lead to a human.
type Notifier interface {
	NotifyNewLead(ctx context.Context, lead *Lead) error
}

// IntakeOption customizes an Intake.
type IntakeOption func(*Intake)

// WithNotifier sets the collaborator told about every new lead.
func WithNotifier(n Notifier) IntakeOption {
	return func(i *Intake) {
		i.notifier = n
	}
}

// WithMetrics records lead creation and notification outcomes.
func WithMetrics(m *metrics.ConversationMetrics) IntakeOption {
	return func(i *Intake) {
		i.metrics = m
	}
}

// WithNotifyTimeout bounds the single notification attempt.
func WithNotifyTimeout(d time.Duration) IntakeOption {
	return func(i *Intake) {
		if d > 0 {
			i.notifyTimeout = d
		}
	}
}

// Intake validates, persists and announces leads. A lead is stored exactly
// once per successful Submit; notification is best effort.
type Intake struct {
	repo          Repository
	notifier      Notifier
	metrics       *metrics.ConversationMetrics
	logger        *logging.Logger
	notifyTimeout time.Duration
}

// NewIntake wires the repository used for persistence.
func NewIntake(repo Repository, logger *logging.Logger, opts ...IntakeOption) *Intake {
	if repo == nil {
		panic("leads: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	i := &Intake{
		repo:          repo,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Submit stores a new lead. Validation failures return ErrInvalidName or
// ErrMissingEmail. A failed notification never fails the submission.
func (i *Intake) Submit(ctx context.Context, req CreateLeadRequest) (*Lead, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead, err := i.repo.Create(ctx, &req)
	if err != nil {
		return nil, err
	}
	i.metrics.ObserveLeadCreated(lead.Source)
	i.logger.Info("lead created", "lead_id", lead.ID, "source", lead.Source)

	i.notify(ctx, lead)
	return lead, nil
}

// Get returns one lead or ErrLeadNotFound.
func (i *Intake) Get(ctx context.Context, id string) (*Lead, error) {
	if id == "" {
		return nil, ErrLeadNotFound
	}
	return i.repo.GetByID(ctx, id)
}

// List returns every lead, newest first.
func (i *Intake) List(ctx context.Context) ([]*Lead, error) {
	return i.repo.List(ctx)
}

func (i *Intake) notify(ctx context.Context, lead *Lead) {
	if i.notifier == nil {
		i.metrics.ObserveNotification("skipped")
		return
	}

	// the lead is already stored; a client disconnect must not cancel the email
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.notifyTimeout)
	defer cancel()

	if err := i.notifier.NotifyNewLead(notifyCtx, lead); err != nil {
		i.metrics.ObserveNotification("failed")
		i.logger.Warn("lead notification failed", "lead_id", lead.ID, "error", err)
		return
	}
	i.metrics.ObserveNotification("sent")
}
