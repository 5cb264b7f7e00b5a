package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/urbanhaven-leadbot/internal/observability/metrics"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

const defaultHistoryWindow = 10

// TurnRequest is one inbound visitor message.
type TurnRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// TurnResult is the reply and session metadata returned for a turn.
type TurnResult struct {
	Response   string  `json:"response"`
	SessionID  string  `json:"sessionId"`
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	NewState   State   `json:"newState"`
	LeadScore  int     `json:"leadScore"`
	Qualified  bool    `json:"qualified"`
	UserInfo   Profile `json:"userInfo"`
}

// LeadHandoff is what a qualified session hands to lead intake.
type LeadHandoff struct {
	SessionID        string
	Name             string
	Email            string
	Phone            string
	PropertyInterest string
	Budget           string
	Location         string
	Message          string
}

// LeadSubmitter creates a durable lead and returns its id.
type LeadSubmitter interface {
	SubmitLead(ctx context.Context, handoff LeadHandoff) (string, error)
}

// Engine runs chat turns against a SessionStore and a Responder.
type Engine struct {
	store         SessionStore
	responder     Responder
	leads         LeadSubmitter
	historyWindow int
	logger        *logging.Logger
	metrics       *metrics.ConversationMetrics
	tracer        trace.Tracer
	now           func() time.Time
	newID         func() string
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLeadSubmitter enables automatic lead handoff for qualified sessions.
func WithLeadSubmitter(s LeadSubmitter) EngineOption {
	return func(e *Engine) { e.leads = s }
}

// WithHistoryWindow sets how many prior messages feed the responder.
func WithHistoryWindow(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyWindow = n
		}
	}
}

func WithMetrics(m *metrics.ConversationMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func NewEngine(store SessionStore, responder Responder, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("conversation: session store cannot be nil")
	}
	if responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:         store,
		responder:     responder,
		historyWindow: defaultHistoryWindow,
		logger:        logger,
		tracer:        otel.Tracer("urbanhaven.internal.conversation"),
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleTurn loads or creates the session, assesses the message, composes a
// reply and persists the updated session. Nothing is saved unless the whole
// turn succeeds; a generation failure still completes with the apology reply.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = e.newID()
	}

	ctx, span := e.tracer.Start(ctx, "conversation.handle_turn")
	defer span.End()
	span.SetAttributes(attribute.String("chat.session_id", sessionID))

	current, err := e.store.Find(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		current, err = e.store.Create(ctx, sessionID, StateGreeting)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session %s: %w", sessionID, err)
	}

	assessment := Assess(current, msg)
	turn := Turn{
		SessionID:     sessionID,
		Message:       msg,
		Assessment:    assessment,
		PreviousState: current.CurrentState,
		PreviousScore: current.Context.LeadScore,
		History:       current.RecentMessages(e.historyWindow),
	}
	reply := e.responder.Respond(ctx, turn)

	next := e.apply(current, turn, reply)
	if !reply.Fallback {
		e.handoff(ctx, next)
	}

	if err := e.store.Save(ctx, next); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: save session %s: %w", sessionID, err)
	}

	span.SetAttributes(
		attribute.String("chat.intent", string(reply.Intent)),
		attribute.String("chat.state", string(next.CurrentState)),
		attribute.Int("chat.lead_score", next.Context.LeadScore),
	)
	e.metrics.ObserveTurn(string(assessment.Intent), string(next.CurrentState))
	if reply.Qualified && !current.Context.Qualified {
		e.metrics.ObserveQualified()
	}
	e.logger.Info("chat turn handled",
		"session_id", sessionID,
		"intent", reply.Intent,
		"confidence", reply.Confidence,
		"state", next.CurrentState,
		"lead_score", next.Context.LeadScore,
		"fallback", reply.Fallback,
	)

	return &TurnResult{
		Response:   reply.Text,
		SessionID:  sessionID,
		Intent:     reply.Intent,
		Confidence: reply.Confidence,
		NewState:   reply.NewState,
		LeadScore:  reply.LeadScore,
		Qualified:  reply.Qualified,
		UserInfo:   next.Profile,
	}, nil
}

// apply builds the next session version from the loaded one. State, score
// and qualification only move on a real reply; the fallback keeps the
// pre-turn values.
func (e *Engine) apply(current *Session, turn Turn, reply Reply) *Session {
	next := current.Clone()
	now := e.now().UTC()

	next.Profile = turn.Assessment.Profile
	next.Messages = append(next.Messages,
		Message{
			Sender:     SenderUser,
			Content:    turn.Message,
			Timestamp:  now,
			Intent:     turn.Assessment.Intent,
			Confidence: turn.Assessment.Confidence,
		},
		Message{
			Sender:     SenderAgent,
			Content:    reply.Text,
			Timestamp:  now,
			Intent:     reply.Intent,
			Confidence: reply.Confidence,
		},
	)
	next.Context.LastIntent = reply.Intent
	// the classified intent counts as a topic even when generation failed
	if classified := turn.Assessment.Intent; classified != IntentGeneral && classified != IntentError {
		next.AddTopic(string(classified))
	}
	if reply.Fallback {
		return next
	}

	next.CurrentState = reply.NewState
	next.Context.LeadScore = reply.LeadScore
	next.Context.Qualified = reply.Qualified
	return next
}

// handoff submits a lead once per session when it is qualified and carries a
// name and email. Failures are logged and retried on a later turn.
func (e *Engine) handoff(ctx context.Context, sess *Session) {
	if e.leads == nil || !sess.Context.Qualified || sess.Context.LeadID != "" || !sess.Profile.HasContact() {
		return
	}
	p := sess.Profile
	leadID, err := e.leads.SubmitLead(ctx, LeadHandoff{
		SessionID:        sess.ID,
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		PropertyInterest: p.PropertyInterest,
		Budget:           p.Budget,
		Location:         p.Location,
		Message:          LeadSummary(p),
	})
	if err != nil {
		e.logger.Error("lead handoff failed", "session_id", sess.ID, "error", err)
		return
	}
	sess.Context.LeadID = leadID
	e.logger.Info("lead handed off", "session_id", sess.ID, "lead_id", leadID)
}

// LeadSummary describes what the visitor told the chatbot, for example
// "Chatbot lead: house, budget $600k, downtown, timeline urgent".
func LeadSummary(p Profile) string {
	var parts []string
	if v := strings.TrimSpace(p.PropertyInterest); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(p.Budget); v != "" {
		parts = append(parts, "budget "+v)
	}
	if v := strings.TrimSpace(p.Location); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(p.Timeline); v != "" {
		parts = append(parts, "timeline "+v)
	}
	if len(parts) == 0 {
		return "Chatbot lead"
	}
	return "Chatbot lead: " + strings.Join(parts, ", ")
}

// GetSession returns the stored session or ErrSessionNotFound.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := e.store.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("conversation: load session %s: %w", sessionID, err)
	}
	return sess, nil
}

// ListSessions returns every stored session.
func (e *Engine) ListSessions(ctx context.Context) ([]*Session, error) {
	return e.store.List(ctx)
}
