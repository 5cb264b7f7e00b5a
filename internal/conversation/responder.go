package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
	"github.com/wolfman30/urbanhaven-leadbot/internal/observability/metrics"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// ApologyMessage is returned whenever delegated generation fails.
const ApologyMessage = "I apologize, but I'm having trouble processing your request right now. Please try again or contact our support team."

const (
	ResponderModeTemplated = "templated"
	ResponderModeDelegated = "delegated"
)

// Turn is everything a responder needs to answer one message.
type Turn struct {
	SessionID     string
	Message       string
	Assessment    Assessment
	PreviousState State
	PreviousScore int
	// History is the window of messages before Message, oldest first.
	History []Message
}

// Reply is a responder's answer plus the assessment it reports to the caller.
type Reply struct {
	Text       string
	Intent     Intent
	Confidence float64
	NewState   State
	LeadScore  int
	Qualified  bool
	// Fallback marks the apology reply; the session keeps its pre-turn
	// state and score when set.
	Fallback bool
}

// Responder composes the agent's reply for a turn. Implementations never
// return an error; failures become the apology reply.
type Responder interface {
	Respond(ctx context.Context, turn Turn) Reply
}

func assessedReply(turn Turn, text string) Reply {
	a := turn.Assessment
	return Reply{
		Text:       text,
		Intent:     a.Intent,
		Confidence: a.Confidence,
		NewState:   a.NewState,
		LeadScore:  a.Score.Score,
		Qualified:  a.Score.Qualified,
	}
}

// FallbackReply is the apology answer. It reports the pre-turn state and
// score and is never qualified.
func FallbackReply(turn Turn) Reply {
	return Reply{
		Text:      ApologyMessage,
		Intent:    IntentError,
		NewState:  turn.PreviousState,
		LeadScore: turn.PreviousScore,
		Fallback:  true,
	}
}

// TemplateResponder answers from the canned reply table.
type TemplateResponder struct {
	templates *Templates
	metrics   *metrics.ConversationMetrics
}

func NewTemplateResponder(templates *Templates, m *metrics.ConversationMetrics) *TemplateResponder {
	if templates == nil {
		templates = NewTemplates(nil)
	}
	return &TemplateResponder{templates: templates, metrics: m}
}

func (r *TemplateResponder) Respond(_ context.Context, turn Turn) Reply {
	start := time.Now()
	a := turn.Assessment
	key := TemplateKeyFor(a.Intent, a.Profile, a.Score.Qualified)
	text, _ := r.templates.Lookup(a.Intent, key, a.Profile)
	r.metrics.ObserveGenerationLatency(ResponderModeTemplated, time.Since(start).Seconds())
	return assessedReply(turn, text)
}

// LLMResponderConfig bounds delegated generation.
type LLMResponderConfig struct {
	Model       string
	MaxTokens   int32
	Temperature float32
	Timeout     time.Duration
}

// LLMResponder delegates reply text to an LLMClient with a single attempt.
type LLMResponder struct {
	client  LLMClient
	kb      *knowledge.Base
	cfg     LLMResponderConfig
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics
}

func NewLLMResponder(client LLMClient, kb *knowledge.Base, cfg LLMResponderConfig, logger *logging.Logger, m *metrics.ConversationMetrics) *LLMResponder {
	if kb == nil {
		kb = knowledge.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &LLMResponder{client: client, kb: kb, cfg: cfg, logger: logger, metrics: m}
}

func (r *LLMResponder) Respond(ctx context.Context, turn Turn) (reply Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(turn, "panic", fmt.Errorf("llm client panic: %v", rec))
			reply = FallbackReply(turn)
		}
	}()

	if r.client == nil {
		r.fail(turn, "unconfigured", errors.New("no llm client configured"))
		return FallbackReply(turn)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.Complete(ctx, LLMRequest{
		Model:       r.cfg.Model,
		System:      []string{BuildSystemPrompt(r.kb, turn.Assessment)},
		Messages:    BuildChatMessages(turn.History, turn.Message),
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	r.metrics.ObserveGenerationLatency(ResponderModeDelegated, time.Since(start).Seconds())
	if err != nil {
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		r.fail(turn, reason, err)
		return FallbackReply(turn)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		r.fail(turn, "empty", errors.New("llm returned empty text"))
		return FallbackReply(turn)
	}
	return assessedReply(turn, text)
}

func (r *LLMResponder) fail(turn Turn, reason string, err error) {
	r.metrics.ObserveGenerationFailure(reason)
	r.logger.Warn("reply generation failed; sending apology",
		"session_id", turn.SessionID,
		"reason", reason,
		"error", err,
	)
}
