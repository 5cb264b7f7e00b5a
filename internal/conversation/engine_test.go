package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

type stubLLM struct {
	mu    sync.Mutex
	text  string
	err   error
	delay time.Duration
	reqs  []LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return LLMResponse{}, ctx.Err()
		}
	}
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text}, nil
}

type stubSubmitter struct {
	calls []LeadHandoff
	err   error
}

func (s *stubSubmitter) SubmitLead(_ context.Context, h LeadHandoff) (string, error) {
	s.calls = append(s.calls, h)
	if s.err != nil {
		return "", s.err
	}
	return "lead-1", nil
}

type failingStore struct {
	*MemoryStore
	findErr error
	saveErr error
}

func (s *failingStore) Find(ctx context.Context, id string) (*Session, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.Find(ctx, id)
}

func (s *failingStore) Save(ctx context.Context, sess *Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, sess)
}

func newTemplatedEngine(store SessionStore, opts ...EngineOption) *Engine {
	return NewEngine(store, NewTemplateResponder(NewTemplates(knowledge.Default()), nil), logging.Default(), opts...)
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	store := NewMemoryStore()
	engine := newTemplatedEngine(store)

	for _, msg := range []string{"", "   \n"} {
		if _, err := engine.HandleTurn(context.Background(), TurnRequest{Message: msg, SessionID: "s"}); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("expected ErrEmptyMessage for %q, got %v", msg, err)
		}
	}
	if all, _ := store.List(context.Background()); len(all) != 0 {
		t.Fatalf("empty message must not create a session")
	}
}

func TestHandleTurnTemplatedFlow(t *testing.T) {
	store := NewMemoryStore()
	engine := newTemplatedEngine(store)
	ctx := context.Background()

	res, err := engine.HandleTurn(ctx, TurnRequest{Message: "How much does it cost?", SessionID: "visitor-1"})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.Intent != IntentPricing || res.NewState != StateGreeting {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Response, "I'd be happy to help you understand our pricing!") {
		t.Fatalf("expected general pricing template, got %q", res.Response)
	}

	res, err = engine.HandleTurn(ctx, TurnRequest{Message: "I want to buy, interested in a house downtown, budget $600k, need it asap", SessionID: "visitor-1"})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.Intent != IntentLeadQualification || !res.Qualified || res.LeadScore != 65 {
		t.Fatalf("expected qualified lead_qualification turn, got %+v", res)
	}
	if res.NewState != StateCollectingContact {
		t.Fatalf("expected collecting_contact, got %s", res.NewState)
	}
	if res.UserInfo.Budget != "$600k" || res.UserInfo.PropertyInterest != "house" {
		t.Fatalf("unexpected profile %+v", res.UserInfo)
	}
	if res.Response != DefaultReply {
		t.Fatalf("lead_qualification has no templates, expected default reply, got %q", res.Response)
	}

	sess, err := engine.GetSession(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(sess.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sess.Messages))
	}
	if sess.Messages[2].Sender != SenderUser || sess.Messages[2].Intent != IntentLeadQualification {
		t.Fatalf("unexpected user message %+v", sess.Messages[2])
	}
	if sess.Messages[3].Sender != SenderAgent {
		t.Fatalf("expected agent reply last, got %+v", sess.Messages[3])
	}
	if sess.Context.LastIntent != IntentLeadQualification || !sess.Context.Qualified || sess.Version != 2 {
		t.Fatalf("unexpected context %+v version=%d", sess.Context, sess.Version)
	}
	want := []string{"lead_qualification", "pricing"}
	if strings.Join(sess.Context.MentionedTopics, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected topics %v", sess.Context.MentionedTopics)
	}
}

func TestHandleTurnGeneratesSessionID(t *testing.T) {
	engine := newTemplatedEngine(NewMemoryStore())
	engine.newID = func() string { return "generated-id" }

	res, err := engine.HandleTurn(context.Background(), TurnRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if res.SessionID != "generated-id" {
		t.Fatalf("expected generated id, got %s", res.SessionID)
	}
	if res.Intent != IntentGeneral || res.Response != DefaultReply {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHandleTurnDelegatedPromptAndHistory(t *testing.T) {
	llm := &stubLLM{text: "Houses run $250,000 - $800,000. What's your budget?"}
	responder := NewLLMResponder(llm, knowledge.Default(), LLMResponderConfig{Model: "model-x", Temperature: 0.7}, logging.Default(), nil)
	engine := NewEngine(NewMemoryStore(), responder, logging.Default(), WithHistoryWindow(2))
	ctx := context.Background()

	for _, msg := range []string{"hello", "tell me about houses"} {
		if _, err := engine.HandleTurn(ctx, TurnRequest{Message: msg, SessionID: "d"}); err != nil {
			t.Fatalf("turn %q: %v", msg, err)
		}
	}
	res, err := engine.HandleTurn(ctx, TurnRequest{Message: "how much does a house cost?", SessionID: "d"})
	if err != nil {
		t.Fatalf("turn 3: %v", err)
	}
	if res.Response != llm.text || res.Intent != IntentPricing {
		t.Fatalf("unexpected result %+v", res)
	}

	req := llm.reqs[len(llm.reqs)-1]
	if req.Model != "model-x" || req.MaxTokens != 400 {
		t.Fatalf("unexpected request settings %+v", req)
	}
	// two history messages plus the new user message
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 chat messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != ChatRoleUser || req.Messages[1].Role != ChatRoleAssistant {
		t.Fatalf("unexpected roles %+v", req.Messages)
	}
	if req.Messages[2].Content != "how much does a house cost?" {
		t.Fatalf("expected new message last, got %+v", req.Messages[2])
	}
	system := req.System[0]
	for _, want := range []string{
		"You are Emily, an AI real estate agent for UrbanHaven.",
		"Current conversation state: greeting",
		"User intent: pricing (confidence: 0.29)",
		"Lead score: 20/100",
		`"propertyInterest":"house"`,
		"- Property types: Apartments ($150k-$400k), Houses ($250k-$800k), Luxury ($500k-$2M+)",
		"6. When lead score reaches 50+, politely ask for contact information",
		"Current user preferences: Property: house",
	} {
		if !strings.Contains(system, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, system)
		}
	}
}

func TestHandleTurnFallbackKeepsPreTurnAssessment(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Seed a qualified session with the templated engine.
	seed := newTemplatedEngine(store)
	if _, err := seed.HandleTurn(ctx, TurnRequest{Message: "I want to buy, interested in a house downtown, budget $600k, need it asap", SessionID: "f"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	llm := &stubLLM{err: errors.New("upstream 503")}
	engine := NewEngine(store, NewLLMResponder(llm, nil, LLMResponderConfig{}, logging.Default(), nil), logging.Default())
	res, err := engine.HandleTurn(ctx, TurnRequest{Message: "I'd like to schedule a visit, my email is a@b.co", SessionID: "f"})
	if err != nil {
		t.Fatalf("fallback turn must not fail: %v", err)
	}
	if res.Response != ApologyMessage || res.Intent != IntentError || res.Confidence != 0 {
		t.Fatalf("expected apology payload, got %+v", res)
	}
	if res.NewState != StateCollectingContact || res.LeadScore != 65 || res.Qualified {
		t.Fatalf("expected pre-turn state/score and qualified=false, got %+v", res)
	}

	sess, _ := store.Find(ctx, "f")
	if sess.CurrentState != StateCollectingContact || sess.Context.LeadScore != 65 || !sess.Context.Qualified {
		t.Fatalf("fallback mutated assessment: %+v state=%s", sess.Context, sess.CurrentState)
	}
	if sess.Context.LastIntent != IntentError {
		t.Fatalf("expected lastIntent error, got %s", sess.Context.LastIntent)
	}
	if sess.Profile.Email != "a@b.co" {
		t.Fatalf("expected extracted email to be kept, got %+v", sess.Profile)
	}
	if len(sess.Messages) != 4 || sess.Messages[3].Content != ApologyMessage {
		t.Fatalf("expected apology appended, got %+v", sess.Messages)
	}
	if strings.Join(sess.Context.MentionedTopics, ",") != "appointment,lead_qualification" {
		t.Fatalf("expected classified intent recorded as a topic, got %v", sess.Context.MentionedTopics)
	}
}

func TestLLMResponderTimeout(t *testing.T) {
	llm := &stubLLM{text: "late", delay: time.Second}
	r := NewLLMResponder(llm, nil, LLMResponderConfig{Timeout: 10 * time.Millisecond}, logging.Default(), nil)
	sess := NewSession("t", StateScheduling, time.Now())
	turn := Turn{SessionID: "t", Message: "hi", Assessment: Assess(sess, "hi"), PreviousState: StateScheduling, PreviousScore: 30}

	reply := r.Respond(context.Background(), turn)
	if !reply.Fallback || reply.NewState != StateScheduling || reply.LeadScore != 30 {
		t.Fatalf("expected fallback on timeout, got %+v", reply)
	}
}

func TestLLMResponderEmptyAndNilClient(t *testing.T) {
	sess := NewSession("t", StateGreeting, time.Now())
	turn := Turn{SessionID: "t", Message: "hi", Assessment: Assess(sess, "hi"), PreviousState: StateGreeting}

	empty := NewLLMResponder(&stubLLM{text: "  "}, nil, LLMResponderConfig{}, nil, nil)
	if reply := empty.Respond(context.Background(), turn); !reply.Fallback {
		t.Fatalf("expected fallback for empty text, got %+v", reply)
	}
	unconfigured := NewLLMResponder(nil, nil, LLMResponderConfig{}, nil, nil)
	if reply := unconfigured.Respond(context.Background(), turn); !reply.Fallback || reply.Text != ApologyMessage {
		t.Fatalf("expected fallback without client, got %+v", reply)
	}
}

func TestHandleTurnStoreFailures(t *testing.T) {
	ctx := context.Background()

	findFails := newTemplatedEngine(&failingStore{MemoryStore: NewMemoryStore(), findErr: errors.New("redis down")})
	if _, err := findFails.HandleTurn(ctx, TurnRequest{Message: "hi", SessionID: "x"}); err == nil {
		t.Fatalf("expected load failure to surface")
	}

	saveFails := newTemplatedEngine(&failingStore{MemoryStore: NewMemoryStore(), saveErr: ErrVersionConflict})
	_, err := saveFails.HandleTurn(ctx, TurnRequest{Message: "hi", SessionID: "x"})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected wrapped version conflict, got %v", err)
	}
}

func TestHandleTurnHandsOffQualifiedLeadOnce(t *testing.T) {
	store := NewMemoryStore()
	submitter := &stubSubmitter{}
	engine := newTemplatedEngine(store, WithLeadSubmitter(submitter))
	ctx := context.Background()

	turns := []string{
		"I want to buy, interested in a house downtown, budget $600k, need it asap",
		"My name is Jane Doe and my email is jane@example.com",
		"Can you call me at 555-123-4567?",
	}
	for _, msg := range turns {
		if _, err := engine.HandleTurn(ctx, TurnRequest{Message: msg, SessionID: "h"}); err != nil {
			t.Fatalf("turn %q: %v", msg, err)
		}
	}

	if len(submitter.calls) != 1 {
		t.Fatalf("expected exactly one handoff, got %d", len(submitter.calls))
	}
	got := submitter.calls[0]
	if got.Name != "Jane Doe" || got.Email != "jane@example.com" || got.PropertyInterest != "house" || got.SessionID != "h" {
		t.Fatalf("unexpected handoff %+v", got)
	}
	if want := "Chatbot lead: house, budget $600k, downtown, timeline urgent"; got.Message != want {
		t.Fatalf("expected profile summary %q, got %q", want, got.Message)
	}
	sess, _ := store.Find(ctx, "h")
	if sess.Context.LeadID != "lead-1" {
		t.Fatalf("expected lead id recorded, got %q", sess.Context.LeadID)
	}
}

func TestLeadSummary(t *testing.T) {
	tests := []struct {
		profile Profile
		want    string
	}{
		{Profile{}, "Chatbot lead"},
		{Profile{Name: "Jane", Email: "jane@example.com"}, "Chatbot lead"},
		{Profile{PropertyInterest: "luxury", Location: "waterfront"}, "Chatbot lead: luxury, waterfront"},
		{Profile{Budget: "450k", Timeline: "3-6 months"}, "Chatbot lead: budget 450k, timeline 3-6 months"},
	}
	for _, tt := range tests {
		if got := LeadSummary(tt.profile); got != tt.want {
			t.Fatalf("LeadSummary(%+v) = %q, want %q", tt.profile, got, tt.want)
		}
	}
}

func TestHandleTurnHandoffFailureDoesNotFailTurn(t *testing.T) {
	submitter := &stubSubmitter{err: errors.New("smtp down")}
	engine := newTemplatedEngine(NewMemoryStore(), WithLeadSubmitter(submitter))

	_, err := engine.HandleTurn(context.Background(), TurnRequest{
		Message:   "I want to buy a house downtown for $600k asap. My name is Jane Doe, jane@example.com",
		SessionID: "h2",
	})
	if err != nil {
		t.Fatalf("handoff failure must not fail the turn: %v", err)
	}
	if len(submitter.calls) != 1 {
		t.Fatalf("expected one attempt, got %d", len(submitter.calls))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	engine := newTemplatedEngine(NewMemoryStore())
	if _, err := engine.GetSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
