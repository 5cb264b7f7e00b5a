package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

type stubTurnService struct {
	result  *TurnResult
	session *Session
	err     error
	lastReq TurnRequest
}

func (s *stubTurnService) HandleTurn(_ context.Context, req TurnRequest) (*TurnResult, error) {
	s.lastReq = req
	return s.result, s.err
}

func (s *stubTurnService) GetSession(_ context.Context, _ string) (*Session, error) {
	return s.session, s.err
}

func newSessionRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/chat", h.Chat)
	r.Get("/session/{sessionID}", h.GetSession)
	return r
}

func TestHandler_Chat_ReturnsTurnResult(t *testing.T) {
	svc := &stubTurnService{result: &TurnResult{
		Response:   "Great choice!",
		SessionID:  "abc",
		Intent:     IntentPricing,
		Confidence: 0.29,
		NewState:   StateGreeting,
		LeadScore:  20,
		UserInfo:   Profile{PropertyInterest: "house"},
	}}
	handler := NewHandler(svc, logging.Default())

	body, _ := json.Marshal(map[string]string{"message": "how much?", "sessionId": "abc"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newSessionRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.lastReq.Message != "how much?" || svc.lastReq.SessionID != "abc" {
		t.Fatalf("unexpected request %+v", svc.lastReq)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"response", "sessionId", "intent", "confidence", "newState", "leadScore", "qualified", "userInfo"} {
		if _, ok := resp[key]; !ok {
			t.Fatalf("response missing %q: %v", key, resp)
		}
	}
	if resp["intent"] != "pricing" || resp["newState"] != "greeting" {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestHandler_Chat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"invalid json", "{", nil, http.StatusBadRequest, "Invalid request body"},
		{"missing message", `{"sessionId":"abc"}`, ErrEmptyMessage, http.StatusBadRequest, "Message is required"},
		{"store failure", `{"message":"hi"}`, errors.New("redis down"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(&stubTurnService{err: tt.err}, logging.Default())
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newSessionRouter(handler).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.msg) {
				t.Fatalf("expected body to contain %q, got %s", tt.msg, w.Body.String())
			}
		})
	}
}

func TestHandler_Chat_EndToEndWithEngine(t *testing.T) {
	engine := newTemplatedEngine(NewMemoryStore())
	handler := NewHandler(engine, logging.Default())
	router := newSessionRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"Where is the downtown area?","sessionId":"e2e"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res TurnResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Intent != IntentLocation || res.UserInfo.Location != "downtown" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Response, "Downtown is an excellent choice!") {
		t.Fatalf("expected with_location template, got %q", res.Response)
	}

	req = httptest.NewRequest(http.MethodGet, "/session/e2e", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sess Session
	if err := json.NewDecoder(w.Body).Decode(&sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.ID != "e2e" || len(sess.Messages) != 2 || sess.Profile.Location != "downtown" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestHandler_GetSession_NotFound(t *testing.T) {
	handler := NewHandler(newTemplatedEngine(NewMemoryStore()), logging.Default())
	req := httptest.NewRequest(http.MethodGet, "/session/unknown", nil)
	w := httptest.NewRecorder()
	newSessionRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Session not found") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestHandler_GetSession_Failure(t *testing.T) {
	handler := NewHandler(&stubTurnService{err: errors.New("boom")}, logging.Default())
	req := httptest.NewRequest(http.MethodGet, "/session/x", nil)
	w := httptest.NewRecorder()
	newSessionRouter(handler).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
