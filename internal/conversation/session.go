package conversation

import (
	"sort"
	"time"
)

// State is a conversation state. The set is closed; see the State* constants.
type State string

const (
	StateGreeting          State = "greeting"
	StateGatheringInfo     State = "gathering_info"
	StateQualifyingLead    State = "qualifying_lead"
	StateProvidingInfo     State = "providing_info"
	StateScheduling        State = "scheduling"
	StateCollectingContact State = "collecting_contact"
	StateFollowUp          State = "follow_up"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateGreeting, StateGatheringInfo, StateQualifyingLead, StateProvidingInfo,
		StateScheduling, StateCollectingContact, StateFollowUp:
		return true
	}
	return false
}

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is one entry of a session transcript.
type Message struct {
	Sender     Sender    `json:"sender"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Intent     Intent    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence"`
}

// Profile holds the facts learned about the visitor. Fields are set once;
// extraction only fills blanks (see MergeProfile).
type Profile struct {
	Name             string `json:"name,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	PropertyInterest string `json:"propertyInterest,omitempty"`
	Budget           string `json:"budget,omitempty"`
	Location         string `json:"location,omitempty"`
	Urgency          string `json:"urgency,omitempty"`
	Timeline         string `json:"timeline,omitempty"`
}

// Context is the running assessment of a session.
type Context struct {
	LastIntent      Intent   `json:"lastIntent,omitempty"`
	MentionedTopics []string `json:"mentionedTopics"`
	LeadScore       int      `json:"leadScore"`
	Qualified       bool     `json:"qualified"`
	// LeadID is set once the session has been handed off as a lead.
	LeadID string `json:"leadId,omitempty"`
}

// Session is the versioned conversation aggregate persisted by a SessionStore.
type Session struct {
	ID           string    `json:"sessionId"`
	Messages     []Message `json:"messages"`
	CurrentState State     `json:"currentState"`
	Profile      Profile   `json:"userInfo"`
	Context      Context   `json:"conversationContext"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewSession builds an unsaved session (version 0) in the given state.
func NewSession(id string, initial State, now time.Time) *Session {
	if !initial.Valid() {
		initial = StateGreeting
	}
	return &Session{
		ID:           id,
		Messages:     []Message{},
		CurrentState: initial,
		Context:      Context{MentionedTopics: []string{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy so callers can build the next version without
// touching the loaded one.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Context.MentionedTopics = append([]string(nil), s.Context.MentionedTopics...)
	return &out
}

// RecentMessages returns at most n of the latest messages, oldest first.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	start := len(s.Messages) - n
	if start < 0 {
		start = 0
	}
	return append([]Message(nil), s.Messages[start:]...)
}

// AddTopic records an intent label in MentionedTopics, keeping the set sorted.
func (s *Session) AddTopic(topic string) {
	if topic == "" {
		return
	}
	idx := sort.SearchStrings(s.Context.MentionedTopics, topic)
	if idx < len(s.Context.MentionedTopics) && s.Context.MentionedTopics[idx] == topic {
		return
	}
	s.Context.MentionedTopics = append(s.Context.MentionedTopics, "")
	copy(s.Context.MentionedTopics[idx+1:], s.Context.MentionedTopics[idx:])
	s.Context.MentionedTopics[idx] = topic
}
