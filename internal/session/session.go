// Package session holds per-conversation state: the accumulated financial
// profile, the LLM-facing message history and the audit log of turns. Session
// IDs are opaque strings supplied by the caller; state lives for the process
// lifetime (or the store TTL) and is never shared across sessions.
package session

import (
	"time"

	"loan-advisor/internal/rules"
)

// State tracks where a session is in the advisory flow.
type State string

const (
	StateAwaitingInput     State = "AWAITING_INPUT"
	StateHasPartialProfile State = "HAS_PARTIAL_PROFILE"
	StateReadyForVerdict   State = "READY_FOR_VERDICT"
	StateVerdictReturned   State = "VERDICT_RETURNED"
)

// Message is one conversation entry passed to the response generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StageResult records one pipeline stage's outcome for a turn.
type StageResult struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Millis int64  `json:"millis"`
}

// Turn is one processed message, appended regardless of outcome.
type Turn struct {
	ID        string         `json:"id"`
	Input     string         `json:"input"`
	Intent    string         `json:"intent"`
	Extracted map[string]any `json:"extracted,omitempty"`
	Verdict   *rules.Verdict `json:"verdict,omitempty"`
	Response  string         `json:"response"`
	Stages    []StageResult  `json:"stages,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session owns exactly one profile and an ordered turn log.
type Session struct {
	ID      string        `json:"id"`
	State   State         `json:"state"`
	Profile rules.Profile `json:"profile"`
	History []Message     `json:"history"`
	Turns   []Turn        `json:"turns"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string) *Session {
	now := time.Now()
	return &Session{ID: id, State: StateAwaitingInput, CreatedAt: now, UpdatedAt: now}
}

// AddHistory appends a conversation message, keeping the window the response
// generator sees bounded.
func (s *Session) AddHistory(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
	if len(s.History) > 50 {
		s.History = s.History[len(s.History)-50:]
	}
}

// RecentHistory returns up to n trailing messages.
func (s *Session) RecentHistory(n int) []Message {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
