// Package session implements the session controller: it owns learner state,
// drives the question selector, analyses responses and records each
// interaction in working memory.
package session

import (
	"time"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/pkg/types"
)

// historyLimit is the number of recent topics kept per learner.
const historyLimit = 5

// Learner is the state carried across a learner's sessions. Level and
// Performance stay nil until provided or first measured.
type Learner struct {
	ID          string   `json:"learner_id"`
	Level       *float64 `json:"learner_level,omitempty"`
	Performance *float64 `json:"current_performance,omitempty"`
	History     []string `json:"learning_history"`
	Sessions    int      `json:"sessions"`
	Responses   int      `json:"responses"`
}

func (l *Learner) clone() Learner {
	out := *l
	out.Level = cloneFloat(l.Level)
	out.Performance = cloneFloat(l.Performance)
	out.History = append([]string(nil), l.History...)
	return out
}

// Interaction is one learner response within a session.
type Interaction struct {
	InquiryID string             `json:"inquiry_id"`
	Type      types.QuestionType `json:"question_type"`
	Response  string             `json:"response"`
	Analysis  Analysis           `json:"analysis"`
	EventID   string             `json:"event_id,omitempty"`
	At        time.Time          `json:"at"`
}

// Session is a snapshot of one tutoring session.
type Session struct {
	ID           string        `json:"session_id"`
	LearnerID    string        `json:"learner_id"`
	Topic        string        `json:"topic"`
	StartedAt    time.Time     `json:"start_time"`
	EndedAt      time.Time     `json:"end_time,omitempty"`
	Interactions []Interaction `json:"interactions"`
	Inquiries    []string      `json:"inquiries"`
	History      []string      `json:"learning_history"`
	Ended        bool          `json:"ended"`
}

// Prompt is a question presented to the learner.
type Prompt struct {
	InquiryID string `json:"inquiry_id"`
	inquiry.Question
}

// Outcome is the result of submitting a response.
type Outcome struct {
	InquiryID string             `json:"inquiry_id"`
	State     types.InquiryState `json:"state"`

	// FollowUp is set when the inquiry asks another question.
	FollowUp string   `json:"follow_up,omitempty"`
	Analysis Analysis `json:"analysis"`

	// Escape is set when the response answered an escape question.
	Escape *inquiry.EscapeAnalysis `json:"escape,omitempty"`

	// EventID is the working-memory event recording the interaction.
	EventID string `json:"event_id,omitempty"`
}

// Completed reports whether the inquiry finished.
func (o Outcome) Completed() bool {
	return o.State == types.InquiryCompleted
}

// Summary describes a finished session.
type Summary struct {
	SessionID    string                     `json:"session_id"`
	LearnerID    string                     `json:"learner_id"`
	Topics       []string                   `json:"topics"`
	StartedAt    time.Time                  `json:"start_time"`
	EndedAt      time.Time                  `json:"end_time"`
	Duration     time.Duration              `json:"duration"`
	Interactions int                        `json:"interactions"`
	Completed    int                        `json:"completed_inquiries"`
	Abandoned    int                        `json:"abandoned_inquiries"`
	Performance  float64                    `json:"final_performance"`
	Level        float64                    `json:"final_level"`
	TypeCounts   map[types.QuestionType]int `json:"question_types"`
}

// state is the controller's mutable record of a session.
type state struct {
	Session

	base         types.Context
	topics       []string
	pending      string
	triggers     []string
	signals      []types.Signal
	lastResponse string
	summary      *Summary
}

func (s *state) snapshot() Session {
	out := s.Session
	out.Interactions = append([]Interaction(nil), s.Interactions...)
	out.Inquiries = append([]string(nil), s.Inquiries...)
	out.History = append([]string(nil), s.History...)
	return out
}

func pushHistory(history []string, topic string) []string {
	if topic == "" {
		return history
	}
	history = append(history, topic)
	if len(history) > historyLimit {
		history = append([]string(nil), history[len(history)-historyLimit:]...)
	}
	return history
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
