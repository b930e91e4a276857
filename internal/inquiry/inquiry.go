package inquiry

import (
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/socratic/pkg/types"
)

// MaxExchanges is the number of responses after which an inquiry completes
// regardless of quality.
const MaxExchanges = 3

// comprehensionFloor is the comprehension below which a follow-up is asked.
const comprehensionFloor = 0.5

// Depth classifies how far a response goes beyond restating facts.
type Depth string

// Depth constants
const (
	DepthSurface  Depth = "surface"
	DepthModerate Depth = "moderate"
	DepthDeep     Depth = "deep"
)

// Assessment is the part of a response analysis that drives follow-ups.
type Assessment struct {
	Comprehension  float64  `json:"comprehension_level"`
	Misconceptions []string `json:"misconceptions,omitempty"`
	Depth          Depth    `json:"depth"`
}

// NeedsFollowUp reports whether another question is warranted after the
// given number of exchanges.
func NeedsFollowUp(a Assessment, exchanges int) bool {
	if exchanges > MaxExchanges {
		return false
	}
	return a.Comprehension < comprehensionFloor || len(a.Misconceptions) > 0 || a.Depth == DepthSurface
}

// FollowUpText phrases a follow-up for the weakest aspect of a.
func FollowUpText(a Assessment, topic string) string {
	if strings.TrimSpace(topic) == "" {
		topic = defaultTopic
	}
	switch {
	case len(a.Misconceptions) > 0:
		return fmt.Sprintf("Let's test that idea. What evidence about %s supports it?", topic)
	case a.Comprehension < comprehensionFloor:
		return fmt.Sprintf("Could you describe %s in your own words, one step at a time?", topic)
	default:
		return fmt.Sprintf("Why do you think that is true about %s?", topic)
	}
}

// Exchange is one learner response within an inquiry.
type Exchange struct {
	Response   string     `json:"response"`
	At         time.Time  `json:"at"`
	Assessment Assessment `json:"assessment"`
	FollowUp   string     `json:"follow_up,omitempty"`
}

// Inquiry is one generated question and its chain of follow-ups.
type Inquiry struct {
	ID          string             `json:"inquiry_id"`
	SessionID   string             `json:"session_id"`
	Question    Question           `json:"question_data"`
	Snapshot    types.Context      `json:"context"`
	State       types.InquiryState `json:"state"`
	Exchanges   []Exchange         `json:"responses"`
	StartedAt   time.Time          `json:"start_time"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
}

// NewInquiry creates an inquiry in the active state.
func NewInquiry(id, sessionID string, q Question, snapshot types.Context, now time.Time) *Inquiry {
	return &Inquiry{
		ID:        id,
		SessionID: sessionID,
		Question:  q,
		Snapshot:  snapshot.Clone(),
		State:     types.InquiryActive,
		StartedAt: now,
	}
}

// Transition moves the inquiry to next if the state machine allows it.
func (i *Inquiry) Transition(next types.InquiryState, now time.Time) error {
	if !types.IsValidInquiryTransition(i.State, next) {
		return types.NewError(types.CodeInvalidInput,
			fmt.Sprintf("inquiry %s: invalid transition %s -> %s", i.ID, i.State, next), types.ErrInvalidInput)
	}
	i.State = next
	if next.IsTerminal() {
		i.CompletedAt = now
	}
	return nil
}

// Respond records a response and decides between a follow-up and
// completion. It returns the follow-up text, or "" when the inquiry completed.
func (i *Inquiry) Respond(response string, a Assessment, topic string, now time.Time) (string, error) {
	if i.State == types.InquiryFollowUp {
		if err := i.Transition(types.InquiryAwaitingResponse, now); err != nil {
			return "", err
		}
	}
	if i.State != types.InquiryAwaitingResponse {
		return "", types.NewError(types.CodeInvalidInput,
			fmt.Sprintf("inquiry %s is %s, not awaiting a response", i.ID, i.State), types.ErrInvalidInput)
	}

	ex := Exchange{Response: response, At: now, Assessment: a}
	if NeedsFollowUp(a, len(i.Exchanges)+1) {
		ex.FollowUp = FollowUpText(a, topic)
		i.Exchanges = append(i.Exchanges, ex)
		return ex.FollowUp, i.Transition(types.InquiryFollowUp, now)
	}
	i.Exchanges = append(i.Exchanges, ex)
	return "", i.Transition(types.InquiryCompleted, now)
}

// Abandon marks an unfinished inquiry shutdown_incomplete. It reports whether
// the state changed.
func (i *Inquiry) Abandon(now time.Time) bool {
	if i.State.IsTerminal() {
		return false
	}
	return i.Transition(types.InquiryShutdownIncomplete, now) == nil
}
