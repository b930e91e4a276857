package session

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/internal/truth"
	"github.com/scrypster/socratic/pkg/types"
)

const (
	neutral = 0.5

	// Performance is an exponential moving average over comprehension.
	performanceKeep   = 0.7
	performanceWeight = 0.3

	levelStep       = 0.1
	highPerformance = 0.8
	lowPerformance  = 0.3

	// struggleFloor marks a response as a struggle for the next selection.
	struggleFloor = 0.3
)

// EventSink receives the interaction events emitted by the controller.
// *memory.Working satisfies it.
type EventSink interface {
	Store(id string, content memory.Content, memType types.MemoryType) bool
}

// Controller runs tutoring sessions. All operations are serialised by a
// single lock.
type Controller struct {
	selector *inquiry.Selector
	truth    *truth.Engine
	events   EventSink
	logger   zerolog.Logger
	now      func() time.Time
	entropy  io.Reader

	mu        sync.Mutex
	sessions  map[string]*state
	inquiries map[string]*inquiry.Inquiry
	learners  map[string]*Learner
}

// Option configures a Controller.
type Option func(*Controller)

// WithEvents sets the sink for interaction events.
func WithEvents(s EventSink) Option {
	return func(c *Controller) { c.events = s }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller. te may be nil, in which case responses are scored
// by the heuristic alone.
func New(selector *inquiry.Selector, te *truth.Engine, opts ...Option) *Controller {
	c := &Controller{
		selector:  selector,
		truth:     te,
		logger:    zerolog.Nop(),
		now:       time.Now,
		entropy:   ulid.DefaultEntropy(),
		sessions:  make(map[string]*state),
		inquiries: make(map[string]*inquiry.Inquiry),
		learners:  make(map[string]*Learner),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.selector == nil {
		c.selector = inquiry.NewSelector(nil)
	}
	return c
}

// Start opens a session for learnerID on topic and prepares the opening
// question, which the first NextQuestion call returns. initial may carry
// learner level, performance, complexity, allow_review, similarity scores
// and triggers for the opening question.
func (c *Controller) Start(learnerID, topic string, initial *types.Context) (string, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return "", types.NewError(types.CodeInvalidInput, "learner id is required", types.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	l, ok := c.learners[learnerID]
	if !ok {
		l = &Learner{ID: learnerID}
		c.learners[learnerID] = l
	}

	s := &state{
		Session: Session{
			ID:        uuid.NewString(),
			LearnerID: learnerID,
			Topic:     strings.TrimSpace(topic),
			StartedAt: now,
			History:   append([]string(nil), l.History...),
		},
	}
	if initial != nil {
		s.base = initial.Clone()
		if initial.LearnerLevel != nil {
			l.Level = types.Float(types.Clamp01(*initial.LearnerLevel))
		}
		if initial.CurrentPerformance != nil {
			l.Performance = types.Float(types.Clamp01(*initial.CurrentPerformance))
		}
		s.triggers = append(s.triggers, initial.Triggers...)
		if h := initial.LearningHistory; len(h) > 0 {
			s.History = append([]string(nil), h[max(0, len(h)-historyLimit):]...)
		}
	}
	s.topics = pushHistory(nil, s.Topic)
	l.Sessions++
	c.sessions[s.ID] = s

	in := c.askLocked(s, l, now)
	s.pending = in.ID

	c.logger.Info().
		Str("session_id", s.ID).
		Str("learner_id", learnerID).
		Str("topic", s.Topic).
		Str("opening_type", string(in.Question.Type)).
		Msg("session started")
	return s.ID, nil
}

// NextQuestion presents the next question of a session. The first call
// after Start returns the opening question. It reports false when the
// session is unknown or has ended.
func (c *Controller) NextQuestion(sessionID string) (Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok || s.Ended {
		return Prompt{}, false
	}
	if s.pending != "" {
		in := c.inquiries[s.pending]
		s.pending = ""
		return Prompt{InquiryID: in.ID, Question: in.Question}, true
	}
	in := c.askLocked(s, c.learners[s.LearnerID], c.now())
	return Prompt{InquiryID: in.ID, Question: in.Question}, true
}

// askLocked generates a question for s and registers it as an inquiry
// awaiting a response.
func (c *Controller) askLocked(s *state, l *Learner, now time.Time) *inquiry.Inquiry {
	ctx := c.contextLocked(s, l)
	q := c.selector.Generate(ctx)

	in := inquiry.NewInquiry(uuid.NewString(), s.ID, q, ctx, now)
	// active -> awaiting_response cannot fail
	_ = in.Transition(types.InquiryAwaitingResponse, now)
	c.inquiries[in.ID] = in
	s.Inquiries = append(s.Inquiries, in.ID)

	// Triggers and signals steer one selection only.
	s.triggers = nil
	s.signals = nil
	return in
}

func (c *Controller) contextLocked(s *state, l *Learner) types.Context {
	ctx := s.base.Clone()
	ctx.LearnerID = l.ID
	ctx.CurrentTopic = s.Topic
	ctx.LearningHistory = append([]string(nil), s.History...)
	ctx.LearnerLevel = cloneFloat(l.Level)
	ctx.CurrentPerformance = cloneFloat(l.Performance)
	ctx.SessionStart = len(s.Inquiries) == 0
	ctx.Triggers = append([]string(nil), s.triggers...)
	ctx.Signals = append(ctx.Signals, s.signals...)
	if s.lastResponse != "" {
		ctx.LastResponse = s.lastResponse
	}
	return ctx
}

// Submit records a response to an inquiry. It reports false when the
// inquiry is unknown. A response to an escape question steers the next
// selection instead of being graded.
func (c *Controller) Submit(inquiryID, response string) (Outcome, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in, ok := c.inquiries[inquiryID]
	if !ok {
		return Outcome{}, false, nil
	}
	s := c.sessions[in.SessionID]
	if s.Ended {
		return Outcome{}, true, types.NewError(types.CodeInvalidInput,
			fmt.Sprintf("session %s has ended", s.ID), types.ErrInvalidInput)
	}
	if strings.TrimSpace(response) == "" {
		return Outcome{}, true, types.NewError(types.CodeInvalidInput, "response is empty", types.ErrInvalidInput)
	}
	if s.pending == in.ID {
		s.pending = ""
	}

	now := c.now()
	l := c.learners[s.LearnerID]
	out := Outcome{InquiryID: in.ID}

	if in.Question.Escape {
		if in.State != types.InquiryAwaitingResponse {
			return Outcome{}, true, types.NewError(types.CodeInvalidInput,
				fmt.Sprintf("inquiry %s is %s, not awaiting a response", in.ID, in.State), types.ErrInvalidInput)
		}
		ea := inquiry.AnalyzeEscapeResponse(response)
		steered := inquiry.ApplyEscapeResponse(types.Context{}, ea)
		s.triggers = append(s.triggers, steered.Triggers...)
		in.Exchanges = append(in.Exchanges, inquiry.Exchange{Response: response, At: now})
		if err := in.Transition(types.InquiryCompleted, now); err != nil {
			return Outcome{}, true, err
		}
		out.Escape = &ea
		out.Analysis = Analysis{WordCount: len(strings.Fields(response))}
	} else {
		a := Analyze(c.truth, response, s.Topic)
		followUp, err := in.Respond(response, a.Assessment, s.Topic, now)
		if err != nil {
			return Outcome{}, true, err
		}
		out.FollowUp = followUp
		out.Analysis = a
		c.updateLearnerLocked(l, a.Comprehension)
		s.signals = signalsFor(a)
	}
	out.State = in.State
	s.lastResponse = response

	out.EventID = c.emitLocked(s, in, response, out, now)
	s.Interactions = append(s.Interactions, Interaction{
		InquiryID: in.ID,
		Type:      in.Question.Type,
		Response:  response,
		Analysis:  out.Analysis,
		EventID:   out.EventID,
		At:        now,
	})
	return out, true, nil
}

// Steer asks for a question type by name for the next question of a session.
// It reports false when the session is unknown or has ended.
func (c *Controller) Steer(sessionID, questionType string) (bool, error) {
	q, err := types.ParseQuestionType(questionType)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok || s.Ended {
		return false, nil
	}
	s.triggers = append(s.triggers, inquiry.CanonicalTrigger(q))
	return true, nil
}

// SwitchTopic moves a session to a new topic. The previous topic joins the
// learning history. It reports false when the session is unknown or has ended.
func (c *Controller) SwitchTopic(sessionID, topic string) bool {
	topic = strings.TrimSpace(topic)

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok || s.Ended {
		return false
	}
	if topic == s.Topic {
		return true
	}
	s.History = pushHistory(s.History, s.Topic)
	l := c.learners[s.LearnerID]
	l.History = pushHistory(l.History, s.Topic)
	s.Topic = topic
	s.topics = append(s.topics, topic)
	return true
}

// End closes a session, abandoning any open inquiries, and returns its
// summary. Ending an ended session returns the same summary.
func (c *Controller) End(sessionID string) (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return Summary{}, false
	}
	if s.summary != nil {
		return cloneSummary(*s.summary), true
	}

	now := c.now()
	l := c.learners[s.LearnerID]
	sum := Summary{
		SessionID:    s.ID,
		LearnerID:    s.LearnerID,
		Topics:       append([]string(nil), s.topics...),
		StartedAt:    s.StartedAt,
		EndedAt:      now,
		Duration:     now.Sub(s.StartedAt),
		Interactions: len(s.Interactions),
		TypeCounts:   make(map[types.QuestionType]int),
	}
	for _, id := range s.Inquiries {
		in := c.inquiries[id]
		sum.TypeCounts[in.Question.Type]++
		if in.Abandon(now) {
			sum.Abandoned++
		} else if in.State == types.InquiryCompleted {
			sum.Completed++
		}
	}
	l.History = pushHistory(l.History, s.Topic)
	sum.Performance = valueOr(l.Performance, neutral)
	sum.Level = valueOr(l.Level, neutral)

	s.Ended = true
	s.EndedAt = now
	s.pending = ""
	s.summary = &sum

	c.logger.Info().
		Str("session_id", s.ID).
		Str("learner_id", s.LearnerID).
		Int("interactions", sum.Interactions).
		Int("completed", sum.Completed).
		Int("abandoned", sum.Abandoned).
		Float64("performance", sum.Performance).
		Float64("level", sum.Level).
		Msg("session ended")
	return cloneSummary(sum), true
}

// Session returns a snapshot of a session.
func (c *Controller) Session(id string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Learner returns a snapshot of a learner.
func (c *Controller) Learner(id string) (Learner, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.learners[id]
	if !ok {
		return Learner{}, false
	}
	return l.clone(), true
}

// Inquiry returns a snapshot of an inquiry.
func (c *Controller) Inquiry(id string) (inquiry.Inquiry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, ok := c.inquiries[id]
	if !ok {
		return inquiry.Inquiry{}, false
	}
	out := *in
	out.Exchanges = append([]inquiry.Exchange(nil), in.Exchanges...)
	out.Snapshot = in.Snapshot.Clone()
	return out, true
}

// updateLearnerLocked folds comprehension into the performance average and
// moves the level when performance leaves the middle band.
func (c *Controller) updateLearnerLocked(l *Learner, comprehension float64) {
	p := performanceKeep*valueOr(l.Performance, neutral) + performanceWeight*comprehension
	level := valueOr(l.Level, neutral)
	switch {
	case p > highPerformance:
		level += levelStep
	case p < lowPerformance:
		level -= levelStep
	}
	l.Performance = types.Float(types.Clamp01(p))
	l.Level = types.Float(types.Clamp01(level))
	l.Responses++
}

// emitLocked stores an episodic event describing the interaction and returns
// its id, or "" when no sink is configured or the store refused it.
func (c *Controller) emitLocked(s *state, in *inquiry.Inquiry, response string, out Outcome, now time.Time) string {
	if c.events == nil {
		return ""
	}
	id := ulid.MustNew(ulid.Timestamp(now), c.entropy).String()
	content := memory.Content{
		"session_id":    s.ID,
		"inquiry_id":    in.ID,
		"learner_id":    s.LearnerID,
		"topic":         s.Topic,
		"question_type": string(in.Question.Type),
		"question":      in.Question.Text,
		"response":      response,
		"state":         string(out.State),
		"comprehension": out.Analysis.Comprehension,
		"escape":        in.Question.Escape,
	}
	if out.FollowUp != "" {
		content["follow_up"] = out.FollowUp
	}
	if !c.events.Store(id, content, types.MemoryEpisodic) {
		c.logger.Warn().Str("inquiry_id", in.ID).Msg("interaction event not stored")
		return ""
	}
	return id
}

func signalsFor(a Analysis) []types.Signal {
	var out []types.Signal
	if a.Comprehension < struggleFloor || a.Confused {
		out = append(out, types.SignalStruggling)
	}
	if len(a.CuriosityIndicators) > 0 {
		out = append(out, types.SignalDiscovery)
	}
	return out
}

func cloneSummary(s Summary) Summary {
	s.Topics = append([]string(nil), s.Topics...)
	counts := make(map[types.QuestionType]int, len(s.TypeCounts))
	for k, v := range s.TypeCounts {
		counts[k] = v
	}
	s.TypeCounts = counts
	return s
}
