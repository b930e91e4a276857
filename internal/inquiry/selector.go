package inquiry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/pkg/types"
)

const (
	// defaultRecentWindow is the number of recent question types kept per learner.
	defaultRecentWindow = 10

	// maxExcerptRunes bounds the memory excerpt appended to a question.
	maxExcerptRunes = 120

	recordTimeout = 2 * time.Second

	escapeFollowUp = "Tell me what you'd like to focus on, or what still feels unclear."
)

// Rule names the link of the priority chain that produced a decision.
type Rule string

// Rule constants, in chain order
const (
	RuleTrigger        Rule = "trigger"
	RuleSessionState   Rule = "session_state"
	RuleCoordinates    Rule = "coordinates"
	RuleAntiRepetition Rule = "anti_repetition"
	RuleCommonSense    Rule = "common_sense"
	RuleEscape         Rule = "escape"
)

// Decision is the outcome of SelectType.
type Decision struct {
	Type           types.QuestionType `json:"type"`
	Rule           Rule               `json:"rule"`
	Coordinates    types.Coordinates  `json:"coordinates"`
	HasCoordinates bool               `json:"has_coordinates"`
}

// Question is a generated question.
type Question struct {
	Decision

	Text string `json:"text"`

	// Escape is set when the question is the escape hatch's meta-question.
	Escape   bool   `json:"escape_mode"`
	FollowUp string `json:"follow_up,omitempty"`

	// Level is the learner level marker, empty when the level is unknown.
	Level string `json:"level,omitempty"`

	// Excerpt is a short recollection from long-term memory.
	Excerpt string `json:"excerpt,omitempty"`
}

// MemorySearcher finds earlier learning events about a topic.
type MemorySearcher interface {
	Search(query string, k int) []memory.SearchResult
}

// Selector chooses the next question type through a priority chain that
// always ends in a decision.
type Selector struct {
	coords    *CoordinateEngine
	templates *Templates
	memory    MemorySearcher
	recorder  EscapeRecorder
	logger    zerolog.Logger
	now       func() time.Time
	window    int
	escapes   *escapeRing

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	triggers map[string]types.QuestionType
	recent   map[string][]types.QuestionType
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithRand sets the random source used for anti-repetition, the escape hatch
// and template picking.
func WithRand(r *rand.Rand) SelectorOption {
	return func(s *Selector) { s.rng = r }
}

// WithSelectorClock sets the time source for escape events.
func WithSelectorClock(now func() time.Time) SelectorOption {
	return func(s *Selector) { s.now = now }
}

// WithSelectorLogger sets the selector logger.
func WithSelectorLogger(l zerolog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// WithTemplates replaces the built-in templates.
func WithTemplates(t *Templates) SelectorOption {
	return func(s *Selector) { s.templates = t }
}

// WithMemory enables memory excerpts in generated questions.
func WithMemory(m MemorySearcher) SelectorOption {
	return func(s *Selector) { s.memory = m }
}

// WithEscapeRecorder forwards escape events to r.
func WithEscapeRecorder(r EscapeRecorder) SelectorOption {
	return func(s *Selector) { s.recorder = r }
}

// WithRecentWindow sets how many recent question types are kept per learner.
func WithRecentWindow(n int) SelectorOption {
	return func(s *Selector) {
		if n >= 2 {
			s.window = n
		}
	}
}

// WithEscapeBuffer sets how many escape events are kept in memory.
func WithEscapeBuffer(n int) SelectorOption {
	return func(s *Selector) { s.escapes = newEscapeRing(n) }
}

// NewSelector creates a selector using coords for the coordinate rule.
func NewSelector(coords *CoordinateEngine, opts ...SelectorOption) *Selector {
	s := &Selector{
		coords:   coords,
		logger:   zerolog.Nop(),
		now:      time.Now,
		window:   defaultRecentWindow,
		escapes:  newEscapeRing(defaultEscapeBuffer),
		triggers: make(map[string]types.QuestionType),
		recent:   make(map[string][]types.QuestionType),
	}
	for q, phrases := range defaultTriggers {
		for _, p := range phrases {
			s.triggers[normalizeTrigger(p)] = q
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.coords == nil {
		s.coords = NewCoordinateEngine(nil)
	}
	if s.templates == nil {
		s.templates = DefaultTemplates()
	}
	return s
}

// RegisterTrigger maps phrase to q for the trigger rule.
func (s *Selector) RegisterTrigger(phrase string, q types.QuestionType) error {
	if !q.IsValid() {
		return types.NewError(types.CodeUnknownQuestionType, fmt.Sprintf("unknown question type %q", string(q)), types.ErrUnknownQuestionType)
	}
	key := normalizeTrigger(phrase)
	if key == "" {
		return types.NewError(types.CodeInvalidInput, "trigger phrase is empty", types.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers[key] = q
	return nil
}

// SelectType runs the priority chain over c: explicit trigger, session
// state, coordinates, anti-repetition, common-sense rules and finally the
// escape hatch. It does not record the result; Generate does.
func (s *Selector) SelectType(c types.Context) Decision {
	// 1. Explicit trigger
	if q, ok := s.matchTrigger(c.Triggers); ok {
		return Decision{Type: q, Rule: RuleTrigger}
	}

	// 2. Session state
	if c.SessionStart {
		return Decision{Type: types.Explore, Rule: RuleSessionState}
	}
	if c.LearningComplete {
		return Decision{Type: types.Review, Rule: RuleSessionState}
	}

	// 3. Coordinates, declining when the result would repeat a repeated type
	coords, computable := s.coords.Coordinates(c)
	d := Decision{Coordinates: coords, HasCoordinates: computable}
	last, repeated := s.repeatedType(c.LearnerID)
	if computable {
		q := coords.Quadrant()
		if q == types.Review && !c.ReviewAllowed() {
			q = coords.NearestExcluding(types.Review)
		}
		if !repeated || q != last {
			d.Type, d.Rule = q, RuleCoordinates
			return d
		}
	}

	// 4. Anti-repetition
	if repeated {
		options := types.Without(last)
		if !c.ReviewAllowed() {
			options = types.Without(last, types.Review)
		}
		d.Type, d.Rule = options[s.intn(len(options))], RuleAntiRepetition
		return d
	}

	// 5. Common-sense fallback
	if q, ok := commonSense(c); ok {
		d.Type, d.Rule = q, RuleCommonSense
		return d
	}

	// 6. Escape hatch
	d.Type, d.Rule = s.escape(c), RuleEscape
	return d
}

// Generate selects a type for c, records it for the learner and renders the
// question. In escape mode the question asks the learner for direction.
func (s *Selector) Generate(c types.Context) Question {
	d := s.SelectType(c)
	s.Record(c.LearnerID, d.Type)

	q := Question{Decision: d}
	if d.Rule == RuleEscape {
		q.Escape = true
		q.Text = fmt.Sprintf("I'm not sure of the best direction. Would you like to %s your knowledge?", d.Type.Verb())
		q.FollowUp = escapeFollowUp
		return q
	}

	q.Text = s.templates.Render(d.Type, c.CurrentTopic, s.intn)
	if c.LearnerLevel != nil {
		q.Level = LevelMarker(*c.LearnerLevel)
		q.Text += " (" + q.Level + " level)"
	}
	if s.memory != nil && c.CurrentTopic != "" {
		if ex := s.excerpt(c.CurrentTopic); ex != "" {
			q.Excerpt = ex
			q.Text += "\nEarlier you said: \"" + ex + "\""
		}
	}
	return q
}

// Record appends q to the learner's recent question types.
func (s *Selector) Record(learnerID string, q types.QuestionType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.recent[learnerID], q)
	if len(list) > s.window {
		list = list[len(list)-s.window:]
	}
	s.recent[learnerID] = list
}

// RecentTypes returns the learner's recent question types, oldest first.
func (s *Selector) RecentTypes(learnerID string) []types.QuestionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.QuestionType(nil), s.recent[learnerID]...)
}

// Escapes returns the buffered escape events, oldest first.
func (s *Selector) Escapes() []EscapeEvent {
	return s.escapes.list()
}

func (s *Selector) matchTrigger(triggers []string) (types.QuestionType, bool) {
	if len(triggers) == 0 {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range triggers {
		if q, ok := s.triggers[normalizeTrigger(t)]; ok {
			return q, true
		}
	}
	return "", false
}

// repeatedType reports the last recorded type and whether the last two
// recorded types are identical.
func (s *Selector) repeatedType(learnerID string) (types.QuestionType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.recent[learnerID]
	if len(list) < 2 {
		return "", false
	}
	last := list[len(list)-1]
	return last, list[len(list)-2] == last
}

func (s *Selector) escape(c types.Context) types.QuestionType {
	options := types.AllQuestionTypes
	if !c.ReviewAllowed() {
		options = types.Without(types.Review)
	}
	chosen := options[s.intn(len(options))]

	ev := EscapeEvent{
		ID:        uuid.NewString(),
		At:        s.now(),
		LearnerID: c.LearnerID,
		Topic:     c.CurrentTopic,
		Chosen:    chosen,
		Reason:    "no trigger, session flag, coordinates or common-sense rule applied",
		Snapshot:  c.Clone(),
	}
	s.escapes.add(ev)

	s.logger.Warn().
		Str("escape_id", ev.ID).
		Str("learner_id", ev.LearnerID).
		Str("topic", ev.Topic).
		Str("chosen", string(chosen)).
		Strs("history", c.LearningHistory).
		Strs("triggers", c.Triggers).
		Bool("allow_review", c.ReviewAllowed()).
		Interface("snapshot", ev.Snapshot).
		Msg("escape hatch fired")

	if s.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.recorder.RecordEscape(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("escape_id", ev.ID).Msg("escape event not recorded")
		}
	}
	return chosen
}

func (s *Selector) excerpt(topic string) string {
	hits := s.memory.Search(topic, 1)
	if len(hits) == 0 {
		return ""
	}
	for _, key := range []string{"response", "text", "summary"} {
		if v, ok := hits[0].Content[key].(string); ok && strings.TrimSpace(v) != "" {
			return truncateRunes(strings.TrimSpace(v), maxExcerptRunes)
		}
	}
	return ""
}

func (s *Selector) intn(n int) int {
	if n <= 1 {
		return 0
	}
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
