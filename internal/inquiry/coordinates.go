// Package inquiry implements the Socratic inquiry engine: the coordinate
// engine, the question-type selector with its priority chain and escape
// hatch, question templates and the per-question inquiry state machine.
package inquiry

import (
	"github.com/scrypster/socratic/internal/knowledge"
	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

const (
	// neutral is the default for an absent level, performance or complexity,
	// and the relatedness of an empty history.
	neutral = 0.5

	// historyWindow is the number of recent history topics compared.
	historyWindow = 3

	// Pairwise relatedness weights.
	weightTerms      = 0.3
	weightConcepts   = 0.25
	weightPrinciples = 0.2
	weightSubject    = 0.25

	defaultConceptScore   = 0.5
	defaultPrincipleScore = 0.3
	sameSubjectScore      = 1.0
	otherSubjectScore     = 0.2

	// Difficulty adapts by this step when performance leaves the middle band.
	difficultyStep  = 0.2
	highPerformance = 0.8
	lowPerformance  = 0.4
)

// CoordinateEngine places a learner context in the (relatedness, difficulty)
// unit square.
type CoordinateEngine struct {
	kb *knowledge.Base
}

// NewCoordinateEngine creates an engine. kb may be nil, in which case topics
// are compared by their own words only.
func NewCoordinateEngine(kb *knowledge.Base) *CoordinateEngine {
	return &CoordinateEngine{kb: kb}
}

// Computable reports whether c carries enough state to place it: any of
// learner level, performance or topic.
func Computable(c types.Context) bool {
	return c.LearnerLevel != nil || c.CurrentPerformance != nil || c.CurrentTopic != ""
}

// Coordinates returns the clamped point for c, or false when c is not
// computable.
func (e *CoordinateEngine) Coordinates(c types.Context) (types.Coordinates, bool) {
	if !Computable(c) {
		return types.Coordinates{}, false
	}
	return types.Coordinates{
		Relatedness: e.Relatedness(c),
		Difficulty:  e.Difficulty(c),
	}.Clamp(), true
}

// Difficulty adapts the learner level to recent performance.
func (e *CoordinateEngine) Difficulty(c types.Context) float64 {
	level := valueOr(c.LearnerLevel, neutral)
	perf := valueOr(c.CurrentPerformance, neutral)
	complexity := valueOr(c.TopicComplexity, neutral)

	switch {
	case perf > highPerformance:
		return min(level+difficultyStep, 1)
	case perf < lowPerformance:
		return max(level-difficultyStep, 0)
	default:
		return types.Clamp01((level + complexity) / 2)
	}
}

// Relatedness averages the pairwise relatedness of the current topic with the
// most recent history topics. An empty history or topic gives 0.5.
func (e *CoordinateEngine) Relatedness(c types.Context) float64 {
	if len(c.LearningHistory) == 0 || c.CurrentTopic == "" {
		return neutral
	}
	recent := c.LearningHistory
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	total := 0.0
	for _, h := range recent {
		total += e.Pairwise(c.CurrentTopic, h, c)
	}
	return types.Clamp01(total / float64(len(recent)))
}

// Pairwise scores how related topic is to other: vocabulary overlap, semantic
// similarity and principle overlap from the context when provided, and
// whether both belong to the same subject.
func (e *CoordinateEngine) Pairwise(topic, other string, c types.Context) float64 {
	termsA, subjectA := e.profile(topic)
	termsB, subjectB := e.profile(other)

	concepts := defaultConceptScore
	if v, ok := c.SemanticSimilarity[other]; ok {
		concepts = types.Clamp01(v)
	}
	principles := defaultPrincipleScore
	if v, ok := c.PrincipleOverlap[other]; ok {
		principles = types.Clamp01(v)
	}
	subject := otherSubjectScore
	if subjectA == subjectB {
		subject = sameSubjectScore
	}

	return weightTerms*termsA.Jaccard(termsB) +
		weightConcepts*concepts +
		weightPrinciples*principles +
		weightSubject*subject
}

// profile returns the vocabulary and subject of a topic. Topics unknown to
// the knowledge base use their own keywords and the general subject.
func (e *CoordinateEngine) profile(topic string) (text.Set, types.Subject) {
	if e.kb != nil {
		if concept, ok := e.kb.Lookup(topic); ok {
			return e.kb.Terms(concept.ID), concept.Subject
		}
	}
	return text.NewSet(text.Keywords(topic)...), types.SubjectGeneral
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
