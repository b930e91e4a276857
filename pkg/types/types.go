// Package types defines the core data structures shared by the Socratic
// tutoring engine: question types and their quadrants, knowledge concepts,
// interaction coordinates, learner context and memory classifications.
package types

import (
	"fmt"
	"math"
	"strings"
)

// QuestionType is one of the four Socratic inquiry directions.
// The set is closed; every switch over it must be exhaustive.
type QuestionType string

// Question type constants
const (
	// Expand deepens knowledge of a hard, weakly related target.
	Expand QuestionType = "EXPAND"

	// Explore opens an easy target that is strongly related to prior topics.
	Explore QuestionType = "EXPLORE"

	// Extend applies a hard target that builds on closely related topics.
	Extend QuestionType = "EXTEND"

	// Review consolidates an easy, weakly related target.
	Review QuestionType = "REVIEW"
)

// AllQuestionTypes lists the question types in canonical order.
var AllQuestionTypes = []QuestionType{Expand, Explore, Extend, Review}

// IsValid reports whether q is one of the four question types.
func (q QuestionType) IsValid() bool {
	switch q {
	case Expand, Explore, Extend, Review:
		return true
	}
	return false
}

// Verb returns the lowercase verb used when talking to the learner.
func (q QuestionType) Verb() string {
	return strings.ToLower(string(q))
}

// Centre returns the centre of the quadrant owned by q.
func (q QuestionType) Centre() Coordinates {
	switch q {
	case Expand:
		return Coordinates{Relatedness: 0.25, Difficulty: 0.75}
	case Explore:
		return Coordinates{Relatedness: 0.75, Difficulty: 0.25}
	case Extend:
		return Coordinates{Relatedness: 0.75, Difficulty: 0.75}
	case Review:
		return Coordinates{Relatedness: 0.25, Difficulty: 0.25}
	}
	panic(fmt.Sprintf("types: unknown question type %q", string(q)))
}

// ParseQuestionType converts a case-insensitive name into a QuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	q := QuestionType(strings.ToUpper(strings.TrimSpace(s)))
	if !q.IsValid() {
		return "", NewError(CodeUnknownQuestionType, fmt.Sprintf("unknown question type %q", s), ErrUnknownQuestionType)
	}
	return q, nil
}

// Without returns AllQuestionTypes minus the given types, preserving order.
func Without(excluded ...QuestionType) []QuestionType {
	out := make([]QuestionType, 0, len(AllQuestionTypes))
	for _, q := range AllQuestionTypes {
		skip := false
		for _, e := range excluded {
			if q == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, q)
		}
	}
	return out
}

// Coordinates is an interaction point in the unit square.
type Coordinates struct {
	Relatedness float64 `json:"relatedness"`
	Difficulty  float64 `json:"difficulty"`
}

// Clamp returns c with both axes clamped to [0, 1].
func (c Coordinates) Clamp() Coordinates {
	return Coordinates{
		Relatedness: Clamp01(c.Relatedness),
		Difficulty:  Clamp01(c.Difficulty),
	}
}

// Quadrant maps c onto a question type. The 0.5 boundary belongs to the
// upper (difficulty) and right (relatedness) halves; difficulty is tested first.
func (c Coordinates) Quadrant() QuestionType {
	if c.Difficulty >= 0.5 {
		if c.Relatedness < 0.5 {
			return Expand
		}
		return Extend
	}
	if c.Relatedness >= 0.5 {
		return Explore
	}
	return Review
}

// Distance returns the Euclidean distance between two points.
func (c Coordinates) Distance(o Coordinates) float64 {
	return math.Hypot(c.Relatedness-o.Relatedness, c.Difficulty-o.Difficulty)
}

// NearestExcluding returns the question type whose quadrant centre is closest
// to c, skipping the excluded types. Ties resolve in canonical order.
func (c Coordinates) NearestExcluding(excluded ...QuestionType) QuestionType {
	candidates := Without(excluded...)
	best := candidates[0]
	bestDist := c.Distance(best.Centre())
	for _, q := range candidates[1:] {
		if d := c.Distance(q.Centre()); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp clamps v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
