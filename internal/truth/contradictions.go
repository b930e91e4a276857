package truth

import (
	"sort"

	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// ContradictionType represents the kind of contradiction detected
type ContradictionType string

const (
	// ContradictionTypeLexical indicates the statement uses one word of an
	// opposite pair while a matched concept's definition uses the other.
	// Example: statement says "upward", the gravity definition says "downward"
	ContradictionTypeLexical ContradictionType = "lexical"

	// ContradictionTypeDomain indicates a known misconception pattern.
	// Example: "gravity" together with upward motion
	ContradictionTypeDomain ContradictionType = "domain"
)

// maxContradictionPenalty caps the summed contradiction penalty.
const maxContradictionPenalty = 0.9

// lexicalPenalty is charged once per opposite pair.
const lexicalPenalty = 0.3

// Contradiction represents one detected conflict between a statement and the
// knowledge base.
type Contradiction struct {
	// Type categorizes the contradiction
	Type ContradictionType `json:"type"`

	// Rule names the opposite pair ("upward/downward") or the domain rule
	Rule string `json:"rule"`

	// ConceptID is the concept whose definition conflicts, empty for domain rules
	ConceptID string `json:"concept_id,omitempty"`

	// Description is a human-readable explanation
	Description string `json:"description"`

	// Penalty is the amount subtracted from the raw score
	Penalty float64 `json:"penalty"`
}

// opposites are checked symmetrically: statement word on one side, concept
// definition word on the other.
var opposites = [][2]string{
	{"up", "down"},
	{"upward", "downward"},
	{"rise", "fall"},
	{"true", "false"},
	{"add", "subtract"},
	{"addition", "subtraction"},
	{"always", "never"},
	{"increase", "decrease"},
	{"hot", "cold"},
	{"light", "dark"},
	{"before", "after"},
	{"more", "less"},
	{"positive", "negative"},
	{"expand", "contract"},
	{"attract", "repel"},
	{"action", "noun"},
}

// domainRule is a hand-written misconception detector.
type domainRule struct {
	name        string
	penalty     float64
	description string
	subject     []string
	claim       []string
}

func (r domainRule) matches(stmt text.Set) bool {
	return stmt.HasAny(r.subject...) && stmt.HasAny(r.claim...)
}

var domainRules = []domainRule{
	{
		name:        "gravity_upward",
		penalty:     0.7,
		description: "gravity pulls objects down, not up",
		subject:     []string{"gravity"},
		claim:       []string{"upward", "upwards", "up", "rise", "rises", "rising", "ascend", "ascends", "lifts"},
	},
	{
		name:        "noun_as_action",
		penalty:     0.3,
		description: "nouns name things; actions are verbs",
		subject:     []string{"noun", "nouns"},
		claim:       []string{"action", "actions", "doing"},
	},
	{
		name:        "addition_other_ops",
		penalty:     0.4,
		description: "addition confused with another operation",
		subject:     []string{"addition", "add", "adding", "adds", "plus"},
		claim:       []string{"subtract", "subtraction", "subtracting", "minus", "multiply", "multiplication", "divide", "division"},
	},
	{
		name:        "photosynthesis_dark",
		penalty:     0.4,
		description: "photosynthesis needs light",
		subject:     []string{"photosynthesis"},
		claim:       []string{"dark", "darkness", "night"},
	},
	{
		name:        "gravity_float",
		penalty:     0.6,
		description: "gravity does not make objects float",
		subject:     []string{"gravity"},
		claim:       []string{"float", "floats", "floating", "rise", "upward"},
	},
}

// detectContradictions checks stmt against the definitions of the given
// concepts and the domain rules. Concepts are visited in the order given so
// the reported concept for a pair is stable.
func detectContradictions(stmt text.Set, concepts []types.Concept) ([]Contradiction, float64) {
	var out []Contradiction

	// 1. Opposite pairs, each counted once
	defs := make([]text.Set, len(concepts))
	for i, c := range concepts {
		defs[i] = text.NewSet(text.Tokenize(c.Definition)...)
	}
	for _, pair := range opposites {
		if c, ok := oppositeHit(stmt, pair, concepts, defs); ok {
			out = append(out, c)
		}
	}

	// 2. Domain misconceptions
	for _, rule := range domainRules {
		if rule.matches(stmt) {
			out = append(out, Contradiction{
				Type:        ContradictionTypeDomain,
				Rule:        rule.name,
				Description: rule.description,
				Penalty:     rule.penalty,
			})
		}
	}

	total := 0.0
	for _, c := range out {
		total += c.Penalty
	}
	if total > maxContradictionPenalty {
		total = maxContradictionPenalty
	}
	return out, total
}

func oppositeHit(stmt text.Set, pair [2]string, concepts []types.Concept, defs []text.Set) (Contradiction, bool) {
	for i, def := range defs {
		for _, side := range [2][2]string{{pair[0], pair[1]}, {pair[1], pair[0]}} {
			if stmt.Has(side[0]) && def.Has(side[1]) {
				return Contradiction{
					Type:        ContradictionTypeLexical,
					Rule:        pair[0] + "/" + pair[1],
					ConceptID:   concepts[i].ID,
					Description: "statement says \"" + side[0] + "\" where " + concepts[i].DisplayName() + " says \"" + side[1] + "\"",
					Penalty:     lexicalPenalty,
				}, true
			}
		}
	}
	return Contradiction{}, false
}

// ruleNames returns the sorted rule names of cs.
func ruleNames(cs []Contradiction) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Rule)
	}
	sort.Strings(names)
	return names
}
