// Package truth scores a free-text statement against the knowledge base.
// The score is a deterministic function of the statement and the concepts.
package truth

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/knowledge"
	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// maxSupportingFacts bounds both the supporting facts and the concepts used
// for the base score.
const maxSupportingFacts = 3

// Correlation is the match between a statement and one concept.
type Correlation struct {
	ConceptID        string        `json:"concept_id"`
	Subject          types.Subject `json:"subject"`
	Correlation      float64       `json:"correlation"`
	OverlapScore     float64       `json:"overlap_score"`
	CoverageScore    float64       `json:"coverage_score"`
	MatchingKeywords []string      `json:"matching_keywords"`
}

// Result is the outcome of verifying a statement.
type Result struct {
	Statement          string              `json:"statement"`
	TruthScore         int                 `json:"truth_score"`
	TruthLevel         types.TruthLevel    `json:"truth_level"`
	ExtractedKeywords  []string            `json:"extracted_keywords"`
	SupportingFacts    []Correlation       `json:"supporting_facts"`
	Coverage           types.CoverageLevel `json:"knowledge_coverage"`
	Proximity          float64             `json:"proximity"`
	SubjectConsistency float64             `json:"subject_consistency"`
	Contradictions     []Contradiction     `json:"contradictions,omitempty"`
	Penalty            float64             `json:"contradiction_penalty"`
	UnnaturalList      bool                `json:"unnatural_list"`
}

// VerifyContext narrows a verification to a topic. The topic concept's
// definition joins the lexical contradiction check even when the statement
// does not match it.
type VerifyContext struct {
	Topic string
}

// Engine verifies statements against a knowledge base. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	kb     *knowledge.Base
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over kb.
func NewEngine(kb *knowledge.Base, opts ...Option) *Engine {
	e := &Engine{kb: kb, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify scores statement against the knowledge base. It never fails: an
// empty statement scores 0.
func (e *Engine) Verify(statement string) Result {
	return e.VerifyInContext(statement, VerifyContext{})
}

// VerifyInContext is Verify with an optional topic.
func (e *Engine) VerifyInContext(statement string, vc VerifyContext) Result {
	res := Result{
		Statement:         statement,
		TruthLevel:        types.TruthVeryLow,
		Coverage:          types.CoveragePoor,
		ExtractedKeywords: []string{},
		SupportingFacts:   []Correlation{},
	}

	tokens := text.Tokenize(statement)
	keywords := text.FilterKeywords(tokens)
	if len(keywords) == 0 {
		return res
	}
	res.ExtractedKeywords = keywords
	query := text.NewSet(keywords...)

	correlations, matched := e.correlate(query)

	covered := 0
	for _, kw := range keywords {
		if e.kb.InIndex(kw) {
			covered++
		}
	}
	coveredFrac := float64(covered) / float64(len(keywords))
	res.Coverage = types.CoverageLevelFor(coveredFrac)

	if vc.Topic != "" {
		if c, ok := e.kb.Lookup(vc.Topic); ok && !containsConcept(matched, c.ID) {
			matched = append(matched, c)
		}
	}
	res.Contradictions, res.Penalty = detectContradictions(text.NewSet(tokens...), matched)
	res.UnnaturalList = isKeywordList(tokens, keywords)
	res.Proximity = proximityScore(tokens, keywords)

	if len(correlations) == 0 {
		e.log(res)
		return res
	}

	top := correlations
	if len(top) > maxSupportingFacts {
		top = top[:maxSupportingFacts]
	}
	res.SupportingFacts = top
	res.SubjectConsistency = subjectConsistency(top)

	base := 0.0
	for _, c := range top {
		base += c.Correlation
	}
	base /= float64(len(top))

	raw := base +
		weightProximity*res.Proximity +
		weightSubject*res.SubjectConsistency +
		breadthBonus(len(correlations)) +
		weightCovered*coveredFrac -
		res.Penalty
	if res.UnnaturalList {
		raw -= unnaturalListPenalty
	}

	res.TruthScore = int(math.Round(types.Clamp(raw*100, 0, 100)))
	res.TruthLevel = types.TruthLevelFor(res.TruthScore)
	e.log(res)
	return res
}

// correlate computes the correlation of query with every concept, keeping the
// positive ones ordered by descending correlation then concept id. The
// matched concepts are returned in the same order.
func (e *Engine) correlate(query text.Set) ([]Correlation, []types.Concept) {
	var (
		out     []Correlation
		matched = make(map[string]types.Concept)
	)
	for c := range e.kb.Concepts() {
		terms := e.kb.Terms(c.ID)
		inter := query.Intersect(terms)
		if len(inter) == 0 || len(terms) == 0 {
			continue
		}
		overlap := float64(len(inter)) / float64(len(query))
		coverage := float64(len(inter)) / float64(len(terms))
		kws := make([]string, 0, len(inter))
		for kw := range inter {
			kws = append(kws, kw)
		}
		sort.Strings(kws)
		out = append(out, Correlation{
			ConceptID:        c.ID,
			Subject:          c.Subject,
			Correlation:      0.7*overlap + 0.3*coverage,
			OverlapScore:     overlap,
			CoverageScore:    coverage,
			MatchingKeywords: kws,
		})
		matched[c.ID] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Correlation != out[j].Correlation {
			return out[i].Correlation > out[j].Correlation
		}
		return out[i].ConceptID < out[j].ConceptID
	})

	concepts := make([]types.Concept, 0, len(out))
	for _, c := range out {
		concepts = append(concepts, matched[c.ConceptID])
	}
	return out, concepts
}

func (e *Engine) log(res Result) {
	e.logger.Debug().
		Int("truth_score", res.TruthScore).
		Str("truth_level", string(res.TruthLevel)).
		Int("supporting_facts", len(res.SupportingFacts)).
		Strs("contradictions", ruleNames(res.Contradictions)).
		Bool("unnatural_list", res.UnnaturalList).
		Msg("statement verified")
}

func containsConcept(cs []types.Concept, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}
