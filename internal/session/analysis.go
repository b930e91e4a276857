package session

import (
	"strings"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/internal/truth"
	"github.com/scrypster/socratic/pkg/types"
)

const (
	baseComprehension = 0.5
	reasoningStep     = 0.1
	maxReasoningBonus = 3
	confusionPenalty  = 0.2
	shortPenalty      = 0.2
	shortResponse     = 4

	// A verified response blends the heuristic with the truth score.
	heuristicWeight = 0.7
	truthWeight     = 0.3

	deepWords     = 12
	moderateWords = 8

	questionMarkIndicator = "question_mark"
)

var (
	reasoningWords = text.NewSet(
		"because", "therefore", "since", "so", "means", "causes", "cause", "leads",
		"example", "instance", "thus", "hence", "result", "explains",
	)
	confusionWords   = text.NewSet("confused", "confusing", "dunno", "idk", "unsure", "lost", "stuck")
	confusionPhrases = []string{"dont know", "not sure", "no idea", "dont understand"}
	curiosityWords   = text.NewSet("wonder", "curious", "why", "how", "whether", "what")
)

// Analysis is the reading of one learner response.
type Analysis struct {
	inquiry.Assessment

	// CuriosityIndicators lists the curiosity cues found, in order.
	CuriosityIndicators []string `json:"curiosity_indicators,omitempty"`

	// Reasoning lists the distinct reasoning words used.
	Reasoning []string `json:"reasoning,omitempty"`
	WordCount int      `json:"word_count"`
	Confused  bool     `json:"confused,omitempty"`

	// Verification is the truth engine result for the response.
	Verification truth.Result `json:"verification"`
}

// Analyze scores a response to a question about topic. Comprehension starts
// at 0.5, gains 0.1 per distinct reasoning word (up to three) and loses 0.2
// each for confusion and for a response shorter than four words. When the
// truth engine finds supporting facts the result is blended 70/30 with the
// truth score. Contradictions become misconceptions.
func Analyze(te *truth.Engine, response, topic string) Analysis {
	tokens := text.Tokenize(response)
	a := Analysis{WordCount: len(tokens)}

	seen := make(map[string]bool)
	for _, tok := range tokens {
		if reasoningWords.Has(tok) && !seen[tok] {
			seen[tok] = true
			a.Reasoning = append(a.Reasoning, tok)
		}
	}
	a.Confused = isConfused(tokens)

	comp := baseComprehension + reasoningStep*float64(min(len(a.Reasoning), maxReasoningBonus))
	if a.Confused {
		comp -= confusionPenalty
	}
	if a.WordCount < shortResponse {
		comp -= shortPenalty
	}
	comp = types.Clamp01(comp)

	if te != nil {
		a.Verification = te.VerifyInContext(response, truth.VerifyContext{Topic: topic})
		if len(a.Verification.SupportingFacts) > 0 {
			comp = heuristicWeight*comp + truthWeight*float64(a.Verification.TruthScore)/100
		}
		for _, c := range a.Verification.Contradictions {
			a.Misconceptions = append(a.Misconceptions, c.Description)
		}
	}
	a.Comprehension = types.Clamp01(comp)
	a.CuriosityIndicators = curiosity(response, tokens)
	a.Depth = depth(len(a.Reasoning), a.WordCount)
	return a
}

func isConfused(tokens []string) bool {
	for _, tok := range tokens {
		if confusionWords.Has(tok) {
			return true
		}
	}
	padded := " " + strings.Join(tokens, " ") + " "
	for _, p := range confusionPhrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func curiosity(response string, tokens []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if curiosityWords.Has(tok) && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	if strings.Contains(response, "?") {
		out = append(out, questionMarkIndicator)
	}
	return out
}

func depth(reasoning, words int) inquiry.Depth {
	switch {
	case reasoning >= 2 && words >= deepWords:
		return inquiry.DepthDeep
	case reasoning >= 1 || words >= moderateWords:
		return inquiry.DepthModerate
	default:
		return inquiry.DepthSurface
	}
}
