package inquiry

import (
	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// Interest levels reported by AnalyzeEscapeResponse.
const (
	interestEnthusiastic = 0.8
	interestVerbose      = 0.7
	interestDefault      = 0.5

	verboseWordCount = 10
)

// preferenceWords map escape replies onto a preferred question type.
var preferenceWords = map[types.QuestionType]text.Set{
	types.Expand:  text.NewSet("detail", "details", "detailed", "deeper", "deep", "more", "complex", "harder"),
	types.Explore: text.NewSet("different", "new", "other", "connection", "connections", "connect"),
	types.Extend:  text.NewSet("use", "apply", "practice", "real", "practical"),
	types.Review:  text.NewSet("understand", "review", "explain", "summary", "summarize", "recap"),
}

var enthusiasmWords = text.NewSet(
	"love", "awesome", "amazing", "excited", "exciting", "cool", "fun", "great", "wow", "interesting", "fascinating",
)

// EscapeAnalysis is the reading of a learner's reply to an escape question.
type EscapeAnalysis struct {
	// Preferred is the type the reply asks for; empty when none was found.
	Preferred types.QuestionType `json:"preferred,omitempty"`

	// Interest is 0.8 for enthusiastic replies, 0.7 for long ones, else 0.5.
	Interest float64 `json:"interest"`

	// Guidance is the reply text.
	Guidance string `json:"guidance"`
}

// AnalyzeEscapeResponse scans reply for preference and enthusiasm words. The
// type with the most matching words wins; ties go to canonical order.
func AnalyzeEscapeResponse(reply string) EscapeAnalysis {
	tokens := text.Tokenize(reply)
	a := EscapeAnalysis{Interest: interestDefault, Guidance: reply}

	best := 0
	for _, q := range types.AllQuestionTypes {
		n := 0
		for _, tok := range tokens {
			if preferenceWords[q].Has(tok) {
				n++
			}
		}
		if n > best {
			best, a.Preferred = n, q
		}
	}

	enthusiastic := false
	for _, tok := range tokens {
		if enthusiasmWords.Has(tok) {
			enthusiastic = true
			break
		}
	}
	switch {
	case enthusiastic:
		a.Interest = interestEnthusiastic
	case len(tokens) > verboseWordCount:
		a.Interest = interestVerbose
	}
	return a
}

// ApplyEscapeResponse returns a copy of c updated with the learner's
// guidance: the preferred type's canonical trigger is added so the next
// selection honours it, and the reply becomes the last response.
func ApplyEscapeResponse(c types.Context, a EscapeAnalysis) types.Context {
	out := c.Clone()
	out.LastResponse = a.Guidance
	out.SessionStart = false
	if a.Preferred != "" {
		out.Triggers = append(out.Triggers, CanonicalTrigger(a.Preferred))
	}
	return out
}
