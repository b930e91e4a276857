package inquiry

import (
	"strings"

	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// defaultTriggers are the built-in trigger phrases. The first phrase of each
// type is its canonical trigger.
var defaultTriggers = map[types.QuestionType][]string{
	types.Expand:  {"go deeper", "tell me more", "more detail", "expand"},
	types.Explore: {"something new", "what else", "show me something different", "explore"},
	types.Extend:  {"apply it", "real world", "how can i use this", "extend"},
	types.Review:  {"recap", "go over it again", "summarize", "review"},
}

// CanonicalTrigger returns the built-in trigger phrase that selects q.
func CanonicalTrigger(q types.QuestionType) string {
	return defaultTriggers[q][0]
}

// normalizeTrigger lowercases a phrase, drops punctuation and collapses
// whitespace so "Go deeper!" matches "go deeper".
func normalizeTrigger(s string) string {
	return strings.Join(text.Tokenize(s), " ")
}

// Situational cues read from the learner's last response by the common-sense
// rules.
var (
	supportCues   = []string{"help", "confused", "stuck", "lost", "unsure", "dont understand", "too hard"}
	discoveryCues = []string{"wonder", "curious", "discover"}
	buildOnCues   = []string{"build on", "next step", "harder"}
	applyToCues   = []string{"apply", "use it", "practice"}
)

// commonSense applies the situational rule table: support wanted gives
// REVIEW, discovery EXPLORE, building on EXPAND, applying EXTEND. Signals are
// consulted before cues in the last response.
func commonSense(c types.Context) (types.QuestionType, bool) {
	if c.ReviewAllowed() && (c.HasSignal(types.SignalStruggling) || c.HasSignal(types.SignalHelpSeeking) ||
		c.HasSignal(types.SignalSafety) || c.HasSignal(types.SignalComplexityWarning)) {
		return types.Review, true
	}
	switch {
	case c.HasSignal(types.SignalDiscovery):
		return types.Explore, true
	case c.HasSignal(types.SignalBuildOn):
		return types.Expand, true
	case c.HasSignal(types.SignalApplyTo):
		return types.Extend, true
	}

	if c.LastResponse == "" {
		return "", false
	}
	resp := " " + normalizeTrigger(c.LastResponse) + " "
	switch {
	case c.ReviewAllowed() && hasCue(resp, supportCues):
		return types.Review, true
	case hasCue(resp, discoveryCues):
		return types.Explore, true
	case hasCue(resp, buildOnCues):
		return types.Expand, true
	case hasCue(resp, applyToCues):
		return types.Extend, true
	}
	return "", false
}

func hasCue(padded string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(padded, " "+cue+" ") {
			return true
		}
	}
	return false
}
