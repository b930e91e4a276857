package truth

import (
	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// Score composition weights.
const (
	weightProximity   = 0.15
	weightSubject     = 0.10
	weightBreadthStep = 0.08
	maxBreadthBonus   = 0.20
	weightCovered     = 0.10

	unnaturalListPenalty = 0.45
	lowProximity         = 0.2

	// listKeywordRatio is the keyword share above which a connective-free
	// statement is treated as a bare list.
	listKeywordRatio = 0.7
)

// isKeywordList reports whether the statement reads as a bare keyword list:
// more than three tokens, no connective words and mostly keywords.
func isKeywordList(tokens []string, keywords []string) bool {
	if len(tokens) <= 3 {
		return false
	}
	for _, tok := range tokens {
		if text.IsConnective(tok) {
			return false
		}
	}
	return float64(len(keywords))/float64(len(tokens)) >= listKeywordRatio
}

// proximityScore measures how close the query keywords sit to each other in
// the statement. Fewer than two keywords, or a bare list, score low.
func proximityScore(tokens []string, keywords []string) float64 {
	if len(keywords) < 2 || isKeywordList(tokens, keywords) {
		return lowProximity
	}

	positions := make(map[string][]int, len(keywords))
	for i, tok := range tokens {
		positions[tok] = append(positions[tok], i)
	}

	total, pairs := 0, 0
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			total += minDistance(positions[keywords[i]], positions[keywords[j]])
			pairs++
		}
	}
	return proximityBand(float64(total) / float64(pairs))
}

func minDistance(a, b []int) int {
	best := -1
	for _, x := range a {
		for _, y := range b {
			d := x - y
			if d < 0 {
				d = -d
			}
			if best < 0 || d < best {
				best = d
			}
		}
	}
	return best
}

func proximityBand(avg float64) float64 {
	switch {
	case avg <= 2:
		return 1.0
	case avg <= 4:
		return 0.8
	case avg <= 7:
		return 0.6
	case avg <= 12:
		return 0.4
	default:
		return 0.2
	}
}

// subjectConsistency is the banded share of the dominant subject among the
// given concepts.
func subjectConsistency(top []Correlation) float64 {
	if len(top) == 0 {
		return 0
	}
	counts := make(map[types.Subject]int, len(top))
	dominant := 0
	for _, c := range top {
		counts[c.Subject]++
		if counts[c.Subject] > dominant {
			dominant = counts[c.Subject]
		}
	}
	frac := float64(dominant) / float64(len(top))
	switch {
	case frac >= 0.8:
		return 1.0
	case frac >= 0.6:
		return 0.8
	case frac >= 0.4:
		return 0.6
	default:
		return 0.3
	}
}

// breadthBonus rewards statements that touch several concepts.
func breadthBonus(n int) float64 {
	b := weightBreadthStep * float64(n)
	if b > maxBreadthBonus {
		return maxBreadthBonus
	}
	return b
}
