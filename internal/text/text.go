// Package text provides the tokenizer and keyword extraction shared by the
// truth engine and long-term memory.
package text

import (
	"strings"
	"unicode"
)

// stopwords are discarded during keyword extraction. The set includes every
// connective.
var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "nor", "so", "yet", "for",
	"is", "are", "was", "were", "be", "been", "being", "am",
	"do", "does", "did", "doing", "done", "has", "have", "had", "having",
	"it", "its", "they", "them", "their", "theirs", "this", "that", "these", "those",
	"he", "she", "him", "her", "his", "hers", "we", "us", "our", "you", "your", "i", "me", "my",
	"of", "in", "on", "at", "to", "from", "by", "with", "without", "into", "onto", "over", "under",
	"about", "above", "below", "between", "through", "during", "before", "after", "against",
	"as", "if", "then", "than", "when", "while", "where", "which", "who", "whom", "whose", "what", "why", "how",
	"because", "since", "although", "though", "unless", "until", "whereas", "due", "therefore", "thus", "hence",
	"not", "no", "can", "could", "will", "would", "shall", "should", "may", "might", "must",
	"all", "any", "each", "some", "such", "very", "also", "just", "only", "own", "same", "other",
	"there", "here", "out", "off", "too", "more", "most", "much", "many", "few",
)

// connectives are the words that glue a natural sentence together. A token
// sequence without any of them reads as a bare keyword list.
var connectives = toSet(
	"and", "or", "but", "because", "when", "while", "if", "then", "so", "than",
	"that", "which", "who", "where", "due", "to", "of", "in", "on", "with", "by",
	"for", "from", "as", "into", "through", "they", "it", "is", "are", "was", "were",
	"the", "a", "an", "since", "therefore", "although", "can", "does", "do",
)

// Tokenize lowercases s, strips punctuation and splits it into words in order.
// Apostrophes are removed so contractions stay one token.
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// IsStopword reports whether tok is in the built-in stopword set.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// IsConnective reports whether tok is a connective word.
func IsConnective(tok string) bool {
	_, ok := connectives[tok]
	return ok
}

// IsKeyword reports whether tok survives keyword filtering: not a stopword,
// longer than two characters and not purely numeric.
func IsKeyword(tok string) bool {
	if len([]rune(tok)) <= 2 || IsStopword(tok) {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Keywords extracts the distinct keywords of s in first-occurrence order.
func Keywords(s string) []string {
	return FilterKeywords(Tokenize(s))
}

// FilterKeywords keeps the distinct keyword tokens in first-occurrence order.
func FilterKeywords(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !IsKeyword(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Set is an unordered token set.
type Set map[string]struct{}

// NewSet builds a set from tokens.
func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// HasAny reports whether any of toks is in s.
func (s Set) HasAny(toks ...string) bool {
	for _, t := range toks {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Intersect returns the tokens of s also in o.
func (s Set) Intersect(o Set) Set {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(Set)
	for t := range small {
		if large.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Jaccard returns |s ∩ o| / |s ∪ o|, or 0 when both are empty.
func (s Set) Jaccard(o Set) float64 {
	inter := len(s.Intersect(o))
	union := len(s) + len(o) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
