// Package knowledge provides the immutable in-memory knowledge base of
// concepts together with its keyword inverted index.
package knowledge

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// Base is a read-only concept store. It is safe for concurrent use because
// nothing mutates it after New returns.
type Base struct {
	concepts map[string]types.Concept
	order    []string
	terms    map[string]text.Set
	index    map[string][]string
	byName   map[string]string
}

// New validates the concepts and builds the index. Duplicate ids are rejected.
func New(concepts []types.Concept) (*Base, error) {
	kb := &Base{
		concepts: make(map[string]types.Concept, len(concepts)),
		terms:    make(map[string]text.Set, len(concepts)),
		index:    make(map[string][]string),
		byName:   make(map[string]string),
	}

	for _, c := range concepts {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("knowledge: %w", err)
		}
		if _, dup := kb.concepts[c.ID]; dup {
			return nil, fmt.Errorf("knowledge: %w", types.NewError(types.CodeInvalidInput, fmt.Sprintf("duplicate concept id %q", c.ID), types.ErrInvalidInput))
		}
		c.Keywords = append([]string(nil), c.Keywords...)
		c.Related = append([]string(nil), c.Related...)
		kb.concepts[c.ID] = c
		kb.order = append(kb.order, c.ID)
		kb.byName[normalizeName(c.DisplayName())] = c.ID
	}
	sort.Strings(kb.order)

	for _, id := range kb.order {
		terms := ConceptTerms(kb.concepts[id])
		kb.terms[id] = terms
		for tok := range terms {
			kb.index[tok] = append(kb.index[tok], id)
		}
	}

	return kb, nil
}

// Get returns the concept with the given id.
func (kb *Base) Get(id string) (types.Concept, bool) {
	c, ok := kb.concepts[id]
	if !ok {
		return types.Concept{}, false
	}
	return cloneConcept(c), true
}

// Lookup resolves a topic to a concept by id first, then by display name.
func (kb *Base) Lookup(topic string) (types.Concept, bool) {
	if c, ok := kb.Get(topic); ok {
		return c, true
	}
	if id, ok := kb.byName[normalizeName(topic)]; ok {
		return kb.Get(id)
	}
	return kb.Get(strings.ReplaceAll(normalizeName(topic), " ", "_"))
}

// Concepts iterates all concepts in id order.
func (kb *Base) Concepts() iter.Seq[types.Concept] {
	return func(yield func(types.Concept) bool) {
		for _, id := range kb.order {
			if !yield(cloneConcept(kb.concepts[id])) {
				return
			}
		}
	}
}

// Len returns the number of concepts.
func (kb *Base) Len() int {
	return len(kb.order)
}

// IndexLookup returns the ids of concepts whose keyword set contains token.
// The result may be empty.
func (kb *Base) IndexLookup(token string) []string {
	return append([]string(nil), kb.index[strings.ToLower(token)]...)
}

// InIndex reports whether token appears in the inverted index.
func (kb *Base) InIndex(token string) bool {
	_, ok := kb.index[strings.ToLower(token)]
	return ok
}

// Terms returns the full keyword set of a concept: declared keywords, name
// words and the keywords of its definition. The set must not be modified.
func (kb *Base) Terms(id string) text.Set {
	return kb.terms[id]
}

// ConceptTerms builds the keyword set of c.
func ConceptTerms(c types.Concept) text.Set {
	terms := text.NewSet(c.Keywords...)
	for _, w := range text.Tokenize(c.DisplayName()) {
		terms[w] = struct{}{}
	}
	for _, w := range text.Keywords(c.Definition) {
		terms[w] = struct{}{}
	}
	return terms
}

func normalizeName(s string) string {
	return strings.Join(text.Tokenize(strings.ReplaceAll(s, "_", " ")), " ")
}

func cloneConcept(c types.Concept) types.Concept {
	c.Keywords = append([]string(nil), c.Keywords...)
	c.Related = append([]string(nil), c.Related...)
	return c
}
