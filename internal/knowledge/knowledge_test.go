package knowledge_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/socratic/internal/knowledge"
	"github.com/scrypster/socratic/pkg/types"
)

func gravityOnly(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.New([]types.Concept{{
		ID:         "gravity",
		Subject:    types.SubjectScience,
		Definition: "Objects fall downward due to gravity",
		Keywords:   []string{"gravity", "fall", "down", "objects"},
	}})
	require.NoError(t, err)
	return kb
}

func TestGetAndNotFound(t *testing.T) {
	kb := gravityOnly(t)

	c, ok := kb.Get("gravity")
	require.True(t, ok)
	assert.Equal(t, types.SubjectScience, c.Subject)

	_, ok = kb.Get("magnetism")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	kb := gravityOnly(t)

	c, _ := kb.Get("gravity")
	c.Keywords[0] = "mutated"

	again, _ := kb.Get("gravity")
	assert.Equal(t, "gravity", again.Keywords[0])
}

func TestIndexLookup(t *testing.T) {
	kb := gravityOnly(t)

	assert.Equal(t, []string{"gravity"}, kb.IndexLookup("fall"))
	assert.Equal(t, []string{"gravity"}, kb.IndexLookup("downward"), "definition words are indexed")
	assert.Empty(t, kb.IndexLookup("democracy"))
	assert.True(t, kb.InIndex("Objects"))
}

func TestConceptsIteratesInIDOrder(t *testing.T) {
	kb := knowledge.Default()

	var ids []string
	for c := range kb.Concepts() {
		ids = append(ids, c.ID)
	}
	assert.Len(t, ids, kb.Len())
	assert.IsNonDecreasing(t, ids)
}

func TestConceptsStopsEarly(t *testing.T) {
	kb := knowledge.Default()

	n := 0
	for range kb.Concepts() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestLookupByName(t *testing.T) {
	kb := knowledge.Default()

	c, ok := kb.Lookup("Water Cycle")
	require.True(t, ok)
	assert.Equal(t, "water_cycle", c.ID)

	c, ok = kb.Lookup("newton's laws")
	require.True(t, ok)
	assert.Equal(t, "newtons_laws", c.ID)

	_, ok = kb.Lookup("quantum chromodynamics")
	assert.False(t, ok)
}

func TestNewRejectsInvalidConcepts(t *testing.T) {
	_, err := knowledge.New([]types.Concept{{ID: "x", Subject: types.SubjectMath}})
	require.Error(t, err)
	assert.Equal(t, types.CodeInvalidInput, types.CodeOf(err))

	dup := types.Concept{ID: "x", Subject: types.SubjectMath, Keywords: []string{"x"}}
	_, err = knowledge.New([]types.Concept{dup, dup})
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	doc := `
concepts:
  - id: magnets
    subject: science
    definition: Magnets attract iron.
    keywords: [magnet, iron, attract]
`
	kb, err := knowledge.LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, kb.Len())
	assert.Equal(t, []string{"magnets"}, kb.IndexLookup("iron"))
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	doc := `
concepts:
  - id: magnets
    subject: science
    colour: red
    keywords: [magnet]
`
	_, err := knowledge.LoadYAML(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestDefaultConceptsAreValid(t *testing.T) {
	kb := knowledge.Default()
	for c := range kb.Concepts() {
		assert.NoError(t, c.Validate(), c.ID)
		assert.NotEmpty(t, kb.Terms(c.ID))
	}
	_, ok := kb.Get("photosynthesis")
	assert.True(t, ok)
}
