package inquiry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/internal/knowledge"
	"github.com/scrypster/socratic/pkg/types"
)

func TestComputable(t *testing.T) {
	assert.False(t, inquiry.Computable(types.Context{}))
	assert.False(t, inquiry.Computable(types.Context{LearningHistory: []string{"gravity"}}))
	assert.True(t, inquiry.Computable(types.Context{CurrentTopic: "gravity"}))
	assert.True(t, inquiry.Computable(types.Context{LearnerLevel: types.Float(0)}))
	assert.True(t, inquiry.Computable(types.Context{CurrentPerformance: types.Float(0)}))
}

func TestDifficulty(t *testing.T) {
	e := inquiry.NewCoordinateEngine(nil)
	tests := []struct {
		name string
		ctx  types.Context
		want float64
	}{
		{"high performance raises", types.Context{LearnerLevel: types.Float(0.5), CurrentPerformance: types.Float(0.9)}, 0.7},
		{"raise is capped", types.Context{LearnerLevel: types.Float(0.95), CurrentPerformance: types.Float(0.9)}, 1},
		{"low performance lowers", types.Context{LearnerLevel: types.Float(0.5), CurrentPerformance: types.Float(0.2)}, 0.3},
		{"lower is floored", types.Context{LearnerLevel: types.Float(0.1), CurrentPerformance: types.Float(0.2)}, 0},
		{"middle band blends complexity", types.Context{LearnerLevel: types.Float(0.4), CurrentPerformance: types.Float(0.6), TopicComplexity: types.Float(0.8)}, 0.6},
		{"defaults", types.Context{}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Difficulty(tt.ctx), 1e-9)
		})
	}
}

func TestRelatedness(t *testing.T) {
	e := inquiry.NewCoordinateEngine(knowledge.Default())

	t.Run("empty history is neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, e.Relatedness(types.Context{CurrentTopic: "gravity"}))
	})

	t.Run("same topic", func(t *testing.T) {
		c := types.Context{CurrentTopic: "gravity", LearningHistory: []string{"gravity"}}
		assert.InDelta(t, 0.3+0.125+0.06+0.25, e.Relatedness(c), 1e-9)
	})

	t.Run("context scores override defaults", func(t *testing.T) {
		c := types.Context{
			CurrentTopic:       "gravity",
			LearningHistory:    []string{"gravity"},
			SemanticSimilarity: map[string]float64{"gravity": 1},
			PrincipleOverlap:   map[string]float64{"gravity": 1},
		}
		assert.InDelta(t, 1.0, e.Relatedness(c), 1e-9)
	})

	t.Run("different subject", func(t *testing.T) {
		c := types.Context{CurrentTopic: "gravity", LearningHistory: []string{"democracy"}}
		assert.InDelta(t, 0.125+0.06+0.05, e.Relatedness(c), 1e-9)
	})

	t.Run("only the last three topics count", func(t *testing.T) {
		c := types.Context{CurrentTopic: "gravity", LearningHistory: []string{"democracy", "gravity", "gravity", "gravity"}}
		assert.InDelta(t, 0.735, e.Relatedness(c), 1e-9)
	})

	t.Run("unknown topics compare their words", func(t *testing.T) {
		c := types.Context{CurrentTopic: "quantum foam", LearningHistory: []string{"quantum mechanics"}}
		assert.InDelta(t, 0.1+0.125+0.06+0.25, e.Relatedness(c), 1e-9)
	})
}

func TestCoordinatesClamped(t *testing.T) {
	e := inquiry.NewCoordinateEngine(nil)

	c, ok := e.Coordinates(types.Context{
		LearnerLevel:       types.Float(4),
		CurrentPerformance: types.Float(0.5),
		TopicComplexity:    types.Float(4),
	})

	assert.True(t, ok)
	assert.Equal(t, 1.0, c.Difficulty)
	assert.Equal(t, 0.5, c.Relatedness)

	_, ok = e.Coordinates(types.Context{})
	assert.False(t, ok)
}
