package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsedHoursUsesLaterReference(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 10.0, elapsedHours(base.Add(10*time.Hour), base, time.Time{}))
	assert.Equal(t, 4.0, elapsedHours(base.Add(10*time.Hour), base, base.Add(6*time.Hour)))
	assert.Equal(t, 0.0, elapsedHours(base, base.Add(time.Hour), time.Time{}), "clock skew clamps to zero")
}

func TestDecayFunctions(t *testing.T) {
	assert.InDelta(t, math.Exp(-0.1), fastDecay(1, 0.1, 1), 1e-12)
	assert.Equal(t, minDecayFactor, fastDecay(0.5, 0.1, 1000))

	assert.InDelta(t, 0.5*math.Exp(-0.002*10), slowDecay(0.5, 0.001, 0.5, 10), 1e-12)
	assert.InDelta(t, 0.5*minDecayFactor, slowDecay(0.5, 0.001, 0.1, 1e6), 1e-12, "factor is floored, not strength")
	assert.Equal(t, slowDecay(0.5, 0.001, 0.1, 10), slowDecay(0.5, 0.001, 0.01, 10), "fade resistance floor")
}

func TestScores(t *testing.T) {
	assert.InDelta(t, (0+0.1+1)/3, consolidationScore(0, 1, 1), 1e-12)
	assert.Equal(t, 1.0, consolidationScore(48, 1, 1))

	assert.Equal(t, minFadeResistance, fadeResistance(0, 0, 0))
	assert.Equal(t, 1.0, fadeResistance(1, 50, 1))
	assert.InDelta(t, (0.8+0.3+0.6)/3, fadeResistance(0.8, 3, 0.6), 1e-12)
}

func TestDecayPass(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := newDecayPass(time.Minute)
	ids := func() []string { return []string{"a", "b", "c"} }

	assert.True(t, p.begin(now, ids))
	assert.Equal(t, []string{"a", "b"}, p.next(2))

	p.requeue([]string{"b"})
	assert.True(t, p.begin(now, ids), "a pass in progress is never throttled")
	assert.Equal(t, []string{"b", "c"}, p.next(5))
	assert.True(t, p.done())

	assert.False(t, p.begin(now.Add(30*time.Second), ids))
	assert.True(t, p.begin(now.Add(61*time.Second), ids))
}
