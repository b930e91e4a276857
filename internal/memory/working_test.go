package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/pkg/types"
)

func newWorking(t *testing.T, clock *manualClock, mutate func(*memory.WorkingConfig), opts ...memory.WorkingOption) *memory.Working {
	t.Helper()
	cfg := memory.DefaultWorkingConfig()
	cfg.DecayInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]memory.WorkingOption{memory.WithWorkingClock(clock.Now)}, opts...)
	w, err := memory.NewWorking(cfg, opts...)
	require.NoError(t, err)
	return w
}

func TestWorkingStoreAndRetrieve(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, nil)

	require.True(t, w.Store("a", memory.Content{"topic": "gravity"}, ""))

	got, ok := w.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, "gravity", got["topic"])

	got["topic"] = "mutated"
	again, _ := w.Retrieve("a")
	assert.Equal(t, "gravity", again["topic"])

	e, ok := w.Peek("a")
	require.True(t, ok)
	assert.Equal(t, types.MemoryWorking, e.Type)
	assert.Equal(t, 3, e.AccessCount)
	assert.Equal(t, 1.0, e.Strength)
}

func TestWorkingRejectsInvalidInput(t *testing.T) {
	w := newWorking(t, newClock(), nil)

	assert.False(t, w.Store("", memory.Content{}, ""))
	assert.False(t, w.Store("a", memory.Content{}, "dream"))

	_, ok := w.Retrieve("missing")
	assert.False(t, ok)
	assert.False(t, w.Update("missing", memory.Content{"x": 1}))
}

func TestWorkingUpdateMerges(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, nil)
	require.True(t, w.Store("a", memory.Content{"q": "why"}, types.MemoryEpisodic))

	clock.Advance(30 * time.Minute)
	require.True(t, w.Update("a", memory.Content{"r": "because"}))

	e, _ := w.Peek("a")
	assert.Equal(t, memory.Content{"q": "why", "r": "because"}, e.Content)
	assert.Equal(t, 2, e.AccessCount)
	assert.Equal(t, clock.Now(), e.LastAccess)
	// (0.5h + 0.2 + 1.0) / 3
	assert.InDelta(t, 1.7/3, e.ConsolidationScore, 1e-9)
}

func TestWorkingEvictsWeakest(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, func(c *memory.WorkingConfig) { c.Capacity = 3 })

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, w.Store(id, memory.Content{"id": id}, ""))
	}
	clock.Advance(2 * time.Hour)
	w.DecayCycle(context.Background())
	w.Retrieve("b")
	w.Retrieve("c")

	require.True(t, w.Store("d", memory.Content{"id": "d"}, ""))

	assert.Equal(t, 3, w.Len())
	_, ok := w.Peek("a")
	assert.False(t, ok, "weakest entry evicted")
	assert.True(t, w.IntegrityCheck())
}

func TestWorkingConsolidationPromotes(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	w := newWorking(t, clock, nil, memory.WithConsolidator(lt))

	original := memory.Content{"topic": "gravity", "text": "objects fall"}
	require.True(t, w.Store("e1", original, types.MemoryEpisodic))
	for _, id := range []string{"e2", "e3", "e4", "e5"} {
		require.True(t, w.Store(id, memory.Content{"id": id}, ""))
	}

	first, _ := w.Peek("e1")
	prev := first.ConsolidationScore
	for i := 0; i < 10 && prev < 0.8; i++ {
		clock.Advance(15 * time.Minute)
		_, ok := w.Retrieve("e1")
		require.True(t, ok)
		e, _ := w.Peek("e1")
		assert.Greater(t, e.ConsolidationScore, prev)
		prev = e.ConsolidationScore
	}
	require.GreaterOrEqual(t, prev, 0.8)

	st := w.DecayCycle(context.Background())

	assert.Equal(t, 1, st.Promoted)
	assert.Zero(t, st.Forgotten)
	_, inWorking := w.Peek("e1")
	assert.False(t, inWorking)
	assert.Equal(t, 4, w.Len())

	got, ok := lt.Retrieve("e1")
	require.True(t, ok)
	assert.Equal(t, original, got)

	promoted, _ := lt.Peek("e1")
	assert.Equal(t, types.MemoryEpisodic, promoted.Type)
	assert.Contains(t, promoted.ClusterTags, "gravity")
}

func TestWorkingForgetsWeakEntries(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, nil)
	require.True(t, w.Store("a", memory.Content{}, ""))

	clock.Advance(30 * time.Hour)
	st := w.DecayCycle(context.Background())

	assert.Equal(t, 1, st.Forgotten)
	assert.Zero(t, w.Len())
}

func TestWorkingDecayThrottle(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, func(c *memory.WorkingConfig) { c.DecayInterval = time.Minute })
	require.True(t, w.Store("a", memory.Content{}, ""))

	assert.False(t, w.DecayCycle(context.Background()).Skipped)
	assert.True(t, w.DecayCycle(context.Background()).Skipped)

	clock.Advance(61 * time.Second)
	assert.False(t, w.DecayCycle(context.Background()).Skipped)
}

func TestWorkingDecayIdempotentAtZeroElapsed(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, nil)
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, w.Store(id, memory.Content{"id": id}, ""))
	}
	clock.Advance(time.Hour)

	w.DecayCycle(context.Background())
	once := snapshotWorking(w, "a", "b", "c")
	w.DecayCycle(context.Background())

	assert.Equal(t, once, snapshotWorking(w, "a", "b", "c"))
}

func TestWorkingDecayResumesAfterCancel(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, func(c *memory.WorkingConfig) { c.DecayInterval = time.Minute })
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, w.Store(id, memory.Content{}, ""))
	}
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := w.DecayCycle(ctx)
	assert.True(t, st.Interrupted)
	assert.Zero(t, st.Processed)

	st = w.DecayCycle(context.Background())
	assert.False(t, st.Skipped, "an interrupted pass resumes without waiting for the interval")
	assert.Equal(t, 3, st.Processed)
	assert.Equal(t, 3, st.Decayed)
}

func TestWorkingDecayStepBatches(t *testing.T) {
	clock := newClock()
	w := newWorking(t, clock, nil)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.True(t, w.Store(id, memory.Content{}, ""))
	}

	var processed []int
	for {
		st, done := w.DecayStep(context.Background(), 2)
		processed = append(processed, st.Processed)
		if done {
			break
		}
	}
	assert.Equal(t, []int{2, 2, 1}, processed)
}

func TestWorkingStats(t *testing.T) {
	w := newWorking(t, newClock(), func(c *memory.WorkingConfig) { c.Capacity = 4 })
	require.True(t, w.Store("a", memory.Content{}, types.MemoryEpisodic))
	require.True(t, w.Store("b", memory.Content{}, types.MemorySemantic))
	w.Retrieve("a")

	st := w.Stats()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 0.5, st.Utilization)
	assert.Equal(t, 3, st.TotalAccesses)
	assert.Equal(t, 1, st.TypeDistribution[types.MemoryEpisodic])
	assert.Equal(t, 1.0, st.AverageStrength)
}

func TestWorkingConfigValidate(t *testing.T) {
	assert.NoError(t, memory.DefaultWorkingConfig().Validate())

	cfg := memory.DefaultWorkingConfig()
	cfg.Capacity = 0
	assert.Error(t, cfg.Validate())

	cfg = memory.DefaultWorkingConfig()
	cfg.ConsolidationThreshold = 1.5
	_, err := memory.NewWorking(cfg)
	assert.Error(t, err)
}

func snapshotWorking(w *memory.Working, ids ...string) map[string]memory.WorkingEntry {
	out := make(map[string]memory.WorkingEntry)
	for _, id := range ids {
		if e, ok := w.Peek(id); ok {
			out[id] = e
		}
	}
	return out
}
