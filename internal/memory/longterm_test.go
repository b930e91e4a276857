package memory_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/pkg/types"
)

func newLongTerm(t *testing.T, clock *manualClock, dir string, mutate func(*memory.LongTermConfig)) *memory.LongTerm {
	t.Helper()
	cfg := memory.DefaultLongTermConfig()
	cfg.DecayInterval = 0
	cfg.ColdStorageDir = dir
	if mutate != nil {
		mutate(&cfg)
	}
	lt, err := memory.NewLongTerm(cfg, memory.WithLongTermClock(clock.Now))
	require.NoError(t, err)
	return lt
}

func promoted(clock *manualClock, content memory.Content, cs float64, access int, strength float64) memory.WorkingEntry {
	return memory.WorkingEntry{
		Content:            content,
		Type:               types.MemoryEpisodic,
		CreatedAt:          clock.Now(),
		LastAccess:         clock.Now(),
		AccessCount:        access,
		Strength:           strength,
		ConsolidationScore: cs,
	}
}

func TestConsolidateDerivesMetadata(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)

	content := memory.Content{"topic": "Gravity", "text": "objects fall down due to gravity", "score": 3}
	require.True(t, lt.Consolidate("m1", promoted(clock, content, 0.9, 5, 0.8)))

	e, ok := lt.Peek("m1")
	require.True(t, ok)
	assert.InDelta(t, (0.9+0.5+0.8)/3, e.FadeResistance, 1e-9)
	assert.Equal(t, 0.9, e.Importance)
	assert.Equal(t, []string{"objects", "fall", "down", "gravity"}, e.Keywords)
	assert.Equal(t, []string{"general", "gravity"}, e.ClusterTags)
	assert.Equal(t, clock.Now(), e.ConsolidatedAt)
	assert.True(t, lt.IntegrityCheck())

	assert.False(t, lt.Consolidate("", promoted(clock, content, 0.9, 1, 1)))
}

func TestConsolidateKeywordLimit(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)

	content := memory.Content{"text": "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"}
	require.True(t, lt.Consolidate("m1", promoted(clock, content, 0.9, 1, 1)))

	e, _ := lt.Peek("m1")
	assert.Len(t, e.Keywords, 10)
}

func TestAccessResetsFadeClock(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "gravity"}, 0.8, 3, 0.6)))

	const interval = 200 * time.Hour
	clock.Advance(interval)
	lt.DecayCycle(context.Background())

	decayed, _ := lt.Peek("m1")
	assert.Less(t, decayed.Strength, 0.6)
	assert.Greater(t, decayed.Strength, memory.DefaultLongTermConfig().ArchiveThreshold)
	firstLoss := 0.6 - decayed.Strength

	_, ok := lt.Retrieve("m1")
	require.True(t, ok)
	boosted, _ := lt.Peek("m1")
	assert.Greater(t, boosted.Strength, decayed.Strength)
	assert.Equal(t, clock.Now(), boosted.LastAccess)

	clock.Advance(interval)
	lt.DecayCycle(context.Background())

	after, _ := lt.Peek("m1")
	secondLoss := boosted.Strength - after.Strength
	assert.Greater(t, secondLoss, 0.0)
	assert.Less(t, secondLoss, firstLoss)
}

func TestArchiveThenRetrieve(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	lt := newLongTerm(t, clock, dir, nil)
	content := memory.Content{"topic": "photosynthesis", "text": "plants need light"}
	require.True(t, lt.Consolidate("learner/1:event", promoted(clock, content, 0.8, 1, 0.12)))

	clock.Advance(174 * time.Hour)
	st := lt.DecayCycle(context.Background())

	require.Equal(t, 1, st.Archived)
	_, active := lt.Peek("learner/1:event")
	assert.False(t, active)
	assert.True(t, lt.Archived("learner/1:event"))
	assert.True(t, lt.IntegrityCheck())

	cold, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	rec, err := cold.Get("learner/1:event")
	require.NoError(t, err)
	archivedStrength := rec.Strength
	assert.Less(t, archivedStrength, 0.1)

	// A fresh store rebuilds the archive mapping from the directory.
	reopened := newLongTerm(t, clock, dir, nil)
	assert.True(t, reopened.Archived("learner/1:event"))

	got, ok := reopened.Retrieve("learner/1:event")
	require.True(t, ok)
	assert.Equal(t, content, got)

	e, ok := reopened.Peek("learner/1:event")
	require.True(t, ok)
	assert.Greater(t, e.Strength, archivedStrength)
	assert.False(t, reopened.Archived("learner/1:event"))
	assert.NoFileExists(t, cold.Path("learner/1:event"))
	assert.True(t, reopened.IntegrityCheck())
}

func TestRetrieveUnreadableColdRecord(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	cold, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cold.Path("broken"), []byte("{not json"), 0o600))

	lt := newLongTerm(t, clock, dir, nil)
	require.True(t, lt.Archived("broken"))

	_, ok := lt.Retrieve("broken")
	assert.False(t, ok)
	assert.True(t, lt.Archived("broken"), "cold record left in place")
	assert.FileExists(t, cold.Path("broken"))
}

func TestArchiveFailureKeepsEntryActive(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	lt := newLongTerm(t, clock, dir, nil)
	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "x"}, 0.8, 1, 0.12)))

	// A directory at the record path makes the rename fail.
	cold, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(cold.Path("m1"), 0o700))

	clock.Advance(174 * time.Hour)
	st := lt.DecayCycle(context.Background())

	assert.Zero(t, st.Archived)
	_, active := lt.Peek("m1")
	assert.True(t, active)
	assert.False(t, lt.Archived("m1"))
	assert.True(t, lt.IntegrityCheck())
}

func TestIntegrityCheckNeedsColdRecord(t *testing.T) {
	clock := newClock()
	dir := t.TempDir()
	lt := newLongTerm(t, clock, dir, nil)
	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "x"}, 0.8, 1, 0.12)))
	clock.Advance(174 * time.Hour)
	require.Equal(t, 1, lt.DecayCycle(context.Background()).Archived)
	require.True(t, lt.IntegrityCheck())

	cold, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cold.Path("m1")))

	assert.False(t, lt.IntegrityCheck())
}

func TestDecayForgetsBelowFloor(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, t.TempDir(), nil)
	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "fractions"}, 0.8, 1, 0.06)))

	clock.Advance(100 * time.Hour)
	st := lt.DecayCycle(context.Background())

	assert.Equal(t, 1, st.Forgotten)
	_, active := lt.Peek("m1")
	assert.False(t, active)
	assert.False(t, lt.Archived("m1"))
	assert.Empty(t, lt.Search("fractions", 5))
	assert.True(t, lt.IntegrityCheck())
}

func TestLongTermDecayIdempotentAtZeroElapsed(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, t.TempDir(), nil)
	require.True(t, lt.Consolidate("a", promoted(clock, memory.Content{"text": "a"}, 0.9, 2, 0.9)))
	require.True(t, lt.Consolidate("b", promoted(clock, memory.Content{"text": "b"}, 0.8, 1, 0.12)))
	clock.Advance(174 * time.Hour)

	lt.DecayCycle(context.Background())
	a1, _ := lt.Peek("a")
	stats1 := lt.Stats()

	st := lt.DecayCycle(context.Background())
	a2, _ := lt.Peek("a")

	assert.Zero(t, st.Decayed)
	assert.Zero(t, st.Archived)
	assert.Equal(t, a1, a2)
	assert.Equal(t, stats1, lt.Stats())
}

func TestSearch(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	require.True(t, lt.Consolidate("a", promoted(clock, memory.Content{"text": "plants use sunlight for photosynthesis"}, 0.9, 1, 0.5)))
	require.True(t, lt.Consolidate("b", promoted(clock, memory.Content{"text": "gravity pulls objects down"}, 0.9, 1, 0.5)))

	res := lt.Search("photosynthesis sunlight", 5)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
	assert.InDelta(t, 0.6*0.5*0.9, res[0].Relevance, 1e-9)

	e, _ := lt.Peek("a")
	assert.InDelta(t, 0.51, e.Strength, 1e-9, "light access")

	res = lt.Search("sunlight for photo", 5)
	require.Len(t, res, 1)
	assert.InDelta(t, 0.8*0.51*0.9, res[0].Relevance, 1e-9, "keyword plus substring match")

	assert.Empty(t, lt.Search("democracy", 5))
	assert.Empty(t, lt.Search("", 5))
	assert.Empty(t, lt.Search("gravity", 0))
}

func TestSearchOrdersByRelevance(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	require.True(t, lt.Consolidate("weak", promoted(clock, memory.Content{"text": "gravity"}, 0.9, 1, 0.4)))
	require.True(t, lt.Consolidate("strong", promoted(clock, memory.Content{"text": "gravity"}, 0.9, 1, 0.9)))
	require.True(t, lt.Consolidate("other", promoted(clock, memory.Content{"text": "gravity"}, 0.9, 1, 0.6)))

	res := lt.Search("gravity", 2)
	require.Len(t, res, 2)
	assert.Equal(t, "strong", res[0].ID)
	assert.Equal(t, "other", res[1].ID)
}

func TestByCluster(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	require.True(t, lt.Consolidate("g1", promoted(clock, memory.Content{"topic": "gravity"}, 0.9, 1, 0.7)))
	require.True(t, lt.Consolidate("g2", promoted(clock, memory.Content{"topic": "Gravity"}, 0.9, 1, 0.9)))
	require.True(t, lt.Consolidate("w1", promoted(clock, memory.Content{"topic": "water cycle"}, 0.9, 1, 0.5)))

	res := lt.ByCluster("gravity", 5)
	require.Len(t, res, 2)
	assert.Equal(t, "g2", res[0].ID)
	assert.Equal(t, "g1", res[1].ID)

	res = lt.ByCluster("Water Cycle", 5)
	require.Len(t, res, 1)
	assert.Equal(t, "w1", res[0].ID)

	assert.Len(t, lt.ByCluster(memory.GeneralCluster, 2), 2)
	assert.Empty(t, lt.ByCluster("democracy", 5))
}

func TestLongTermCapacity(t *testing.T) {
	t.Run("forgets weakest without cold storage", func(t *testing.T) {
		clock := newClock()
		lt := newLongTerm(t, clock, "", func(c *memory.LongTermConfig) { c.Capacity = 2 })
		require.True(t, lt.Consolidate("a", promoted(clock, memory.Content{}, 0.9, 1, 0.3)))
		require.True(t, lt.Consolidate("b", promoted(clock, memory.Content{}, 0.9, 1, 0.9)))
		require.True(t, lt.Consolidate("c", promoted(clock, memory.Content{}, 0.9, 1, 0.9)))

		assert.Equal(t, 2, lt.Len())
		_, ok := lt.Peek("a")
		assert.False(t, ok)
		assert.True(t, lt.IntegrityCheck())
	})

	t.Run("archives weakest with cold storage", func(t *testing.T) {
		clock := newClock()
		lt := newLongTerm(t, clock, t.TempDir(), func(c *memory.LongTermConfig) { c.Capacity = 2 })
		require.True(t, lt.Consolidate("a", promoted(clock, memory.Content{}, 0.9, 1, 0.3)))
		require.True(t, lt.Consolidate("b", promoted(clock, memory.Content{}, 0.9, 1, 0.9)))
		require.True(t, lt.Consolidate("c", promoted(clock, memory.Content{}, 0.9, 1, 0.9)))

		assert.Equal(t, 2, lt.Len())
		assert.True(t, lt.Archived("a"))
		assert.True(t, lt.IntegrityCheck())
	})
}

func TestConsolidateReplacesArchivedCopy(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, t.TempDir(), nil)
	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "x"}, 0.8, 1, 0.12)))
	clock.Advance(174 * time.Hour)
	lt.DecayCycle(context.Background())
	require.True(t, lt.Archived("m1"))

	require.True(t, lt.Consolidate("m1", promoted(clock, memory.Content{"text": "y"}, 0.9, 1, 1)))

	assert.False(t, lt.Archived("m1"))
	e, ok := lt.Peek("m1")
	require.True(t, ok)
	assert.Equal(t, "y", e.Content["text"])
	assert.True(t, lt.IntegrityCheck())
}

func TestLongTermStats(t *testing.T) {
	clock := newClock()
	lt := newLongTerm(t, clock, "", nil)
	require.True(t, lt.Consolidate("a", promoted(clock, memory.Content{"text": "gravity"}, 0.9, 1, 0.5)))
	require.True(t, lt.Consolidate("b", promoted(clock, memory.Content{"text": "energy"}, 0.9, 1, 0.5)))
	lt.Retrieve("a")
	lt.Retrieve("a")
	lt.Search("energy", 5)

	st := lt.Stats()
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 3, st.TotalAccesses)
	assert.Equal(t, "a", st.MostAccessedID)
	assert.Equal(t, 2, st.UniqueAccessed)
	assert.Equal(t, 2, st.TypeDistribution[types.MemoryEpisodic])
	assert.Equal(t, 1, st.Clusters)
}
