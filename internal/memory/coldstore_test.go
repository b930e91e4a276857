package memory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/pkg/types"
)

func TestColdStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	e := memory.LongTermEntry{
		ID:          "learner-1/event:7",
		Content:     memory.Content{"topic": "maps"},
		Type:        types.MemorySemantic,
		CreatedAt:   at,
		LastAccess:  at,
		Strength:    0.08,
		Keywords:    []string{"maps"},
		ClusterTags: []string{"general", "maps"},
	}

	path, err := s.Put(e)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, s.Path(e.ID), path)

	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	ids, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, ids)

	require.NoError(t, s.Delete(e.ID))
	require.NoError(t, s.Delete(e.ID), "deleting a missing record is not an error")
	ids, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestColdStoreIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "!!!.json"), []byte("{}"), 0o600))

	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestColdStoreGetMissing(t *testing.T) {
	s, err := memory.NewColdStore(t.TempDir(), 3, time.Minute)
	require.NoError(t, err)

	_, err = s.Get("nope")
	require.Error(t, err)
	assert.Equal(t, types.CodeIO, types.CodeOf(err))
}

func TestColdStoreCircuitOpensAfterFailures(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.NewColdStore(dir, 2, time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	e := memory.LongTermEntry{ID: "m1"}
	for i := 0; i < 2; i++ {
		_, err := s.Put(e)
		require.Error(t, err)
		assert.Equal(t, types.CodeIO, types.CodeOf(err))
	}

	_, err = s.Put(e)
	assert.ErrorIs(t, err, memory.ErrArchiveCircuitOpen)
	assert.Equal(t, "open", s.CircuitState())
}

func TestColdStoreStageCommitDiscard(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	e := memory.LongTermEntry{ID: "m1", Content: memory.Content{"text": "x"}}

	staged, err := s.Stage(e)
	require.NoError(t, err)
	ids, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, ids, "a staged record is not archived yet")

	path, err := s.Commit(e.ID, staged)
	require.NoError(t, err)
	assert.Equal(t, s.Path(e.ID), path)
	assert.NoFileExists(t, staged)
	got, err := s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Content["text"])

	other, err := s.Stage(memory.LongTermEntry{ID: "m1", Content: memory.Content{"text": "y"}})
	require.NoError(t, err)
	require.NoError(t, s.Discard(other))
	assert.NoFileExists(t, other)
	got, err = s.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Content["text"], "discarding a staged copy leaves the archive alone")
}

func TestColdStoreRemovesLeftoverStaging(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)
	staged, err := s.Stage(memory.LongTermEntry{ID: "m1"})
	require.NoError(t, err)

	_, err = memory.NewColdStore(dir, 3, time.Minute)
	require.NoError(t, err)

	assert.NoFileExists(t, staged)
}
