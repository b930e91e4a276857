package memory

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scrypster/socratic/pkg/types"
)

const (
	coldFileExt  = ".json"
	stageFileExt = ".stage"
)

// ErrArchiveCircuitOpen is returned when archive writes are suspended after
// repeated failures.
var ErrArchiveCircuitOpen = errors.New("cold storage: archive circuit is open")

// ColdStore keeps one JSON file per archived long-term entry in a directory.
// File names are the URL-safe base64 of the memory id, so the id set can be
// rebuilt by listing the directory.
type ColdStore struct {
	dir     string
	breaker *gobreaker.CircuitBreaker
}

// NewColdStore creates the directory if needed. Writes go through a circuit
// breaker that opens after maxFailures consecutive failures and half-opens
// after retry.
func NewColdStore(dir string, maxFailures uint32, retry time.Duration) (*ColdStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cold storage: mkdir %s: %w", dir, err)
	}
	if maxFailures == 0 {
		maxFailures = 3
	}
	settings := gobreaker.Settings{
		Name:        "ColdStorageArchive",
		MaxRequests: 1,
		Interval:    0, // Don't clear counts periodically
		Timeout:     retry,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	s := &ColdStore{dir: dir, breaker: gobreaker.NewCircuitBreaker(settings)}
	s.removeStaged()
	return s, nil
}

// Dir returns the storage directory.
func (s *ColdStore) Dir() string {
	return s.dir
}

// Path returns the file path for id.
func (s *ColdStore) Path(id string) string {
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(id))+coldFileExt)
}

// Put writes e to its file through the archive circuit breaker. The write goes
// to a staging file first and is renamed into place.
func (s *ColdStore) Put(e LongTermEntry) (string, error) {
	path := s.Path(e.ID)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		staged, err := s.writeStaged(e)
		if err != nil {
			return nil, err
		}
		if err := os.Rename(staged, path); err != nil {
			_ = os.Remove(staged)
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return "", breakerError("archive "+e.ID, err)
	}
	return path, nil
}

// Stage writes e to a uniquely named staging file through the archive circuit
// breaker. Get and List do not see the record until Commit moves it into
// place; Discard drops it.
func (s *ColdStore) Stage(e LongTermEntry) (string, error) {
	var staged string
	_, err := s.breaker.Execute(func() (interface{}, error) {
		var err error
		staged, err = s.writeStaged(e)
		return nil, err
	})
	if err != nil {
		return "", breakerError("stage "+e.ID, err)
	}
	return staged, nil
}

// Commit renames a staged record into place as the archive of id. A failed
// rename removes the staged file.
func (s *ColdStore) Commit(id, staged string) (string, error) {
	path := s.Path(id)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		if err := os.Rename(staged, path); err != nil {
			_ = os.Remove(staged)
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return "", breakerError("commit "+id, err)
	}
	return path, nil
}

// Discard removes a staged record that will not be committed.
func (s *ColdStore) Discard(staged string) error {
	if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewError(types.CodeIO, "discard "+filepath.Base(staged), err)
	}
	return nil
}

func (s *ColdStore) writeStaged(e LongTermEntry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(s.dir, base64.RawURLEncoding.EncodeToString([]byte(e.ID))+".*"+stageFileExt)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// removeStaged clears staging files left by an interrupted archive.
func (s *ColdStore) removeStaged() {
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*"+stageFileExt))
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func breakerError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrArchiveCircuitOpen
	}
	return types.NewError(types.CodeIO, op, err)
}

// Get reads the archived entry for id.
func (s *ColdStore) Get(id string) (LongTermEntry, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return LongTermEntry{}, types.NewError(types.CodeIO, "read "+id, err)
	}
	var e LongTermEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return LongTermEntry{}, types.NewError(types.CodeIO, "decode "+id, err)
	}
	if e.ID != id {
		return LongTermEntry{}, types.NewError(types.CodeIO, fmt.Sprintf("record %s holds id %q", id, e.ID), nil)
	}
	return e, nil
}

// Delete removes the archived entry for id. A missing file is not an error.
func (s *ColdStore) Delete(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewError(types.CodeIO, "delete "+id, err)
	}
	return nil
}

// List returns the ids of all archived entries. Files that do not decode to
// an id are ignored.
func (s *ColdStore) List() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, types.NewError(types.CodeIO, "list "+s.dir, err)
	}
	var ids []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, coldFileExt) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, coldFileExt))
		if err != nil || len(raw) == 0 {
			continue
		}
		ids = append(ids, string(raw))
	}
	return ids, nil
}

// CircuitState returns the archive breaker state name.
func (s *ColdStore) CircuitState() string {
	return s.breaker.State().String()
}
