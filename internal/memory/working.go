package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/pkg/types"
)

// Consolidator accepts working memory entries promoted to long-term memory.
// LongTerm implements it.
type Consolidator interface {
	Consolidate(id string, e WorkingEntry) bool
}

// Working is the short-term memory store. All operations hold the store lock
// for their duration; decay passes release it between batches.
type Working struct {
	cfg          WorkingConfig
	consolidator Consolidator
	logger       zerolog.Logger
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]*WorkingEntry
	pass    *decayPass
}

// WorkingOption configures a Working store.
type WorkingOption func(*Working)

// WithConsolidator sets the promotion target. Without one, entries that reach
// the consolidation threshold stay in working memory.
func WithConsolidator(c Consolidator) WorkingOption {
	return func(w *Working) { w.consolidator = c }
}

// WithWorkingLogger sets the store logger.
func WithWorkingLogger(l zerolog.Logger) WorkingOption {
	return func(w *Working) { w.logger = l }
}

// WithWorkingClock sets the time source.
func WithWorkingClock(now func() time.Time) WorkingOption {
	return func(w *Working) { w.now = now }
}

// NewWorking creates a working memory store.
func NewWorking(cfg WorkingConfig, opts ...WorkingOption) (*Working, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	w := &Working{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		now:     time.Now,
		entries: make(map[string]*WorkingEntry, cfg.Capacity),
		pass:    newDecayPass(cfg.DecayInterval),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Store inserts or replaces an entry with full strength. When the store is at
// capacity the weakest entry is evicted first. An empty memType means
// working. Store reports false for an empty id or an unknown memory type.
func (w *Working) Store(id string, content Content, memType types.MemoryType) bool {
	if id == "" {
		return false
	}
	if memType == "" {
		memType = types.MemoryWorking
	}
	if !memType.IsValid() {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if _, exists := w.entries[id]; !exists && len(w.entries) >= w.cfg.Capacity {
		w.evictWeakestLocked()
	}

	e := &WorkingEntry{
		ID:          id,
		Content:     content.Clone(),
		Type:        memType,
		CreatedAt:   now,
		LastAccess:  now,
		AccessCount: 1,
		Strength:    1,
	}
	e.rescore(now)
	w.entries[id] = e
	return true
}

// Retrieve returns a copy of the entry content and strengthens the entry.
func (w *Working) Retrieve(id string) (Content, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[id]
	if !ok {
		return nil, false
	}
	now := w.now()
	e.touch(now)
	e.Strength = min(1, e.Strength+retrieveBoost)
	e.rescore(now)
	return e.Content.Clone(), true
}

// Update merges delta into the entry content, refreshes access and
// recomputes the consolidation score.
func (w *Working) Update(id string, delta Content) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[id]
	if !ok {
		return false
	}
	if e.Content == nil {
		e.Content = make(Content, len(delta))
	}
	for k, v := range delta {
		e.Content[k] = v
	}
	now := w.now()
	e.touch(now)
	e.rescore(now)
	return true
}

// Peek returns a copy of the entry without counting as an access.
func (w *Working) Peek(id string) (WorkingEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[id]
	if !ok {
		return WorkingEntry{}, false
	}
	return e.clone(), true
}

// Len returns the number of entries.
func (w *Working) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// DecayCycle runs a full decay pass, or finishes an interrupted one. It is
// refused with Skipped set when the decay interval has not elapsed since the
// previous pass started. Cancelling ctx stops the pass between entries.
func (w *Working) DecayCycle(ctx context.Context) DecayStats {
	var total DecayStats
	for {
		st, done := w.DecayStep(ctx, w.cfg.BatchSize)
		total.add(st)
		total.Skipped = st.Skipped
		total.Interrupted = st.Interrupted
		if done || st.Skipped || st.Interrupted {
			break
		}
	}
	if total.Promoted > 0 || total.Forgotten > 0 {
		w.logger.Info().
			Int("processed", total.Processed).
			Int("promoted", total.Promoted).
			Int("forgotten", total.Forgotten).
			Msg("working memory decay cycle")
	}
	return total
}

// DecayStep processes at most batch entries of the current pass under one
// lock acquisition, starting a new pass if none is in progress. It reports
// whether the pass is complete.
func (w *Working) DecayStep(ctx context.Context, batch int) (DecayStats, bool) {
	var st DecayStats
	if batch <= 0 {
		batch = w.cfg.BatchSize
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !w.pass.begin(now, w.sortedIDsLocked) {
		st.Skipped = true
		return st, true
	}

	ids := w.pass.next(batch)
	for i, id := range ids {
		if ctx.Err() != nil {
			w.pass.requeue(ids[i:])
			st.Interrupted = true
			return st, false
		}
		w.decayEntryLocked(id, now, &st)
	}
	return st, w.pass.done()
}

func (w *Working) decayEntryLocked(id string, now time.Time, st *DecayStats) {
	e, ok := w.entries[id]
	if !ok {
		return
	}
	st.Processed++

	if h := elapsedHours(now, e.LastAccess, e.decayedAt); h > 0 {
		e.Strength = fastDecay(e.Strength, w.cfg.DecayRate, h)
		e.decayedAt = now
		st.Decayed++
	}
	e.rescore(now)

	if e.ConsolidationScore >= w.cfg.ConsolidationThreshold && w.consolidator != nil {
		if w.consolidator.Consolidate(id, e.clone()) {
			delete(w.entries, id)
			st.Promoted++
			return
		}
		w.logger.Warn().Str("memory_id", id).Msg("consolidation refused, entry kept")
	}

	if e.Strength < workingForgetThreshold {
		delete(w.entries, id)
		st.Forgotten++
	}
}

func (w *Working) evictWeakestLocked() {
	var weakest *WorkingEntry
	for _, e := range w.entries {
		if weakest == nil || e.Strength < weakest.Strength ||
			(e.Strength == weakest.Strength && e.ID < weakest.ID) {
			weakest = e
		}
	}
	if weakest == nil {
		return
	}
	delete(w.entries, weakest.ID)
	w.logger.Debug().Str("memory_id", weakest.ID).Float64("strength", weakest.Strength).Msg("working memory eviction")
}

func (w *Working) sortedIDsLocked() []string {
	ids := make([]string, 0, len(w.entries))
	for id := range w.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WorkingStats summarizes the store.
type WorkingStats struct {
	Count            int                      `json:"count"`
	Capacity         int                      `json:"capacity"`
	Utilization      float64                  `json:"utilization"`
	AverageStrength  float64                  `json:"average_strength"`
	TypeDistribution map[types.MemoryType]int `json:"type_distribution"`
	TotalAccesses    int                      `json:"total_accesses"`
	Consolidatable   int                      `json:"consolidatable"`
}

// Stats returns a snapshot summary of the store.
func (w *Working) Stats() WorkingStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := WorkingStats{
		Count:            len(w.entries),
		Capacity:         w.cfg.Capacity,
		TypeDistribution: make(map[types.MemoryType]int),
	}
	st.Utilization = float64(st.Count) / float64(st.Capacity)
	for _, e := range w.entries {
		st.AverageStrength += e.Strength
		st.TypeDistribution[e.Type]++
		st.TotalAccesses += e.AccessCount
		if e.ConsolidationScore >= w.cfg.ConsolidationThreshold {
			st.Consolidatable++
		}
	}
	if st.Count > 0 {
		st.AverageStrength /= float64(st.Count)
	}
	return st
}

// IntegrityCheck reports whether the store invariants hold: cardinality
// within capacity and every strength in (0, 1].
func (w *Working) IntegrityCheck() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.entries) > w.cfg.Capacity {
		return false
	}
	for id, e := range w.entries {
		if e.ID != id || e.Strength <= 0 || e.Strength > 1 {
			return false
		}
	}
	return true
}
