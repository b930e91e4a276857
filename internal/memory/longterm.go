package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/text"
	"github.com/scrypster/socratic/pkg/types"
)

// minSearchRelevance is the lowest relevance returned by Search.
const minSearchRelevance = 0.1

// LongTerm is the consolidated memory store. An id lives in exactly one of
// the active set, cold storage, or nowhere.
type LongTerm struct {
	cfg       LongTermConfig
	logger    zerolog.Logger
	now       func() time.Time
	clusterer Clusterer
	cold      *ColdStore

	mu        sync.Mutex
	active    map[string]*LongTermEntry
	keywords  map[string]map[string]struct{}
	clusters  map[string]map[string]struct{}
	accesses  map[string]int
	coldPaths map[string]string
	pass      *decayPass
}

// LongTermOption configures a LongTerm store.
type LongTermOption func(*LongTerm)

// WithLongTermLogger sets the store logger.
func WithLongTermLogger(l zerolog.Logger) LongTermOption {
	return func(m *LongTerm) { m.logger = l }
}

// WithLongTermClock sets the time source.
func WithLongTermClock(now func() time.Time) LongTermOption {
	return func(m *LongTerm) { m.now = now }
}

// WithClusterer sets the cluster tagger. Default: TopicClusterer.
func WithClusterer(c Clusterer) LongTermOption {
	return func(m *LongTerm) { m.clusterer = c }
}

// NewLongTerm creates a long-term store. When cfg.ColdStorageDir is set the
// directory is created if needed and the archived ids are read from it.
func NewLongTerm(cfg LongTermConfig, opts ...LongTermOption) (*LongTerm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	m := &LongTerm{
		cfg:       cfg,
		logger:    zerolog.Nop(),
		now:       time.Now,
		clusterer: TopicClusterer,
		active:    make(map[string]*LongTermEntry),
		keywords:  make(map[string]map[string]struct{}),
		clusters:  make(map[string]map[string]struct{}),
		accesses:  make(map[string]int),
		coldPaths: make(map[string]string),
		pass:      newDecayPass(cfg.DecayInterval),
	}
	for _, opt := range opts {
		opt(m)
	}

	if cfg.ColdStorageDir != "" {
		cold, err := NewColdStore(cfg.ColdStorageDir, cfg.MaxArchiveFailures, cfg.ArchiveRetryTimeout)
		if err != nil {
			return nil, fmt.Errorf("memory: %w", err)
		}
		ids, err := cold.List()
		if err != nil {
			return nil, fmt.Errorf("memory: %w", err)
		}
		for _, id := range ids {
			m.coldPaths[id] = cold.Path(id)
		}
		m.cold = cold
		m.logger.Info().Str("dir", cold.Dir()).Int("archived", len(ids)).Msg("cold storage opened")
	}
	return m, nil
}

// Consolidate promotes a working memory entry. It replaces any active or
// archived entry with the same id. When the store is full the weakest active
// entry is archived first; Consolidate reports false if that fails.
func (m *LongTerm) Consolidate(id string, we WorkingEntry) bool {
	if id == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	old, replacing := m.active[id]
	if !replacing && len(m.active) >= m.cfg.Capacity {
		if !m.makeRoomLocked() {
			m.logger.Warn().Str("memory_id", id).Msg("long-term memory full, consolidation refused")
			return false
		}
	}
	if _, archived := m.coldPaths[id]; archived {
		if err := m.cold.Delete(id); err != nil {
			m.logger.Error().Err(err).Str("memory_id", id).Msg("stale cold record not removed")
			return false
		}
		delete(m.coldPaths, id)
	}

	memType := we.Type
	if memType == "" {
		memType = types.MemoryWorking
	}
	e := &LongTermEntry{
		ID:                 id,
		Content:            we.Content.Clone(),
		Type:               memType,
		CreatedAt:          we.CreatedAt,
		LastAccess:         we.LastAccess,
		AccessCount:        we.AccessCount,
		Strength:           clamp(we.Strength, minDecayFactor, 1),
		ConsolidationScore: we.ConsolidationScore,
		ConsolidatedAt:     now,
		FadeResistance:     fadeResistance(we.ConsolidationScore, we.AccessCount, we.Strength),
		Importance:         clamp(we.ConsolidationScore, 0, 1),
		Keywords:           we.Content.Keywords(maxKeywords),
	}
	if e.LastAccess.IsZero() {
		e.LastAccess = now
	}
	e.ClusterTags = m.clusterTags(*e)

	if replacing {
		m.unindexLocked(old)
	}
	m.insertLocked(e)
	m.logger.Debug().Str("memory_id", id).Float64("fade_resistance", e.FadeResistance).Msg("memory consolidated")
	return true
}

// Retrieve returns the entry content and resets its fade clock. An archived
// entry is reactivated first. A failed reactivation leaves the cold record in
// place and reports false.
func (m *LongTerm) Retrieve(id string) (Content, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.active[id]; ok {
		m.fullAccessLocked(e, now)
		return e.Content.Clone(), true
	}

	if _, archived := m.coldPaths[id]; !archived || m.cold == nil {
		return nil, false
	}
	rec, err := m.cold.Get(id)
	if err != nil {
		m.logger.Error().Err(err).Str("memory_id", id).Msg("cold record unreadable")
		return nil, false
	}
	if len(m.active) >= m.cfg.Capacity && !m.makeRoomLocked() {
		m.logger.Warn().Str("memory_id", id).Msg("long-term memory full, reactivation refused")
		return nil, false
	}
	if err := m.cold.Delete(id); err != nil {
		m.logger.Error().Err(err).Str("memory_id", id).Msg("cold record not removed, reactivation refused")
		return nil, false
	}
	delete(m.coldPaths, id)

	e := &rec
	if len(e.ClusterTags) == 0 {
		e.ClusterTags = []string{GeneralCluster}
	}
	m.insertLocked(e)
	m.fullAccessLocked(e, now)
	m.logger.Info().Str("memory_id", id).Float64("strength", e.Strength).Msg("memory reactivated from cold storage")
	return e.Content.Clone(), true
}

// Search ranks active entries against query. Each keyword match contributes
// 0.3 and a raw substring match of the content adds 0.5; the sum is scaled by
// strength and importance. Hits receive a light access.
func (m *LongTerm) Search(query string, k int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" || k <= 0 {
		return nil
	}
	tokens := text.Keywords(query)
	needle := strings.ToLower(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	type hit struct {
		e   *LongTermEntry
		rel float64
	}
	var hits []hit
	for _, e := range m.active {
		score := 0.0
		kws := text.NewSet(e.Keywords...)
		for _, tok := range tokens {
			if kws.Has(tok) {
				score += 0.3
			}
		}
		if strings.Contains(strings.ToLower(e.Content.String()), needle) {
			score += 0.5
		}
		rel := clamp(score*e.Strength*e.Importance, 0, 1)
		if rel >= minSearchRelevance {
			hits = append(hits, hit{e: e, rel: rel})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rel != hits[j].rel {
			return hits[i].rel > hits[j].rel
		}
		return hits[i].e.ID < hits[j].e.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	now := m.now()
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		m.lightAccessLocked(h.e, now)
		out = append(out, SearchResult{ID: h.e.ID, Content: h.e.Content.Clone(), Relevance: h.rel})
	}
	return out
}

// ByCluster returns up to k active entries tagged with tag, strongest first.
// Relevance carries the entry strength. Hits receive a light access.
func (m *LongTerm) ByCluster(tag string, k int) []SearchResult {
	if k <= 0 {
		return nil
	}
	tag = NormalizeTag(tag)

	m.mu.Lock()
	defer m.mu.Unlock()

	members := make([]*LongTermEntry, 0, len(m.clusters[tag]))
	for id := range m.clusters[tag] {
		members = append(members, m.active[id])
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Strength != members[j].Strength {
			return members[i].Strength > members[j].Strength
		}
		return members[i].ID < members[j].ID
	})
	if len(members) > k {
		members = members[:k]
	}

	now := m.now()
	out := make([]SearchResult, 0, len(members))
	for _, e := range members {
		m.lightAccessLocked(e, now)
		out = append(out, SearchResult{ID: e.ID, Content: e.Content.Clone(), Relevance: e.Strength})
	}
	return out
}

// Peek returns a copy of an active entry without counting as an access.
func (m *LongTerm) Peek(id string) (LongTermEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.active[id]
	if !ok {
		return LongTermEntry{}, false
	}
	return e.clone(), true
}

// Archived reports whether id is in cold storage.
func (m *LongTerm) Archived(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.coldPaths[id]
	return ok
}

// Len returns the number of active entries.
func (m *LongTerm) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// DecayCycle runs a full slow-decay pass, or finishes an interrupted one. It
// is refused with Skipped set when the decay interval has not elapsed.
// Cancelling ctx stops the pass between entries.
func (m *LongTerm) DecayCycle(ctx context.Context) DecayStats {
	var total DecayStats
	for {
		st, done := m.DecayStep(ctx, m.cfg.BatchSize)
		total.add(st)
		total.Skipped = st.Skipped
		total.Interrupted = st.Interrupted
		if done || st.Skipped || st.Interrupted {
			break
		}
	}
	if total.Archived > 0 || total.Forgotten > 0 {
		m.logger.Info().
			Int("processed", total.Processed).
			Int("archived", total.Archived).
			Int("forgotten", total.Forgotten).
			Msg("long-term memory decay cycle")
	}
	return total
}

// DecayStep processes at most batch entries of the current pass. Entries to
// archive are staged in cold storage after the lock is released and committed
// only if they did not change in the meantime.
func (m *LongTerm) DecayStep(ctx context.Context, batch int) (DecayStats, bool) {
	var st DecayStats
	if batch <= 0 {
		batch = m.cfg.BatchSize
	}

	m.mu.Lock()
	now := m.now()
	if !m.pass.begin(now, m.sortedIDsLocked) {
		m.mu.Unlock()
		st.Skipped = true
		return st, true
	}

	var candidates []LongTermEntry
	ids := m.pass.next(batch)
	for i, id := range ids {
		if ctx.Err() != nil {
			m.pass.requeue(ids[i:])
			st.Interrupted = true
			break
		}
		e, ok := m.active[id]
		if !ok {
			continue
		}
		st.Processed++

		if h := elapsedHours(now, e.LastAccess, e.DecayedAt); h > 0 {
			e.Strength = slowDecay(e.Strength, m.cfg.DecayRate, e.FadeResistance, h)
			e.DecayedAt = now
			st.Decayed++
		}

		switch {
		case e.Strength < m.cfg.ForgetThreshold:
			m.forgetLocked(id)
			st.Forgotten++
			m.logger.Info().Str("memory_id", id).Msg("memory forgotten")
		case e.Strength < m.cfg.ArchiveThreshold && m.cold != nil:
			candidates = append(candidates, e.clone())
		}
	}
	done := !st.Interrupted && m.pass.done()
	m.mu.Unlock()

	for _, c := range candidates {
		if m.archive(c) {
			st.Archived++
		}
	}
	return st, done
}

// archive stages c in cold storage without holding the lock, then commits it.
// On a write failure the entry stays active.
func (m *LongTerm) archive(c LongTermEntry) bool {
	staged, err := m.cold.Stage(c)
	if err != nil {
		m.logger.Warn().Err(err).Str("memory_id", c.ID).Str("circuit", m.cold.CircuitState()).Msg("archive failed, entry kept active")
		return false
	}
	return m.commitArchive(c, staged)
}

// commitArchive moves the staged copy of c into place if the active entry is
// unchanged since c was taken. Otherwise the staged copy is dropped and any
// record now holding the id, active or archived, is left alone.
func (m *LongTerm) commitArchive(c LongTermEntry, staged string) bool {
	m.mu.Lock()
	cur, ok := m.active[c.ID]
	if !ok || !cur.LastAccess.Equal(c.LastAccess) || cur.Strength != c.Strength {
		m.mu.Unlock()
		if err := m.cold.Discard(staged); err != nil {
			m.logger.Error().Err(err).Str("memory_id", c.ID).Msg("stale staged archive not removed")
		}
		return false
	}
	path, err := m.cold.Commit(c.ID, staged)
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn().Err(err).Str("memory_id", c.ID).Str("circuit", m.cold.CircuitState()).Msg("archive failed, entry kept active")
		return false
	}
	m.unindexLocked(cur)
	delete(m.active, c.ID)
	m.coldPaths[c.ID] = path
	m.mu.Unlock()

	m.logger.Info().Str("memory_id", c.ID).Float64("strength", c.Strength).Msg("memory archived")
	return true
}

// makeRoomLocked frees one active slot by archiving the weakest entry, or
// forgetting it when there is no cold storage.
func (m *LongTerm) makeRoomLocked() bool {
	var weakest *LongTermEntry
	for _, e := range m.active {
		if weakest == nil || e.Strength < weakest.Strength ||
			(e.Strength == weakest.Strength && e.ID < weakest.ID) {
			weakest = e
		}
	}
	if weakest == nil {
		return false
	}
	if m.cold == nil {
		m.forgetLocked(weakest.ID)
		m.logger.Info().Str("memory_id", weakest.ID).Msg("memory forgotten to make room")
		return true
	}
	path, err := m.cold.Put(weakest.clone())
	if err != nil {
		m.logger.Warn().Err(err).Str("memory_id", weakest.ID).Msg("archive failed while making room")
		return false
	}
	m.unindexLocked(weakest)
	delete(m.active, weakest.ID)
	m.coldPaths[weakest.ID] = path
	m.logger.Info().Str("memory_id", weakest.ID).Msg("memory archived to make room")
	return true
}

func (m *LongTerm) fullAccessLocked(e *LongTermEntry, now time.Time) {
	boost := fullAccessBoost * m.cfg.FadeResetMultiplier * e.FadeResistance
	e.Strength = min(1, e.Strength+boost)
	e.LastAccess = now
	e.AccessCount++
	e.FadeResistance = fadeResistance(e.ConsolidationScore, e.AccessCount, e.Strength)
	m.accesses[e.ID]++
}

func (m *LongTerm) lightAccessLocked(e *LongTermEntry, now time.Time) {
	e.Strength = min(1, e.Strength+lightAccessBoost)
	e.LastAccess = now
	m.accesses[e.ID]++
}

func (m *LongTerm) clusterTags(e LongTermEntry) []string {
	tags := []string{GeneralCluster}
	if m.clusterer == nil {
		return tags
	}
	seen := map[string]struct{}{GeneralCluster: {}}
	for _, t := range m.clusterer(e) {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}

func (m *LongTerm) insertLocked(e *LongTermEntry) {
	m.active[e.ID] = e
	for _, kw := range e.Keywords {
		addToIndex(m.keywords, kw, e.ID)
	}
	for _, tag := range e.ClusterTags {
		addToIndex(m.clusters, tag, e.ID)
	}
}

func (m *LongTerm) unindexLocked(e *LongTermEntry) {
	for _, kw := range e.Keywords {
		removeFromIndex(m.keywords, kw, e.ID)
	}
	for _, tag := range e.ClusterTags {
		removeFromIndex(m.clusters, tag, e.ID)
	}
}

func (m *LongTerm) forgetLocked(id string) {
	e, ok := m.active[id]
	if !ok {
		return
	}
	m.unindexLocked(e)
	delete(m.active, id)
	delete(m.accesses, id)
}

func (m *LongTerm) sortedIDsLocked() []string {
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func addToIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[id] = struct{}{}
}

func removeFromIndex(idx map[string]map[string]struct{}, key, id string) {
	set, ok := idx[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(idx, key)
	}
}

// LongTermStats summarizes the store.
type LongTermStats struct {
	Count            int                      `json:"count"`
	Capacity         int                      `json:"capacity"`
	Utilization      float64                  `json:"utilization"`
	AverageStrength  float64                  `json:"average_strength"`
	TypeDistribution map[types.MemoryType]int `json:"type_distribution"`
	Archived         int                      `json:"archived"`
	TotalAccesses    int                      `json:"total_accesses"`
	MostAccessedID   string                   `json:"most_accessed_id,omitempty"`
	UniqueAccessed   int                      `json:"unique_accessed"`
	Clusters         int                      `json:"clusters"`
}

// Stats returns a snapshot summary of the store.
func (m *LongTerm) Stats() LongTermStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := LongTermStats{
		Count:            len(m.active),
		Capacity:         m.cfg.Capacity,
		TypeDistribution: make(map[types.MemoryType]int),
		Archived:         len(m.coldPaths),
		UniqueAccessed:   len(m.accesses),
		Clusters:         len(m.clusters),
	}
	st.Utilization = float64(st.Count) / float64(st.Capacity)
	for _, e := range m.active {
		st.AverageStrength += e.Strength
		st.TypeDistribution[e.Type]++
	}
	if st.Count > 0 {
		st.AverageStrength /= float64(st.Count)
	}

	best := 0
	for id, n := range m.accesses {
		st.TotalAccesses += n
		if n > best || (n == best && id < st.MostAccessedID) {
			best, st.MostAccessedID = n, id
		}
	}
	return st
}

// IntegrityCheck reports whether the store invariants hold: capacity, no id
// both active and archived, a cold record behind every archived id, index and
// cluster consistency in both directions, and entry value ranges.
func (m *LongTerm) IntegrityCheck() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.active) > m.cfg.Capacity {
		return false
	}
	for _, path := range m.coldPaths {
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			return false
		}
	}
	for id, e := range m.active {
		if _, archived := m.coldPaths[id]; archived {
			return false
		}
		if e.ID != id || e.Strength <= 0 || e.Strength > 1 {
			return false
		}
		if e.FadeResistance < minFadeResistance || e.FadeResistance > 1 {
			return false
		}
		if len(e.Keywords) > maxKeywords || len(e.ClusterTags) == 0 {
			return false
		}
		for _, kw := range e.Keywords {
			if _, ok := m.keywords[kw][id]; !ok {
				return false
			}
		}
		for _, tag := range e.ClusterTags {
			if _, ok := m.clusters[tag][id]; !ok {
				return false
			}
		}
	}
	for _, idx := range []map[string]map[string]struct{}{m.keywords, m.clusters} {
		for _, ids := range idx {
			for id := range ids {
				if _, ok := m.active[id]; !ok {
					return false
				}
			}
		}
	}
	for id := range m.accesses {
		if _, ok := m.active[id]; ok {
			continue
		}
		if _, ok := m.coldPaths[id]; !ok {
			return false
		}
	}
	return true
}
