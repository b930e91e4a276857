// Package memory provides the two-tier decaying memory: a small working
// memory with fast decay and a long-term store with slow, access-resetting
// decay backed by per-entry cold storage.
package memory

import (
	"math"
	"time"

	"golang.org/x/time/rate"
)

const (
	// minDecayFactor floors a single decay application.
	minDecayFactor = 0.01

	// workingForgetThreshold is the strength below which an unpromoted
	// working memory entry is forgotten.
	workingForgetThreshold = 0.1

	// retrieveBoost is added to working memory strength on retrieval.
	retrieveBoost = 0.1

	// fullAccessBoost is the base long-term strength boost on retrieval,
	// scaled by the fade reset multiplier and the entry's fade resistance.
	fullAccessBoost = 0.1

	// lightAccessBoost is added on search and cluster hits.
	lightAccessBoost = 0.01

	minFadeResistance = 0.1
)

// DecayStats reports the outcome of a decay pass or step.
type DecayStats struct {
	Processed int `json:"processed"`
	Decayed   int `json:"decayed"`
	Promoted  int `json:"promoted"`
	Forgotten int `json:"forgotten"`
	Archived  int `json:"archived"`

	// Skipped is set when the pass was refused by the decay interval.
	Skipped bool `json:"skipped"`

	// Interrupted is set when the context was cancelled mid-pass. The
	// remaining entries are processed by the next call.
	Interrupted bool `json:"interrupted"`
}

func (s *DecayStats) add(o DecayStats) {
	s.Processed += o.Processed
	s.Decayed += o.Decayed
	s.Promoted += o.Promoted
	s.Forgotten += o.Forgotten
	s.Archived += o.Archived
}

// elapsedHours returns the hours since the later of the last access and the
// last decay application, so repeated passes never compound.
func elapsedHours(now, lastAccess, decayedAt time.Time) float64 {
	ref := lastAccess
	if decayedAt.After(ref) {
		ref = decayedAt
	}
	h := now.Sub(ref).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// fastDecay applies working memory decay: strength * exp(-k*h), floored.
func fastDecay(strength, k, hours float64) float64 {
	return math.Max(minDecayFactor, strength*math.Exp(-k*hours))
}

// slowDecay applies long-term decay. The rate is divided by the fade
// resistance and the factor is floored, not the strength.
func slowDecay(strength, k, fadeResistance, hours float64) float64 {
	if fadeResistance < minFadeResistance {
		fadeResistance = minFadeResistance
	}
	return strength * math.Max(minDecayFactor, math.Exp(-(k/fadeResistance)*hours))
}

// consolidationScore = clamp((age_hours + access_count/10 + strength)/3, 0, 1)
func consolidationScore(ageHours float64, accessCount int, strength float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return clamp((ageHours+float64(accessCount)/10+strength)/3, 0, 1)
}

// fadeResistance = clamp((consolidation + min(access_count/10, 1) + strength)/3, 0.1, 1)
func fadeResistance(consolidation float64, accessCount int, strength float64) float64 {
	return clamp((consolidation+math.Min(float64(accessCount)/10, 1)+strength)/3, minFadeResistance, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// decayPass tracks a resumable pass over a store's ids. A new pass is only
// started when the limiter allows it.
type decayPass struct {
	limiter *rate.Limiter
	pending []string
}

func newDecayPass(interval time.Duration) *decayPass {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &decayPass{limiter: rate.NewLimiter(limit, 1)}
}

// begin starts a new pass over ids unless one is in progress. It reports
// false when the interval has not yet elapsed.
func (p *decayPass) begin(now time.Time, ids func() []string) bool {
	if len(p.pending) > 0 {
		return true
	}
	if !p.limiter.AllowN(now, 1) {
		return false
	}
	p.pending = ids()
	return true
}

// next pops up to n ids from the pass.
func (p *decayPass) next(n int) []string {
	if n > len(p.pending) {
		n = len(p.pending)
	}
	batch := p.pending[:n]
	p.pending = p.pending[n:]
	return batch
}

// requeue puts unprocessed ids back at the front of the pass.
func (p *decayPass) requeue(ids []string) {
	if len(ids) == 0 {
		return
	}
	p.pending = append(append([]string(nil), ids...), p.pending...)
}

func (p *decayPass) done() bool {
	return len(p.pending) == 0
}
