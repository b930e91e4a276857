package memory

import (
	"errors"
	"time"
)

// WorkingConfig configures the working memory store.
type WorkingConfig struct {
	// Capacity is the maximum number of entries. Default: 50
	Capacity int

	// ConsolidationThreshold is the consolidation score at which an entry is
	// promoted to long-term memory. Default: 0.8
	ConsolidationThreshold float64

	// DecayRate is the per-hour exponential decay constant. Default: 0.1
	DecayRate float64

	// DecayInterval is the minimum time between decay passes. Zero disables
	// the throttle. Default: 60s
	DecayInterval time.Duration

	// BatchSize is the number of entries processed per lock acquisition during
	// a decay pass. Default: 64
	BatchSize int
}

// DefaultWorkingConfig returns the working memory defaults.
func DefaultWorkingConfig() WorkingConfig {
	return WorkingConfig{
		Capacity:               50,
		ConsolidationThreshold: 0.8,
		DecayRate:              0.1,
		DecayInterval:          60 * time.Second,
		BatchSize:              64,
	}
}

// Validate checks the configuration for invalid values.
func (c WorkingConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("working memory capacity must be positive")
	}
	if c.ConsolidationThreshold <= 0 || c.ConsolidationThreshold > 1 {
		return errors.New("consolidation threshold must be in (0, 1]")
	}
	if c.DecayRate < 0 {
		return errors.New("working memory decay rate must be non-negative")
	}
	if c.DecayInterval < 0 {
		return errors.New("working memory decay interval must be non-negative")
	}
	if c.BatchSize <= 0 {
		return errors.New("decay batch size must be positive")
	}
	return nil
}

// LongTermConfig configures the long-term memory store.
type LongTermConfig struct {
	// Capacity is the maximum number of active entries. Default: 10000
	Capacity int

	// DecayRate is the slow per-hour decay constant, divided by an entry's
	// fade resistance. Default: 0.001
	DecayRate float64

	// DecayInterval is the minimum time between decay passes. Zero disables
	// the throttle. Default: 24h
	DecayInterval time.Duration

	// ArchiveThreshold is the strength below which an entry moves to cold
	// storage. Default: 0.1
	ArchiveThreshold float64

	// ForgetThreshold is the strength below which an entry is removed
	// entirely. Default: 0.05
	ForgetThreshold float64

	// FadeResetMultiplier scales the strength boost of a full access. Default: 2
	FadeResetMultiplier float64

	// ColdStorageDir is the directory holding archived entries. Empty keeps
	// archiving disabled: entries that would be archived stay active.
	ColdStorageDir string

	// BatchSize is the number of entries processed per lock acquisition during
	// a decay pass. Default: 256
	BatchSize int

	// MaxArchiveFailures is the number of consecutive cold-storage write
	// failures that opens the archive circuit. Default: 3
	MaxArchiveFailures uint32

	// ArchiveRetryTimeout is how long the archive circuit stays open before
	// allowing a trial write. Default: 1 minute
	ArchiveRetryTimeout time.Duration
}

// DefaultLongTermConfig returns the long-term memory defaults.
func DefaultLongTermConfig() LongTermConfig {
	return LongTermConfig{
		Capacity:            10000,
		DecayRate:           0.001,
		DecayInterval:       24 * time.Hour,
		ArchiveThreshold:    0.1,
		ForgetThreshold:     0.05,
		FadeResetMultiplier: 2,
		BatchSize:           256,
		MaxArchiveFailures:  3,
		ArchiveRetryTimeout: time.Minute,
	}
}

// Validate checks the configuration for invalid values.
func (c LongTermConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("long-term memory capacity must be positive")
	}
	if c.DecayRate < 0 {
		return errors.New("long-term memory decay rate must be non-negative")
	}
	if c.DecayInterval < 0 {
		return errors.New("long-term memory decay interval must be non-negative")
	}
	if c.ForgetThreshold < 0 || c.ArchiveThreshold < c.ForgetThreshold || c.ArchiveThreshold > 1 {
		return errors.New("thresholds must satisfy 0 <= forget <= archive <= 1")
	}
	if c.FadeResetMultiplier < 0 {
		return errors.New("fade reset multiplier must be non-negative")
	}
	if c.BatchSize <= 0 {
		return errors.New("decay batch size must be positive")
	}
	if c.MaxArchiveFailures == 0 {
		return errors.New("max archive failures must be positive")
	}
	return nil
}
