// Package config provides configuration management for Socratic.
// Settings start from built-in defaults, are overlaid by an optional YAML
// file and finally by environment variables with the SOCRATIC_ prefix.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/scrypster/socratic/internal/memory"
)

// Config holds all configuration settings for the Socratic application.
type Config struct {
	Memory    MemoryConfig    `yaml:"memory"`
	Selector  SelectorConfig  `yaml:"selector"`
	Storage   StorageConfig   `yaml:"storage"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Log       LogConfig       `yaml:"log"`
}

// MemoryConfig contains working and long-term memory settings.
type MemoryConfig struct {
	WorkingCapacity        int           `yaml:"working_capacity"`        // default: 50
	ConsolidationThreshold float64       `yaml:"consolidation_threshold"` // default: 0.8
	WorkingDecayRate       float64       `yaml:"working_decay_rate"`      // per hour, default: 0.1
	WorkingDecayInterval   time.Duration `yaml:"working_decay_interval"`  // default: 60s

	LongTermCapacity      int           `yaml:"long_term_capacity"`       // default: 10000
	LongTermDecayRate     float64       `yaml:"long_term_decay_rate"`     // per hour, default: 0.001
	LongTermDecayInterval time.Duration `yaml:"long_term_decay_interval"` // default: 24h
	ArchiveThreshold      float64       `yaml:"archive_threshold"`        // default: 0.1
	ForgetThreshold       float64       `yaml:"forget_threshold"`         // default: 0.05
	FadeResetMultiplier   float64       `yaml:"fade_reset_multiplier"`    // default: 2
	ColdStorageDir        string        `yaml:"cold_storage_dir"`         // default: <data_path>/cold
}

// SelectorConfig contains question selector settings.
type SelectorConfig struct {
	AllowReview   bool   `yaml:"allow_review"`   // default: true
	RecentWindow  int    `yaml:"recent_window"`  // default: 10
	EscapeBuffer  int    `yaml:"escape_buffer"`  // default: 100
	TemplatesPath string `yaml:"templates_path"` // empty uses the built-in templates
}

// StorageConfig contains on-disk storage settings.
type StorageConfig struct {
	DataPath       string `yaml:"data_path"`       // default: ./data
	JournalEnabled bool   `yaml:"journal_enabled"` // escape journal, default: false
}

// JournalPath is the escape journal database file.
func (s StorageConfig) JournalPath() string {
	return filepath.Join(s.DataPath, "escapes.db")
}

// KnowledgeConfig locates the knowledge base seed.
type KnowledgeConfig struct {
	ConceptsPath string `yaml:"concepts_path"` // empty uses the built-in concepts
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: info
	Format string `yaml:"format"` // console or json, default: console
}

// Default returns the built-in configuration.
func Default() *Config {
	wm := memory.DefaultWorkingConfig()
	lt := memory.DefaultLongTermConfig()
	return &Config{
		Memory: MemoryConfig{
			WorkingCapacity:        wm.Capacity,
			ConsolidationThreshold: wm.ConsolidationThreshold,
			WorkingDecayRate:       wm.DecayRate,
			WorkingDecayInterval:   wm.DecayInterval,
			LongTermCapacity:       lt.Capacity,
			LongTermDecayRate:      lt.DecayRate,
			LongTermDecayInterval:  lt.DecayInterval,
			ArchiveThreshold:       lt.ArchiveThreshold,
			ForgetThreshold:        lt.ForgetThreshold,
			FadeResetMultiplier:    lt.FadeResetMultiplier,
		},
		Selector: SelectorConfig{
			AllowReview:  true,
			RecentWindow: 10,
			EscapeBuffer: 100,
		},
		Storage: StorageConfig{
			DataPath: "./data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration using the file named by SOCRATIC_CONFIG,
// if any.
func LoadConfig() (*Config, error) {
	return Load(getEnv("SOCRATIC_CONFIG", ""))
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and environment variables, in that order, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %s: %w", path, err)
		}
		err = cfg.overlay(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.Memory.ColdStorageDir == "" {
		cfg.Memory.ColdStorageDir = filepath.Join(cfg.Storage.DataPath, "cold")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay decodes a YAML document over c. Unknown keys are rejected.
func (c *Config) overlay(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	m := &c.Memory
	m.WorkingCapacity = getEnvInt("SOCRATIC_WM_CAPACITY", m.WorkingCapacity)
	m.ConsolidationThreshold = getEnvFloat("SOCRATIC_WM_CONSOLIDATION_THRESHOLD", m.ConsolidationThreshold)
	m.WorkingDecayRate = getEnvFloat("SOCRATIC_WM_DECAY_RATE", m.WorkingDecayRate)
	m.WorkingDecayInterval = getEnvDuration("SOCRATIC_WM_DECAY_INTERVAL", m.WorkingDecayInterval)
	m.LongTermCapacity = getEnvInt("SOCRATIC_LTM_CAPACITY", m.LongTermCapacity)
	m.LongTermDecayRate = getEnvFloat("SOCRATIC_LTM_DECAY_RATE", m.LongTermDecayRate)
	m.LongTermDecayInterval = getEnvDuration("SOCRATIC_LTM_DECAY_INTERVAL", m.LongTermDecayInterval)
	m.ArchiveThreshold = getEnvFloat("SOCRATIC_LTM_ARCHIVE_THRESHOLD", m.ArchiveThreshold)
	m.ForgetThreshold = getEnvFloat("SOCRATIC_LTM_FORGET_THRESHOLD", m.ForgetThreshold)
	m.FadeResetMultiplier = getEnvFloat("SOCRATIC_LTM_FADE_RESET_MULTIPLIER", m.FadeResetMultiplier)
	m.ColdStorageDir = getEnv("SOCRATIC_COLD_STORAGE_DIR", m.ColdStorageDir)

	s := &c.Selector
	s.AllowReview = getEnvBool("SOCRATIC_ALLOW_REVIEW", s.AllowReview)
	s.RecentWindow = getEnvInt("SOCRATIC_RECENT_WINDOW", s.RecentWindow)
	s.EscapeBuffer = getEnvInt("SOCRATIC_ESCAPE_BUFFER", s.EscapeBuffer)
	s.TemplatesPath = getEnv("SOCRATIC_TEMPLATES_PATH", s.TemplatesPath)

	c.Storage.DataPath = getEnv("SOCRATIC_DATA_PATH", c.Storage.DataPath)
	c.Storage.JournalEnabled = getEnvBool("SOCRATIC_JOURNAL_ENABLED", c.Storage.JournalEnabled)
	c.Knowledge.ConceptsPath = getEnv("SOCRATIC_CONCEPTS_PATH", c.Knowledge.ConceptsPath)
	c.Log.Level = getEnv("SOCRATIC_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("SOCRATIC_LOG_FORMAT", c.Log.Format)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Memory.Validate(); err != nil {
		return err
	}
	if err := c.Selector.Validate(); err != nil {
		return err
	}
	if c.Storage.DataPath == "" {
		return errors.New("config: storage.data_path is required")
	}
	return c.Log.Validate()
}

// Validate checks the memory settings through the memory package's own rules.
func (m MemoryConfig) Validate() error {
	if err := m.Working().Validate(); err != nil {
		return fmt.Errorf("config: memory: %w", err)
	}
	if err := m.LongTerm().Validate(); err != nil {
		return fmt.Errorf("config: memory: %w", err)
	}
	return nil
}

// Working returns the working memory configuration.
func (m MemoryConfig) Working() memory.WorkingConfig {
	wm := memory.DefaultWorkingConfig()
	wm.Capacity = m.WorkingCapacity
	wm.ConsolidationThreshold = m.ConsolidationThreshold
	wm.DecayRate = m.WorkingDecayRate
	wm.DecayInterval = m.WorkingDecayInterval
	return wm
}

// LongTerm returns the long-term memory configuration.
func (m MemoryConfig) LongTerm() memory.LongTermConfig {
	lt := memory.DefaultLongTermConfig()
	lt.Capacity = m.LongTermCapacity
	lt.DecayRate = m.LongTermDecayRate
	lt.DecayInterval = m.LongTermDecayInterval
	lt.ArchiveThreshold = m.ArchiveThreshold
	lt.ForgetThreshold = m.ForgetThreshold
	lt.FadeResetMultiplier = m.FadeResetMultiplier
	lt.ColdStorageDir = m.ColdStorageDir
	return lt
}

// Validate checks the selector settings.
func (s SelectorConfig) Validate() error {
	if s.RecentWindow < 2 {
		return fmt.Errorf("config: selector.recent_window must be at least 2, got %d", s.RecentWindow)
	}
	if s.EscapeBuffer < 1 {
		return fmt.Errorf("config: selector.escape_buffer must be positive, got %d", s.EscapeBuffer)
	}
	return nil
}

// Validate checks the log settings.
func (l LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch l.Format {
	case "console", "json":
		return nil
	}
	return fmt.Errorf("config: log.format must be console or json, got %q", l.Format)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// Unparseable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration such as "90s" or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
