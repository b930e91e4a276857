package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrypster/socratic/internal/config"
	"github.com/scrypster/socratic/internal/inquiry"
	"github.com/scrypster/socratic/internal/knowledge"
	"github.com/scrypster/socratic/internal/memory"
	"github.com/scrypster/socratic/internal/session"
	"github.com/scrypster/socratic/internal/storage/sqlite"
	"github.com/scrypster/socratic/internal/truth"
)

// app wires the engine components from configuration.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	kb         *knowledge.Base
	truth      *truth.Engine
	working    *memory.Working
	longTerm   *memory.LongTerm
	selector   *inquiry.Selector
	journal    *sqlite.EscapeJournal
	controller *session.Controller
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadConfig()
}

// newLogger builds the root logger writing to w.
func newLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func loadKnowledge(cfg *config.Config) (*knowledge.Base, error) {
	if cfg.Knowledge.ConceptsPath == "" {
		return knowledge.Default(), nil
	}
	return knowledge.LoadFile(cfg.Knowledge.ConceptsPath)
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg.Log, os.Stderr)}

	if a.kb, err = loadKnowledge(cfg); err != nil {
		return nil, err
	}
	a.truth = truth.NewEngine(a.kb, truth.WithLogger(a.logger.With().Str("component", "truth").Logger()))

	a.longTerm, err = memory.NewLongTerm(cfg.Memory.LongTerm(),
		memory.WithLongTermLogger(a.logger.With().Str("component", "long_term").Logger()))
	if err != nil {
		return nil, err
	}
	a.working, err = memory.NewWorking(cfg.Memory.Working(),
		memory.WithConsolidator(a.longTerm),
		memory.WithWorkingLogger(a.logger.With().Str("component", "working").Logger()))
	if err != nil {
		return nil, err
	}

	opts := []inquiry.SelectorOption{
		inquiry.WithMemory(a.longTerm),
		inquiry.WithRecentWindow(cfg.Selector.RecentWindow),
		inquiry.WithEscapeBuffer(cfg.Selector.EscapeBuffer),
		inquiry.WithSelectorLogger(a.logger.With().Str("component", "selector").Logger()),
	}
	if cfg.Selector.TemplatesPath != "" {
		tpl, err := inquiry.LoadTemplatesFile(cfg.Selector.TemplatesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inquiry.WithTemplates(tpl))
	}
	if cfg.Storage.JournalEnabled {
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data path: %w", err)
		}
		a.journal, err = sqlite.OpenEscapeJournal(cfg.Storage.JournalPath(), a.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inquiry.WithEscapeRecorder(a.journal))
	}
	a.selector = inquiry.NewSelector(inquiry.NewCoordinateEngine(a.kb), opts...)

	a.controller = session.New(a.selector, a.truth,
		session.WithEvents(a.working),
		session.WithLogger(a.logger.With().Str("component", "session").Logger()))
	return a, nil
}

func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}

func openJournal() (*sqlite.EscapeJournal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path := cfg.Storage.JournalPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no escape journal at %s (set storage.journal_enabled)", path)
	}
	return sqlite.OpenEscapeJournal(path, newLogger(cfg.Log, os.Stderr))
}
