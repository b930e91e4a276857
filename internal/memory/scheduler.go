package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs the working and long-term decay cycles on their own
// tickers. The stores' decay intervals still apply, so a tick that arrives
// early is a no-op.
type Scheduler struct {
	working      *Working
	longTerm     *LongTerm
	workingEvery time.Duration
	longEvery    time.Duration
	logger       zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. A nil store or non-positive period
// disables that store's ticker.
func NewScheduler(w *Working, lt *LongTerm, workingEvery, longEvery time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		working:      w,
		longTerm:     lt,
		workingEvery: workingEvery,
		longEvery:    longEvery,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled. It returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("memory: scheduler is already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	if s.working != nil && s.workingEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "working", s.workingEvery, s.working.DecayCycle)
		}()
	}
	if s.longTerm != nil && s.longEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "long_term", s.longEvery, s.longTerm.DecayCycle)
		}()
	}

	s.logger.Info().Dur("working_every", s.workingEvery).Dur("long_term_every", s.longEvery).Msg("decay scheduler started")
	<-ctx.Done()
	wg.Wait()
	s.logger.Info().Msg("decay scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, store string, every time.Duration, cycle func(context.Context) DecayStats) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := cycle(ctx)
			if st.Skipped {
				continue
			}
			s.logger.Debug().
				Str("store", store).
				Int("processed", st.Processed).
				Int("decayed", st.Decayed).
				Bool("interrupted", st.Interrupted).
				Msg("decay tick")
		}
	}
}
