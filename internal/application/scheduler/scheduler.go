// Package scheduler drives the visit clock from a periodic tick source.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

// DefaultInterval is the production tick period.
const DefaultInterval = 60 * time.Second

// TickSource delivers ticks until stopped.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

// Ticker is a TickSource backed by time.Ticker.
type Ticker struct {
	t *time.Ticker
}

func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Ticker{t: time.NewTicker(interval)}
}

func (t *Ticker) C() <-chan time.Time { return t.t.C }

func (t *Ticker) Stop() { t.t.Stop() }

// VisitClock is the state-machine entry point for time-bound transitions.
type VisitClock interface {
	TickVisitClock(ctx context.Context, now time.Time) ([]*visit.Visit, error)
}

// Scheduler runs one pass immediately, then one per tick.
type Scheduler struct {
	target VisitClock
	source TickSource
	clock  clock.Clock
	logger zerolog.Logger
}

func New(target VisitClock, source TickSource, clk clock.Clock, logger zerolog.Logger) *Scheduler {
	if clk == nil {
		clk = clock.System{}
	}
	return &Scheduler{
		target: target,
		source: source,
		clock:  clk,
		logger: logger.With().Str("service", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled. Tick errors are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.source.Stop()
	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Msg("scheduler stopped")
			return
		case <-s.source.C():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	done, err := s.target.TickVisitClock(ctx, s.clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("visit clock tick failed")
		}
		return
	}
	if len(done) > 0 {
		s.logger.Debug().Int("completed", len(done)).Msg("visit clock tick")
	}
}
