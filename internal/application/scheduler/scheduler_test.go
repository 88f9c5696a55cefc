package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rental-hub/rental-hub/internal/clock"
	"github.com/rental-hub/rental-hub/internal/domain/visit"
)

type manualSource struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualSource() *manualSource {
	return &manualSource{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualSource) C() <-chan time.Time { return m.ch }

func (m *manualSource) Stop() { m.once.Do(func() { close(m.stopped) }) }

type recordingClock struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	seen  chan struct{}
}

func (r *recordingClock) TickVisitClock(ctx context.Context, now time.Time) ([]*visit.Visit, error) {
	r.mu.Lock()
	r.calls = append(r.calls, now)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return nil, r.err
}

func (r *recordingClock) times() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.calls...)
}

func waitTick(t *testing.T, r *recordingClock) {
	t.Helper()
	select {
	case <-r.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("tick not observed")
	}
}

func TestScheduler_Run(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	target := &recordingClock{seen: make(chan struct{}, 4)}
	src := newManualSource()
	s := New(target, src, clk, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	waitTick(t, target)

	clk.Advance(time.Minute)
	src.ch <- clk.Now()
	waitTick(t, target)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	select {
	case <-src.stopped:
	default:
		t.Fatal("tick source not stopped")
	}

	calls := target.times()
	require.Len(t, calls, 2)
	assert.Equal(t, start, calls[0])
	assert.Equal(t, start.Add(time.Minute), calls[1])
}

func TestScheduler_ContinuesAfterError(t *testing.T) {
	target := &recordingClock{seen: make(chan struct{}, 4), err: errors.New("store unavailable")}
	src := newManualSource()
	s := New(target, src, clock.NewManual(time.Now()), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitTick(t, target)
	src.ch <- time.Now()
	waitTick(t, target)
	assert.Len(t, target.times(), 2)
}

func TestNewTicker_DefaultInterval(t *testing.T) {
	tk := NewTicker(0)
	defer tk.Stop()
	assert.NotNil(t, tk.C())
}
