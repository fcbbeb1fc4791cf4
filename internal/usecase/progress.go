package usecase

import (
	"context"
	"sync"
	"time"
)

// ProgressConfig bounds the heuristic progress curve. The downstream service
// reports no granular progress, so displayed progress is simulated: a
// hand-off milestone when the request is sent, then small fixed increments on
// an interval, capped below 100 so the jump to 100 is reserved for actual
// completion.
type ProgressConfig struct {
	Initial  int           // written with the processing transition
	Handoff  int           // milestone once the request is in flight
	Step     int           // increment per tick
	Interval time.Duration // tick period
	Ceiling  int           // upper bound while waiting
}

// DefaultProgressConfig mirrors the production curve: 5 -> 20, +5/10s, cap 85.
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{
		Initial:  5,
		Handoff:  20,
		Step:     5,
		Interval: 10 * time.Second,
		Ceiling:  85,
	}
}

func (c ProgressConfig) withDefaults() ProgressConfig {
	d := DefaultProgressConfig()
	if c.Initial <= 0 {
		c.Initial = d.Initial
	}
	if c.Handoff <= 0 {
		c.Handoff = d.Handoff
	}
	if c.Step <= 0 {
		c.Step = d.Step
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Ceiling <= 0 {
		c.Ceiling = d.Ceiling
	}
	return c
}

// ProgressEstimator owns one ticker goroutine for one orchestration run.
// Values it emits are monotonically non-decreasing; Stop halts emission
// immediately and is safe to call more than once. Never shared across jobs.
type ProgressEstimator struct {
	cfg   ProgressConfig
	write func(progress int)

	mu      sync.Mutex
	current int
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewProgressEstimator builds an estimator that reports each new value
// through write. write is called from the estimator's goroutine and from
// Start/Nudge callers; it must be safe for that.
func NewProgressEstimator(cfg ProgressConfig, write func(progress int)) *ProgressEstimator {
	return &ProgressEstimator{
		cfg:   cfg.withDefaults(),
		write: write,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start emits the hand-off milestone and begins ticking until Stop is called
// or ctx is cancelled.
func (e *ProgressEstimator) Start(ctx context.Context) {
	e.emit(e.cfg.Handoff)

	go func() {
		defer close(e.done)
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stop:
				return
			case <-ticker.C:
				e.mu.Lock()
				next := e.current + e.cfg.Step
				e.mu.Unlock()
				e.emit(next)
			}
		}
	}()
}

// Nudge bumps progress by one point, still bounded by the ceiling. Used on
// retry attempts so a poller sees the job is alive rather than stalled.
func (e *ProgressEstimator) Nudge() {
	e.mu.Lock()
	next := e.current + 1
	e.mu.Unlock()
	e.emit(next)
}

// Current returns the last emitted value.
func (e *ProgressEstimator) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Stop halts the ticker and waits for the goroutine to exit, so no write can
// race a terminal transition issued after Stop returns.
func (e *ProgressEstimator) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.stopped = true
	e.mu.Unlock()
	close(e.stop)
	<-e.done
}

func (e *ProgressEstimator) emit(p int) {
	if p > e.cfg.Ceiling {
		p = e.cfg.Ceiling
	}
	e.mu.Lock()
	if e.stopped || p <= e.current {
		e.mu.Unlock()
		return
	}
	e.current = p
	e.mu.Unlock()
	e.write(p)
}
