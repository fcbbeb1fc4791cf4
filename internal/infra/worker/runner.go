// File: internal/infra/worker/runner.go
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner spawns detached background tasks decoupled from the request
// lifecycle. Every task gets its own goroutine and panic boundary; dispatch
// never blocks and never drops a task. The runner tracks in-flight tasks so
// shutdown can wait for them.
type Runner struct {
	base context.Context
	wg   sync.WaitGroup
	log  *zerolog.Logger
}

// NewRunner builds a runner whose tasks inherit base. Cancelling base
// cancels the context handed to every task.
func NewRunner(base context.Context, logger *zerolog.Logger) *Runner {
	rLog := logger.With().Str("component", "Runner").Logger()
	return &Runner{base: base, log: &rLog}
}

// Go launches task in its own goroutine. A panicking task is recovered and
// logged; it never takes the process down.
func (r *Runner) Go(name string, task func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error().Str("task", name).Interface("panic", rec).Msg("background task panicked")
			}
		}()
		start := time.Now()
		task(r.base)
		r.log.Debug().Str("task", name).Dur("duration", time.Since(start)).Msg("background task finished")
	}()
}

// Wait blocks until all in-flight tasks finish or ctx expires. It returns
// ctx.Err() on timeout so callers can log an unclean shutdown.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
