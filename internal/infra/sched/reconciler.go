package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/repository"
	"vehicle-inspection-platform/internal/infra/metrics"
)

const staleRunMessage = "inspection interrupted: processing timed out"

// StaleRunReconciler periodically sweeps inspections stuck in processing.
// A crash during an in-flight run leaves its job in processing forever; the
// orchestrator cannot recover it, so this companion marks such orphans as
// failed once they have gone quiet past the stale threshold.
type StaleRunReconciler struct {
	inspections repository.InspectionRepository
	interval    time.Duration
	staleAfter  time.Duration
	log         *zerolog.Logger
}

func NewStaleRunReconciler(inspections repository.InspectionRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *StaleRunReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	rLog := logger.With().Str("component", "StaleRunReconciler").Logger()
	return &StaleRunReconciler{
		inspections: inspections,
		interval:    interval,
		staleAfter:  staleAfter,
		log:         &rLog,
	}
}

func (w *StaleRunReconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("starting stale-run reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping stale-run reconciler")
			return
		case <-t.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass and returns the number of inspections
// it marked failed. Also invoked once on demand via the admin surface.
func (w *StaleRunReconciler) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.inspections.ListProcessingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale inspections failed")
		return 0
	}

	swept := 0
	for _, insp := range stale {
		// The status guard in UpdateStatus makes this a no-op if the
		// owning run finished between the list and this write.
		err := w.inspections.UpdateStatus(ctx, nil, insp.ID, model.StatusFailed, -1, staleRunMessage)
		if err != nil {
			w.log.Warn().Err(err).Str("inspection_id", insp.ID).Msg("stale sweep skipped inspection")
			continue
		}
		swept++
		w.log.Warn().
			Str("inspection_id", insp.ID).
			Time("last_update", insp.UpdatedAt).
			Msg("orphaned inspection marked failed")
	}
	if swept > 0 {
		metrics.AddReconciledStaleRuns(swept)
	}
	return swept
}
