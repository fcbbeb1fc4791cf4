package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/adapter"
	"vehicle-inspection-platform/internal/domain/ports/repository"
	"vehicle-inspection-platform/internal/infra/logging"
	"vehicle-inspection-platform/internal/infra/metrics"
)

// run drives one inspection from acceptance to its terminal state. It is the
// only writer of the job record while it executes. Every failure inside the
// run is absorbed and expressed as a status transition; nothing propagates
// back to the caller of Submit.
func (uc *inspectionUseCase) run(ctx context.Context, insp *model.Inspection, res *model.InspectionResult) {
	ctx = logging.WithInspectionID(ctx, insp.ID)
	log := logging.With(ctx, uc.log)
	metrics.IncInspectionsInFlight()
	defer metrics.DecInspectionsInFlight()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("inspection run panicked")
			uc.finishFailed(insp, genericFailureMessage, log)
		}
	}()

	// Transition out of pending before any network I/O so a poller never
	// observes "pending" once work has actually started.
	if err := insp.MarkProcessing(uc.progress.Initial); err != nil {
		log.Error().Err(err).Msg("cannot start run")
		return
	}
	if err := uc.inspections.UpdateStatus(ctx, nil, insp.ID, model.StatusProcessing, insp.Progress, ""); err != nil {
		log.Error().Err(err).Msg("failed to mark inspection processing")
	}

	// Pre-flight gate. A failed probe is terminal without retries: the
	// retry loop would fail identically while burning the budget.
	if err := uc.analysis.HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Msg("analysis health probe failed")
		gateErr := fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, failureMessage(err))
		uc.finishFailed(insp, gateErr.Error(), log)
		return
	}

	// The estimator owns the displayed value while the call is in flight.
	// Its callback writes straight to the store and never touches insp:
	// the entity belongs to this goroutine.
	est := NewProgressEstimator(uc.progress, func(p int) {
		if err := uc.inspections.SetProgress(ctx, nil, insp.ID, p); err != nil {
			log.Warn().Err(err).Int("progress", p).Msg("progress write failed")
		}
	})
	est.Start(ctx)
	defer est.Stop()

	start := time.Now()
	resp, err := uc.processWithRetry(ctx, est, adapter.ProcessRequest{
		VideoPath:         insp.VideoPath,
		InspectionID:      insp.ID,
		OdometerPhotoPath: insp.OdometerPhotoPath,
	}, log)
	est.Stop()
	metrics.ObserveAnalysisLatency(time.Since(start), err == nil)

	// Stop waited for the estimator goroutine, so folding its last value
	// back into the entity happens with no other writer alive.
	insp.AdvanceProgress(est.Current())

	if err != nil {
		uc.finishFailed(insp, failureMessage(err), log)
		return
	}
	if !applyResponse(res, resp) {
		uc.finishFailed(insp, "analysis service returned an empty result", log)
		return
	}
	uc.finishCompleted(insp, res, log)
}

// processWithRetry repeats the main analysis call under the retry policy.
// Each retry nudges progress so a poller sees the job is alive between
// attempts.
func (uc *inspectionUseCase) processWithRetry(ctx context.Context, est *ProgressEstimator, req adapter.ProcessRequest, log *zerolog.Logger) (*adapter.ProcessResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := uc.analysis.Process(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !uc.retry.ShouldRetry(err, attempt) {
			return nil, err
		}
		delay := uc.retry.Delay(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("analysis call failed, retrying")
		metrics.IncAnalysisRetry()
		est.Nudge()

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(delay):
		}
	}
}

// applyResponse copies the returned facets into the result record. It
// reports false when the envelope carries no findings at all, which is
// treated as a failed inspection rather than an empty success.
func applyResponse(res *model.InspectionResult, resp *adapter.ProcessResponse) bool {
	if resp == nil {
		return false
	}
	res.VehicleInfo = resp.VehicleInfo
	res.Odometer = resp.Odometer
	res.Damage = resp.Damage
	res.Exhaust = resp.Exhaust
	res.Report = resp.Report
	res.Frames = resp.Frames
	res.UpdatedAt = time.Now()
	return res.HasFindings()
}

// finishCompleted persists the successful terminal transition: result
// payload, progress 100, completed status, and the result linkage, in one
// transaction. Terminal writes use a background context so cancellation of
// the spawning context cannot strand the job mid-transition.
func (uc *inspectionUseCase) finishCompleted(insp *model.Inspection, res *model.InspectionResult, log *zerolog.Logger) {
	if err := insp.Complete(res.ID); err != nil {
		log.Error().Err(err).Msg("complete transition rejected")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.results.Save(ctx, tx, res); err != nil {
			return err
		}
		if err := uc.inspections.UpdateStatus(ctx, tx, insp.ID, model.StatusCompleted, insp.Progress, ""); err != nil {
			return err
		}
		return uc.inspections.LinkResult(ctx, tx, insp.ID, res.ID)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist completed inspection")
		return
	}
	metrics.IncInspectionFinished(string(model.StatusCompleted))
	log.Info().Str("result_id", res.ID).Msg("inspection completed")
}

// finishFailed persists the failed terminal transition with a displayable
// cause, leaving progress frozen at its last value.
func (uc *inspectionUseCase) finishFailed(insp *model.Inspection, msg string, log *zerolog.Logger) {
	if err := insp.Fail(msg); err != nil {
		log.Error().Err(err).Str("cause", msg).Msg("fail transition rejected")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := uc.inspections.UpdateStatus(ctx, nil, insp.ID, model.StatusFailed, -1, msg); err != nil {
		log.Error().Err(err).Msg("failed to persist failed inspection")
		return
	}
	metrics.IncInspectionFinished(string(model.StatusFailed))
	log.Warn().Str("cause", msg).Msg("inspection failed")
}
