package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/adapter"
	"vehicle-inspection-platform/internal/domain/ports/repository"
	"vehicle-inspection-platform/internal/infra/logging"
	"vehicle-inspection-platform/internal/infra/metrics"
)

// Runner dispatches a detached background task with its own panic boundary.
// Dispatch must not block the caller.
type Runner interface {
	Go(name string, task func(ctx context.Context))
}

// InspectionUseCase owns the full lifecycle of inspection jobs: synchronous
// intake plus the asynchronous orchestration run per job.
type InspectionUseCase interface {
	// Submit creates the inspection and its empty result atomically,
	// schedules the run, and returns the inspection id without waiting on
	// any downstream call.
	Submit(ctx context.Context, videoPath, odometerPhotoPath string) (string, error)

	Get(ctx context.Context, id string) (*model.Inspection, error)
	GetResult(ctx context.Context, inspectionID string) (*model.InspectionResult, error)
	ListRecent(ctx context.Context, limit int) ([]*model.Inspection, error)
}

var _ InspectionUseCase = (*inspectionUseCase)(nil)

type inspectionUseCase struct {
	inspections repository.InspectionRepository
	results     repository.ResultRepository
	tm          repository.TransactionManager
	analysis    adapter.AnalysisAdapter
	runner      Runner
	retry       RetryPolicy
	progress    ProgressConfig
	log         *zerolog.Logger
}

func NewInspectionUseCase(
	inspections repository.InspectionRepository,
	results repository.ResultRepository,
	tm repository.TransactionManager,
	analysis adapter.AnalysisAdapter,
	runner Runner,
	retry RetryPolicy,
	progress ProgressConfig,
	logger *zerolog.Logger,
) *inspectionUseCase {
	ucLog := logger.With().Str("component", "InspectionUC").Logger()
	return &inspectionUseCase{
		inspections: inspections,
		results:     results,
		tm:          tm,
		analysis:    analysis,
		runner:      runner,
		retry:       retry,
		progress:    progress.withDefaults(),
		log:         &ucLog,
	}
}

func (uc *inspectionUseCase) Submit(ctx context.Context, videoPath, odometerPhotoPath string) (string, error) {
	defer logging.TraceDuration(uc.log, "InspectionUC.Submit")()

	insp, err := model.NewInspection(videoPath, odometerPhotoPath)
	if err != nil {
		return "", err
	}
	res := model.NewEmptyResult(insp.ID)

	// The job record and its empty result shell are created as one atomic
	// pair; a job id handed back to the caller always has both rows.
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.inspections.Save(ctx, tx, insp); err != nil {
			return err
		}
		return uc.results.Save(ctx, tx, res)
	})
	if err != nil {
		return "", err
	}

	metrics.IncInspectionSubmitted()
	uc.log.Info().
		Str("inspection_id", insp.ID).
		Str("video_path", videoPath).
		Msg("inspection submitted")

	uc.runner.Go("inspection-run", func(ctx context.Context) {
		uc.run(ctx, insp, res)
	})
	return insp.ID, nil
}

func (uc *inspectionUseCase) Get(ctx context.Context, id string) (*model.Inspection, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.inspections.FindByID(ctx, nil, id)
}

func (uc *inspectionUseCase) GetResult(ctx context.Context, inspectionID string) (*model.InspectionResult, error) {
	if inspectionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	insp, err := uc.inspections.FindByID(ctx, nil, inspectionID)
	if err != nil {
		return nil, err
	}
	if insp.Status != model.StatusCompleted {
		return nil, domain.ErrNotFound
	}
	return uc.results.FindByInspectionID(ctx, nil, inspectionID)
}

func (uc *inspectionUseCase) ListRecent(ctx context.Context, limit int) ([]*model.Inspection, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.inspections.ListRecent(ctx, nil, limit)
}
