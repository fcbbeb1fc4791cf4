package repository

import (
	"context"
	"time"

	"vehicle-inspection-platform/internal/domain/model"
)

// InspectionRepository is the Job Store contract required by the
// orchestrator: atomic per-id writes applied in issue order, and
// read-after-write consistency for a single id so a poller never observes a
// state regression.
type InspectionRepository interface {
	Save(ctx context.Context, tx Tx, insp *model.Inspection) error

	// UpdateStatus applies a status transition. progress < 0 leaves the
	// stored progress untouched; errMsg is stored only for failed.
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.InspectionStatus, progress int, errMsg string) error

	// SetProgress raises progress without touching status. Writes lower
	// than the stored value are discarded.
	SetProgress(ctx context.Context, tx Tx, id string, progress int) error

	// LinkResult attaches the populated result to a completed inspection.
	LinkResult(ctx context.Context, tx Tx, id, resultID string) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.Inspection, error)
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.Inspection, error)

	// ListProcessingOlderThan returns runs that look orphaned (still
	// processing past the cutoff), for the stale-run reconciler.
	ListProcessingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Inspection, error)
}
