package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/repository"
)

var _ repository.InspectionRepository = (*inspectionRepo)(nil)

type inspectionRepo struct {
	pool *pgxpool.Pool
}

func NewInspectionRepo(pool *pgxpool.Pool) *inspectionRepo {
	return &inspectionRepo{pool: pool}
}

const inspectionColumns = `id, video_path, odometer_photo_path, status, progress, error_message, result_id, created_at, updated_at`

func (r *inspectionRepo) Save(ctx context.Context, tx repository.Tx, insp *model.Inspection) error {
	const q = `
INSERT INTO inspections (id, video_path, odometer_photo_path, status, progress, error_message, result_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  progress = EXCLUDED.progress,
  error_message = EXCLUDED.error_message,
  result_id = EXCLUDED.result_id,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		insp.ID, insp.VideoPath, insp.OdometerPhotoPath, string(insp.Status),
		insp.Progress, insp.ErrorMessage, insp.ResultID, insp.CreatedAt, insp.UpdatedAt)
	return err
}

// UpdateStatus applies a status transition for one job id. Writes into a
// terminal state are guarded in SQL so a late writer (e.g. the stale-run
// reconciler racing a finishing run) can never regress a terminal row.
// progress < 0 leaves the stored progress untouched.
func (r *inspectionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InspectionStatus, progress int, errMsg string) error {
	const q = `
UPDATE inspections SET
  status = $2,
  progress = CASE WHEN $3 < 0 THEN progress ELSE GREATEST(progress, $3) END,
  error_message = NULLIF($4, ''),
  updated_at = now()
WHERE id = $1 AND status NOT IN ('completed', 'failed');`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), progress, errMsg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// SetProgress raises displayed progress while the run is in flight. GREATEST
// keeps the stored value non-decreasing even if writes land out of order.
func (r *inspectionRepo) SetProgress(ctx context.Context, tx repository.Tx, id string, progress int) error {
	const q = `
UPDATE inspections SET
  progress = GREATEST(progress, $2),
  updated_at = now()
WHERE id = $1 AND status = 'processing';`

	_, err := execSQL(ctx, r.pool, tx, q, id, progress)
	return err
}

func (r *inspectionRepo) LinkResult(ctx context.Context, tx repository.Tx, id, resultID string) error {
	const q = `
UPDATE inspections SET
  result_id = $2,
  updated_at = now()
WHERE id = $1 AND status = 'completed';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, resultID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *inspectionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Inspection, error) {
	const q = `SELECT ` + inspectionColumns + ` FROM inspections WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanInspection(row)
}

func (r *inspectionRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Inspection, error) {
	const q = `SELECT ` + inspectionColumns + ` FROM inspections ORDER BY created_at DESC LIMIT $1;`

	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInspections(rows)
}

func (r *inspectionRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Inspection, error) {
	const q = `
SELECT ` + inspectionColumns + `
FROM inspections
WHERE status = 'processing' AND updated_at < $1
ORDER BY updated_at
LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInspections(rows)
}

func scanInspection(row pgx.Row) (*model.Inspection, error) {
	var insp model.Inspection
	var statusStr string
	var odoPath, errMsg, resultID sql.NullString

	err := row.Scan(
		&insp.ID, &insp.VideoPath, &odoPath, &statusStr, &insp.Progress,
		&errMsg, &resultID, &insp.CreatedAt, &insp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	insp.Status = model.InspectionStatus(statusStr)
	insp.OdometerPhotoPath = odoPath.String
	insp.ErrorMessage = errMsg.String
	insp.ResultID = resultID.String
	return &insp, nil
}

func scanInspections(rows pgx.Rows) ([]*model.Inspection, error) {
	var out []*model.Inspection
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, insp)
	}
	return out, rows.Err()
}
