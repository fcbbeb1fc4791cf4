package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/repository"
)

var _ repository.ResultRepository = (*resultRepo)(nil)

// resultRepo stores inspection results with each analysis facet as its own
// JSONB column, so partially populated results stay statically typed in Go
// while absent facets are plain NULLs in the row.
type resultRepo struct {
	pool *pgxpool.Pool
}

func NewResultRepo(pool *pgxpool.Pool) *resultRepo {
	return &resultRepo{pool: pool}
}

func (r *resultRepo) Save(ctx context.Context, tx repository.Tx, res *model.InspectionResult) error {
	vehicle, err := marshalFacet(res.VehicleInfo)
	if err != nil {
		return err
	}
	odometer, err := marshalFacet(res.Odometer)
	if err != nil {
		return err
	}
	damage, err := marshalFacet(res.Damage)
	if err != nil {
		return err
	}
	exhaust, err := marshalFacet(res.Exhaust)
	if err != nil {
		return err
	}
	report, err := marshalFacet(res.Report)
	if err != nil {
		return err
	}
	var frames []byte
	if len(res.Frames) > 0 {
		if frames, err = json.Marshal(res.Frames); err != nil {
			return err
		}
	}

	const q = `
INSERT INTO inspection_results (id, inspection_id, vehicle_info, odometer, damage, exhaust, report, frames, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
  vehicle_info = EXCLUDED.vehicle_info,
  odometer = EXCLUDED.odometer,
  damage = EXCLUDED.damage,
  exhaust = EXCLUDED.exhaust,
  report = EXCLUDED.report,
  frames = EXCLUDED.frames,
  updated_at = EXCLUDED.updated_at;`

	_, err = execSQL(ctx, r.pool, tx, q,
		res.ID, res.InspectionID, vehicle, odometer, damage, exhaust, report, frames,
		res.CreatedAt, res.UpdatedAt)
	return err
}

func (r *resultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.InspectionResult, error) {
	const q = `
SELECT id, inspection_id, vehicle_info, odometer, damage, exhaust, report, frames, created_at, updated_at
FROM inspection_results WHERE id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanResult(row)
}

func (r *resultRepo) FindByInspectionID(ctx context.Context, tx repository.Tx, inspectionID string) (*model.InspectionResult, error) {
	const q = `
SELECT id, inspection_id, vehicle_info, odometer, damage, exhaust, report, frames, created_at, updated_at
FROM inspection_results WHERE inspection_id = $1;`

	row, err := pickRow(ctx, r.pool, tx, q, inspectionID)
	if err != nil {
		return nil, err
	}
	return scanResult(row)
}

func scanResult(row pgx.Row) (*model.InspectionResult, error) {
	var res model.InspectionResult
	var vehicle, odometer, damage, exhaust, report, frames []byte

	err := row.Scan(
		&res.ID, &res.InspectionID, &vehicle, &odometer, &damage, &exhaust, &report, &frames,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}

	if err := unmarshalFacet(vehicle, &res.VehicleInfo); err != nil {
		return nil, err
	}
	if err := unmarshalFacet(odometer, &res.Odometer); err != nil {
		return nil, err
	}
	if err := unmarshalFacet(damage, &res.Damage); err != nil {
		return nil, err
	}
	if err := unmarshalFacet(exhaust, &res.Exhaust); err != nil {
		return nil, err
	}
	if err := unmarshalFacet(report, &res.Report); err != nil {
		return nil, err
	}
	if len(frames) > 0 {
		if err := json.Unmarshal(frames, &res.Frames); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &res, nil
}

// marshalFacet renders an optional facet pointer as JSONB, keeping nil
// pointers as SQL NULL.
func marshalFacet[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalFacet[T any](raw []byte, dst **T) error {
	if len(raw) == 0 {
		return nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.ErrReadDatabaseRow
	}
	*dst = &out
	return nil
}
