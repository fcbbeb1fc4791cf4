package repository

import (
	"context"

	"vehicle-inspection-platform/internal/domain/model"
)

// ResultRepository is the Result Store contract. Results are written once by
// the owning orchestration run and read-only afterwards.
type ResultRepository interface {
	Save(ctx context.Context, tx Tx, res *model.InspectionResult) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.InspectionResult, error)
	FindByInspectionID(ctx context.Context, tx Tx, inspectionID string) (*model.InspectionResult, error)
}
