package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/adapter"
)

var _ adapter.AnalysisAdapter = (*NoopAdapter)(nil)

// NoopAdapter implements adapter.AnalysisAdapter for local/dev runs without
// the ML service. It returns a canned inspection after a short delay.
type NoopAdapter struct {
	Delay time.Duration
	log   *zerolog.Logger
}

func NewNoopAdapter(logger *zerolog.Logger) *NoopAdapter {
	aLog := logger.With().Str("component", "NoopAnalysis").Logger()
	return &NoopAdapter{Delay: 500 * time.Millisecond, log: &aLog}
}

func (a *NoopAdapter) HealthCheck(ctx context.Context) error {
	return nil
}

func (a *NoopAdapter) Process(ctx context.Context, req adapter.ProcessRequest) (*adapter.ProcessResponse, error) {
	select {
	case <-time.After(a.Delay):
	case <-ctx.Done():
		return nil, &adapter.AnalysisError{Kind: adapter.KindTimeout, Err: ctx.Err()}
	}
	a.log.Info().
		Str("inspection_id", req.InspectionID).
		Str("video_path", req.VideoPath).
		Msg("noop analysis processed")
	return &adapter.ProcessResponse{
		InspectionID: req.InspectionID,
		Frames:       []string{"frames/" + req.InspectionID + "/frame_0001.jpg"},
		VehicleInfo: &model.VehicleInfo{
			Type: "car", Brand: "Toyota", Model: "Toyota Model", Confidence: 0.42,
		},
		Odometer: &model.OdometerReading{Value: 52310, Confidence: 0.8},
		Damage: &model.DamageSummary{
			Scratches: model.DamageCount{Count: 1, Detected: true},
			Detected:  true,
		},
		Exhaust: &model.ExhaustFinding{Type: "stock", IsStock: true, Confidence: 0.9},
		Report: &model.InspectionReport{
			Condition: "good",
			Summary:   "Noop inspection report for local development.",
		},
	}, nil
}
