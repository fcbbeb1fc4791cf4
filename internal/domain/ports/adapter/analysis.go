package adapter

import (
	"context"
	"fmt"

	"vehicle-inspection-platform/internal/domain/model"
)

// AnalysisAdapter wraps all I/O with the external computer-vision service.
// HealthCheck is a cheap pre-flight gate with a short timeout; Process is the
// expensive long-running call and carries its own hard timeout.
type AnalysisAdapter interface {
	HealthCheck(ctx context.Context) error
	Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)
}

// ProcessRequest is the body of POST /api/process. The inspection id doubles
// as the correlation key the service echoes back.
type ProcessRequest struct {
	VideoPath         string `json:"video_path"`
	InspectionID      string `json:"inspection_id"`
	OdometerPhotoPath string `json:"odometer_photo_path,omitempty"`
}

// ProcessResponse is the results envelope returned by the analysis service.
// Facets may be absent depending on what the pipeline produced.
type ProcessResponse struct {
	InspectionID string                  `json:"inspection_id"`
	Frames       []string                `json:"frames"`
	VehicleInfo  *model.VehicleInfo      `json:"vehicle_info"`
	Odometer     *model.OdometerReading  `json:"odometer"`
	Damage       *model.DamageSummary    `json:"damage"`
	Exhaust      *model.ExhaustFinding   `json:"exhaust"`
	Report       *model.InspectionReport `json:"report"`
}

// ErrorKind classifies an analysis failure for the retry policy.
type ErrorKind string

const (
	// Retryable: the service may recover.
	KindUnreachable ErrorKind = "unreachable" // connection refused / reset
	KindTimeout     ErrorKind = "timeout"     // deadline exceeded / aborted
	KindDNS         ErrorKind = "dns"         // name resolution failure
	KindServer      ErrorKind = "server"      // HTTP 5xx

	// Non-retryable: repeating the identical request cannot help.
	KindClient      ErrorKind = "client"       // HTTP 4xx
	KindBadResponse ErrorKind = "bad_response" // malformed/empty envelope
)

// AnalysisError is the structured error surfaced by analysis adapters.
// Message, when set, is the downstream service's own human-readable detail.
type AnalysisError struct {
	Kind       ErrorKind
	StatusCode int    // 0 for connection-level failures
	Message    string // structured message from the response body, if any
	Err        error  // underlying transport error, if any
}

func (e *AnalysisError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("analysis %s: %s", e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("analysis %s: http %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("analysis %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("analysis %s", e.Kind)
	}
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth another attempt.
func (e *AnalysisError) Retryable() bool {
	switch e.Kind {
	case KindUnreachable, KindTimeout, KindDNS, KindServer:
		return true
	default:
		return false
	}
}
