package model

import (
	"time"

	"github.com/google/uuid"
)

// InspectionResult is the durable record of one inspection's successful
// output. It is created empty alongside the Inspection, owned exclusively by
// the orchestration run until completion, then read-only.
//
// Facet pointers are nil until the analysis service returns them; only some
// facets may be present depending on what the pipeline produced.
type InspectionResult struct {
	ID           string
	InspectionID string

	VehicleInfo *VehicleInfo
	Odometer    *OdometerReading
	Damage      *DamageSummary
	Exhaust     *ExhaustFinding
	Report      *InspectionReport
	Frames      []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VehicleInfo identifies the vehicle seen in the walkaround video.
type VehicleInfo struct {
	Type       string  `json:"type"` // car|motorcycle|bus|truck
	Brand      string  `json:"brand"`
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
}

// OdometerReading is the primary numeric reading extracted from the
// dashboard, with the frame it was read from.
type OdometerReading struct {
	Value                float64 `json:"value"`
	Confidence           float64 `json:"confidence"`
	SpeedometerImagePath string  `json:"speedometer_image_path,omitempty"`
}

// DamageCount is one damage category's tally.
type DamageCount struct {
	Count    int  `json:"count"`
	Detected bool `json:"detected"`
}

// DamageLocation pins a single finding to an extracted frame.
type DamageLocation struct {
	Type       string  `json:"type"` // scratch|dent|rust
	Frame      string  `json:"frame"`
	Severity   string  `json:"severity"` // low|high
	Confidence float64 `json:"confidence"`
}

// DamageSummary aggregates bodywork findings across all frames.
type DamageSummary struct {
	Scratches DamageCount      `json:"scratches"`
	Dents     DamageCount      `json:"dents"`
	Rust      DamageCount      `json:"rust"`
	Detected  bool             `json:"detected"`
	Locations []DamageLocation `json:"locations,omitempty"`
}

// ExhaustFinding classifies the exhaust as stock or modified.
type ExhaustFinding struct {
	Type       string  `json:"type"` // stock|modified
	IsStock    bool    `json:"is_stock"`
	Confidence float64 `json:"confidence"`
	Frame      string  `json:"frame,omitempty"`
}

// InspectionReport is the free-text report facet generated downstream.
type InspectionReport struct {
	Condition        string `json:"condition"` // good|fair|poor
	Summary          string `json:"summary,omitempty"`
	Notes            string `json:"notes,omitempty"`
	DamageAssessment string `json:"damage_assessment,omitempty"`
	ExhaustStatus    string `json:"exhaust_status,omitempty"`
}

// NewEmptyResult creates the empty result shell paired with a new inspection.
func NewEmptyResult(inspectionID string) *InspectionResult {
	now := time.Now()
	return &InspectionResult{
		ID:           uuid.NewString(),
		InspectionID: inspectionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasFindings reports whether at least one analysis facet was populated.
func (r *InspectionResult) HasFindings() bool {
	return r.VehicleInfo != nil || r.Odometer != nil || r.Damage != nil ||
		r.Exhaust != nil || r.Report != nil || len(r.Frames) > 0
}
