package model

import (
	"time"

	"github.com/google/uuid"

	"vehicle-inspection-platform/internal/domain"
)

// InspectionStatus is the lifecycle state of an inspection job. Values match
// the text stored in the inspections.status column.
type InspectionStatus string

const (
	StatusPending    InspectionStatus = "pending"
	StatusProcessing InspectionStatus = "processing"
	StatusCompleted  InspectionStatus = "completed"
	StatusFailed     InspectionStatus = "failed"
)

// statusRank orders the states so transitions can only move forward.
var statusRank = map[InspectionStatus]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusCompleted:  2,
	StatusFailed:     2,
}

// IsTerminal reports whether no further transitions are permitted.
func (s InspectionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the monotonic forward-only lifecycle:
// pending -> processing -> completed|failed. pending may also fail directly
// (e.g. dispatch refused before any work started).
func (s InspectionStatus) CanTransitionTo(next InspectionStatus) bool {
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Inspection is the durable record of one walkaround video's processing
// lifecycle. It is mutated only by the orchestration run that owns it; once
// terminal it is immutable.
type Inspection struct {
	ID                string
	VideoPath         string
	OdometerPhotoPath string // optional still image sent alongside the video
	Status            InspectionStatus
	Progress          int // 0..100, non-decreasing until terminal
	ErrorMessage      string
	ResultID          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInspection creates a pending inspection for an uploaded video.
func NewInspection(videoPath, odometerPhotoPath string) (*Inspection, error) {
	if videoPath == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Inspection{
		ID:                uuid.NewString(),
		VideoPath:         videoPath,
		OdometerPhotoPath: odometerPhotoPath,
		Status:            StatusPending,
		Progress:          0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// MarkProcessing transitions the inspection out of pending before any network
// I/O happens, so a poller never observes "pending" once work has started.
func (i *Inspection) MarkProcessing(initialProgress int) error {
	if !i.Status.CanTransitionTo(StatusProcessing) {
		return domain.ErrInvalidTransition
	}
	i.Status = StatusProcessing
	i.AdvanceProgress(initialProgress)
	i.touch()
	return nil
}

// AdvanceProgress raises progress to p. Lower values and writes after a
// terminal transition are ignored, keeping the observed sequence
// non-decreasing.
func (i *Inspection) AdvanceProgress(p int) {
	if i.Status.IsTerminal() {
		return
	}
	if p > 100 {
		p = 100
	}
	if p > i.Progress {
		i.Progress = p
		i.touch()
	}
}

// Complete records the successful terminal state and links the result.
func (i *Inspection) Complete(resultID string) error {
	if resultID == "" {
		return domain.ErrInvalidArgument
	}
	if !i.Status.CanTransitionTo(StatusCompleted) {
		return domain.ErrInvalidTransition
	}
	i.Status = StatusCompleted
	i.Progress = 100
	i.ResultID = resultID
	i.ErrorMessage = ""
	i.touch()
	return nil
}

// Fail records the failed terminal state. Progress is frozen at its last
// value; msg must be non-empty and displayable.
func (i *Inspection) Fail(msg string) error {
	if msg == "" {
		return domain.ErrInvalidArgument
	}
	if !i.Status.CanTransitionTo(StatusFailed) {
		return domain.ErrInvalidTransition
	}
	i.Status = StatusFailed
	i.ErrorMessage = msg
	i.ResultID = ""
	i.touch()
	return nil
}

func (i *Inspection) touch() {
	i.UpdatedAt = time.Now()
}
