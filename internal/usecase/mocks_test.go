package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vehicle-inspection-platform/internal/domain"
	"vehicle-inspection-platform/internal/domain/model"
	"vehicle-inspection-platform/internal/domain/ports/adapter"
	"vehicle-inspection-platform/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---------------- in-memory repositories ----------------

// statusSnapshot is one observed write, used to assert ordering and
// monotonicity of what a poller would see.
type statusSnapshot struct {
	Status   model.InspectionStatus
	Progress int
	ErrMsg   string
}

type memInspectionRepo struct {
	mu      sync.Mutex
	store   map[string]*model.Inspection
	history map[string][]statusSnapshot
	saveErr error
}

func newMemInspectionRepo() *memInspectionRepo {
	return &memInspectionRepo{
		store:   make(map[string]*model.Inspection),
		history: make(map[string][]statusSnapshot),
	}
}

func (m *memInspectionRepo) record(insp *model.Inspection) {
	m.history[insp.ID] = append(m.history[insp.ID], statusSnapshot{
		Status:   insp.Status,
		Progress: insp.Progress,
		ErrMsg:   insp.ErrorMessage,
	})
}

func (m *memInspectionRepo) Save(ctx context.Context, tx repository.Tx, insp *model.Inspection) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *insp
	m.store[insp.ID] = &cp
	m.record(&cp)
	return nil
}

func (m *memInspectionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InspectionStatus, progress int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insp, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if insp.Status.IsTerminal() {
		return domain.ErrInvalidTransition
	}
	insp.Status = status
	if progress >= 0 && progress > insp.Progress {
		insp.Progress = progress
	}
	insp.ErrorMessage = errMsg
	insp.UpdatedAt = time.Now()
	m.record(insp)
	return nil
}

func (m *memInspectionRepo) SetProgress(ctx context.Context, tx repository.Tx, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insp, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if insp.Status != model.StatusProcessing {
		return nil
	}
	if progress > insp.Progress {
		insp.Progress = progress
		insp.UpdatedAt = time.Now()
		m.record(insp)
	}
	return nil
}

func (m *memInspectionRepo) LinkResult(ctx context.Context, tx repository.Tx, id, resultID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insp, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	insp.ResultID = resultID
	m.record(insp)
	return nil
}

func (m *memInspectionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	insp, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *insp
	return &cp, nil
}

func (m *memInspectionRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Inspection
	for _, insp := range m.store {
		cp := *insp
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memInspectionRepo) ListProcessingOlderThan(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Inspection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Inspection
	for _, insp := range m.store {
		if insp.Status == model.StatusProcessing && insp.UpdatedAt.Before(cutoff) {
			cp := *insp
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// snapshots returns a copy of the observed write sequence for one job.
func (m *memInspectionRepo) snapshots(id string) []statusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]statusSnapshot, len(m.history[id]))
	copy(out, m.history[id])
	return out
}

type memResultRepo struct {
	mu    sync.Mutex
	store map[string]*model.InspectionResult
}

func newMemResultRepo() *memResultRepo {
	return &memResultRepo{store: make(map[string]*model.InspectionResult)}
}

func (m *memResultRepo) Save(ctx context.Context, tx repository.Tx, res *model.InspectionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.store[res.ID] = &cp
	return nil
}

func (m *memResultRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.InspectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *memResultRepo) FindByInspectionID(ctx context.Context, tx repository.Tx, inspectionID string) (*model.InspectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, res := range m.store {
		if res.InspectionID == inspectionID {
			cp := *res
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memTxManager runs the callback without a real transaction; the in-memory
// repositories are already atomic per call.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---------------- scripted analysis adapter ----------------

// scriptedAnalysis plays back a fixed sequence of outcomes for Process and
// counts attempts. Scripts are keyed per video path so concurrent jobs can
// follow independent scenarios.
type scriptedOutcome struct {
	resp *adapter.ProcessResponse
	err  error
}

type scriptedAnalysis struct {
	mu        sync.Mutex
	healthErr error
	script    map[string][]scriptedOutcome
	attempts  map[string]int
	healthHit int
}

func newScriptedAnalysis() *scriptedAnalysis {
	return &scriptedAnalysis{
		script:   make(map[string][]scriptedOutcome),
		attempts: make(map[string]int),
	}
}

func (s *scriptedAnalysis) addScript(videoPath string, outcomes ...scriptedOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script[videoPath] = outcomes
}

func (s *scriptedAnalysis) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthHit++
	return s.healthErr
}

func (s *scriptedAnalysis) Process(ctx context.Context, req adapter.ProcessRequest) (*adapter.ProcessResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.attempts[req.VideoPath]
	s.attempts[req.VideoPath] = i + 1
	outcomes := s.script[req.VideoPath]
	if i >= len(outcomes) {
		return nil, &adapter.AnalysisError{Kind: adapter.KindServer, StatusCode: 500}
	}
	return outcomes[i].resp, outcomes[i].err
}

func (s *scriptedAnalysis) attemptCount(videoPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[videoPath]
}

// panicAnalysis panics inside the main call to exercise the outer boundary.
type panicAnalysis struct{}

func (panicAnalysis) HealthCheck(ctx context.Context) error { return nil }

func (panicAnalysis) Process(ctx context.Context, req adapter.ProcessRequest) (*adapter.ProcessResponse, error) {
	panic("analysis client blew up")
}

// ---------------- test runner ----------------

// testRunner executes tasks in goroutines like the production runner, but
// lets tests wait deterministically for every dispatched run to finish.
type testRunner struct {
	wg sync.WaitGroup
}

func (r *testRunner) Go(name string, task func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		task(context.Background())
	}()
}

func (r *testRunner) wait() { r.wg.Wait() }

// okResponse builds a populated envelope for success scenarios.
func okResponse(inspectionID string) *adapter.ProcessResponse {
	return &adapter.ProcessResponse{
		InspectionID: inspectionID,
		Frames:       []string{"frames/f1.jpg", "frames/f2.jpg"},
		VehicleInfo:  &model.VehicleInfo{Type: "car", Brand: "Honda", Model: "Civic", Confidence: 0.77},
		Odometer:     &model.OdometerReading{Value: 88000, Confidence: 0.9},
		Damage: &model.DamageSummary{
			Scratches: model.DamageCount{Count: 2, Detected: true},
			Detected:  true,
		},
		Exhaust: &model.ExhaustFinding{Type: "stock", IsStock: true, Confidence: 0.95},
		Report:  &model.InspectionReport{Condition: "fair", Summary: "two scratches on the rear panel"},
	}
}
