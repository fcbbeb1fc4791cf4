package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"vehicle-inspection-platform/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AnalysisAdapter = (*HTTPAdapter)(nil)

// HTTPAdapter talks to the external computer-vision service. Two separate
// clients enforce the two very different deadlines: the health probe must
// answer within seconds, the processing call may legitimately run for
// minutes on a long walkaround video.
type HTTPAdapter struct {
	base          string // e.g. http://ml-service:8000
	healthClient  *http.Client
	processClient *http.Client
}

func NewHTTPAdapter(baseURL string, healthTimeout, processTimeout time.Duration) (*HTTPAdapter, error) {
	if baseURL == "" {
		return nil, errors.New("analysis base url empty")
	}
	if healthTimeout <= 0 {
		healthTimeout = 5 * time.Second
	}
	if processTimeout <= 0 {
		processTimeout = 5 * time.Minute
	}
	return &HTTPAdapter{
		base:          strings.TrimRight(baseURL, "/"),
		healthClient:  &http.Client{Timeout: healthTimeout},
		processClient: &http.Client{Timeout: processTimeout},
	}, nil
}

// HealthCheck performs the cheap pre-flight probe: GET /health must answer
// 200 within the short timeout.
func (a *HTTPAdapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/health", nil)
	if err != nil {
		return &adapter.AnalysisError{Kind: adapter.KindBadResponse, Err: err}
	}
	resp, err := a.healthClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp)
	}
	return nil
}

// Process sends the main analysis request and decodes the results envelope.
// 4xx responses are structural (the request itself is invalid, retrying
// cannot help); 5xx and connection-level failures are transient.
func (a *HTTPAdapter) Process(ctx context.Context, preq adapter.ProcessRequest) (*adapter.ProcessResponse, error) {
	body, err := json.Marshal(preq)
	if err != nil {
		return nil, &adapter.AnalysisError{Kind: adapter.KindBadResponse, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/api/process", bytes.NewReader(body))
	if err != nil {
		return nil, &adapter.AnalysisError{Kind: adapter.KindBadResponse, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.processClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var envelope adapter.ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &adapter.AnalysisError{Kind: adapter.KindBadResponse, Err: err}
	}
	return &envelope, nil
}

// classifyTransportError maps connection-level failures onto the retryable
// error kinds the retry policy understands.
func classifyTransportError(err error) *adapter.AnalysisError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &adapter.AnalysisError{Kind: adapter.KindDNS, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &adapter.AnalysisError{Kind: adapter.KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &adapter.AnalysisError{Kind: adapter.KindTimeout, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &adapter.AnalysisError{Kind: adapter.KindUnreachable, Err: err}
	}
	return &adapter.AnalysisError{Kind: adapter.KindUnreachable, Err: err}
}

// newStatusError builds the error for a non-200 response, pulling the
// service's own detail message out of the body when one is present.
func newStatusError(resp *http.Response) *adapter.AnalysisError {
	kind := adapter.KindServer
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		kind = adapter.KindClient
	}
	return &adapter.AnalysisError{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    extractDetail(resp.Body),
	}
}

// extractDetail reads a {"detail": "..."} error body. Anything else yields
// an empty message and the caller falls back to the kind mapping.
func extractDetail(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 8<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return ""
	}
	if payload.Detail != "" {
		return payload.Detail
	}
	return payload.Message
}

// String implements fmt.Stringer for logging.
func (a *HTTPAdapter) String() string {
	return fmt.Sprintf("analysis@%s", a.base)
}
