//go:build !integration

package usecase

import (
	"errors"
	"testing"

	"vehicle-inspection-platform/internal/domain/ports/adapter"
)

func TestFailureMessagePriority(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "structured message wins over kind mapping",
			err:  &adapter.AnalysisError{Kind: adapter.KindServer, StatusCode: 500, Message: "failed to extract frames from video"},
			want: "failed to extract frames from video",
		},
		{
			name: "whitespace-only message falls through to kind",
			err:  &adapter.AnalysisError{Kind: adapter.KindTimeout, Message: "   "},
			want: "analysis request timed out",
		},
		{
			name: "unreachable kind",
			err:  &adapter.AnalysisError{Kind: adapter.KindUnreachable},
			want: "analysis service unreachable",
		},
		{
			name: "dns kind",
			err:  &adapter.AnalysisError{Kind: adapter.KindDNS},
			want: "analysis service address could not be resolved",
		},
		{
			name: "server kind carries the status code",
			err:  &adapter.AnalysisError{Kind: adapter.KindServer, StatusCode: 503},
			want: "analysis service error (http 503)",
		},
		{
			name: "client kind carries the status code",
			err:  &adapter.AnalysisError{Kind: adapter.KindClient, StatusCode: 422},
			want: "analysis service rejected the request (http 422)",
		},
		{
			name: "bad response kind",
			err:  &adapter.AnalysisError{Kind: adapter.KindBadResponse},
			want: "analysis service returned an unreadable response",
		},
		{
			name: "plain error uses its own text",
			err:  errors.New("context deadline exceeded"),
			want: "context deadline exceeded",
		},
		{
			name: "nil error falls back to the generic message",
			err:  nil,
			want: "unknown error during processing",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := failureMessage(tc.err); got != tc.want {
				t.Errorf("failureMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFailureMessageNeverEmpty(t *testing.T) {
	for _, err := range []error{
		nil,
		errors.New(""),
		errors.New("   "),
		&adapter.AnalysisError{},
	} {
		if got := failureMessage(err); got == "" {
			t.Errorf("failureMessage(%v) returned empty string", err)
		}
	}
}
