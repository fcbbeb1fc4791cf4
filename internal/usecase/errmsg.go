package usecase

import (
	"errors"
	"fmt"
	"strings"

	"vehicle-inspection-platform/internal/domain/ports/adapter"
)

const genericFailureMessage = "unknown error during processing"

// failureMessage derives the most specific human-readable cause available
// from an analysis error. Priority: the downstream service's own structured
// message, then a known mapping for the failure class, then the raw error
// text, then a generic fallback. Never returns an empty string; the result is
// stored on the inspection and shown to the user as-is.
func failureMessage(err error) string {
	if err == nil {
		return genericFailureMessage
	}

	var ae *adapter.AnalysisError
	if errors.As(err, &ae) {
		if msg := strings.TrimSpace(ae.Message); msg != "" {
			return msg
		}
		switch ae.Kind {
		case adapter.KindUnreachable:
			return "analysis service unreachable"
		case adapter.KindDNS:
			return "analysis service address could not be resolved"
		case adapter.KindTimeout:
			return "analysis request timed out"
		case adapter.KindServer:
			return fmt.Sprintf("analysis service error (http %d)", ae.StatusCode)
		case adapter.KindClient:
			return fmt.Sprintf("analysis service rejected the request (http %d)", ae.StatusCode)
		case adapter.KindBadResponse:
			return "analysis service returned an unreadable response"
		}
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return genericFailureMessage
}
