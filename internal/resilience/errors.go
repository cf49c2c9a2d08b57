package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures for fallback routing and monitoring
type Kind int

const (
	// KindUnknown - unclassified failure
	KindUnknown Kind = iota

	// KindConfiguration - missing credentials or config; the generation tier
	// cannot be offered at all
	KindConfiguration

	// KindBackendUnavailable - breaker open or backend explicitly disabled
	KindBackendUnavailable

	// KindBackendCall - timeout, rate limit, auth or generic API failure
	// from the generation backend
	KindBackendCall

	// KindRetrieval - grounding-context fetch failure
	KindRetrieval

	// KindValidation - malformed input (query too short/long)
	KindValidation

	// KindPersistence - session or ledger I/O failure
	KindPersistence
)

// String returns the monitor ledger name for the kind. Persistence maps to
// "storage" and backend/retrieval failures to "external_api" so the critical
// set in the monitor stays stable even if kinds are added.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindBackendCall, KindRetrieval:
		return "external_api"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the tagged failure type flowing through the resolution engine.
// A mapping table from Kind to localized message lives in the resolver; no
// code switches on concrete error types.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain, KindUnknown if unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ClassifyStatus maps an HTTP status from the generation backend onto the
// taxonomy. Everything lands in KindBackendCall; the context records the
// finer category for the monitor.
func ClassifyStatus(statusCode int, body string) *Error {
	category := "api_error"
	switch {
	case statusCode == http.StatusTooManyRequests:
		category = "rate_limit"
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		category = "auth"
	case statusCode >= 500:
		category = "server_error"
	}
	return &Error{
		Kind:    KindBackendCall,
		Message: fmt.Sprintf("HTTP %d: %s", statusCode, truncate(body, 200)),
		Context: map[string]string{"category": category, "status": fmt.Sprintf("%d", statusCode)},
	}
}

// Classify maps a transport-level error onto the taxonomy. Already-classified
// errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	errStr := err.Error()

	if strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return Wrap(KindBackendCall, "request timed out", err)
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "EOF") {
		return Wrap(KindBackendCall, fmt.Sprintf("network error: %s", truncate(errStr, 100)), err)
	}

	return Wrap(KindUnknown, truncate(errStr, 200), err)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
