package resilience

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(KindValidation, "query too long")
		if KindOf(err) != KindValidation {
			t.Errorf("KindOf = %v, want KindValidation", KindOf(err))
		}
	})

	t.Run("wrapped error chain", func(t *testing.T) {
		inner := Wrap(KindPersistence, "write failed", errors.New("disk full"))
		outer := fmt.Errorf("session store: %w", inner)
		if KindOf(outer) != KindPersistence {
			t.Errorf("KindOf through fmt wrap = %v, want KindPersistence", KindOf(outer))
		}
	})

	t.Run("unclassified error", func(t *testing.T) {
		if KindOf(errors.New("plain")) != KindUnknown {
			t.Error("Plain error should classify as KindUnknown")
		}
	})
}

func TestKindStringMonitorNames(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindConfiguration, "configuration"},
		{KindBackendUnavailable, "backend_unavailable"},
		{KindBackendCall, "external_api"},
		{KindRetrieval, "external_api"},
		{KindValidation, "validation"},
		{KindPersistence, "storage"},
		{KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind %d String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		category string
	}{
		{429, "rate_limit"},
		{401, "auth"},
		{403, "auth"},
		{500, "server_error"},
		{503, "server_error"},
		{400, "api_error"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := ClassifyStatus(tt.status, "body")
			if err.Kind != KindBackendCall {
				t.Errorf("Kind = %v, want KindBackendCall", err.Kind)
			}
			if err.Context["category"] != tt.category {
				t.Errorf("Category = %q, want %q", err.Context["category"], tt.category)
			}
		})
	}

	t.Run("long body is truncated", func(t *testing.T) {
		err := ClassifyStatus(500, strings.Repeat("x", 500))
		if len(err.Message) > 250 {
			t.Errorf("Message not truncated: %d chars", len(err.Message))
		}
	})
}

func TestClassify(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if Classify(nil) != nil {
			t.Error("Classify(nil) should return nil")
		}
	})

	t.Run("classified error passes through", func(t *testing.T) {
		original := New(KindRetrieval, "context fetch failed")
		if got := Classify(original); got != original {
			t.Errorf("Classified error was rewrapped: %v", got)
		}
	})

	t.Run("timeout text", func(t *testing.T) {
		err := Classify(errors.New("Post \"http://x\": context deadline exceeded"))
		if err.Kind != KindBackendCall || !strings.Contains(err.Message, "timed out") {
			t.Errorf("Timeout classification = %v", err)
		}
	})

	t.Run("network text", func(t *testing.T) {
		err := Classify(errors.New("dial tcp 127.0.0.1:9999: connection refused"))
		if err.Kind != KindBackendCall || !strings.Contains(err.Message, "network error") {
			t.Errorf("Network classification = %v", err)
		}
	})

	t.Run("unrecognized text", func(t *testing.T) {
		if err := Classify(errors.New("something odd")); err.Kind != KindUnknown {
			t.Errorf("Kind = %v, want KindUnknown", err.Kind)
		}
	})
}
