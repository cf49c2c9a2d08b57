package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"printdesk/internal/resilience"
)

func TestGetContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "скільки коштують візитки" {
			t.Errorf("Query param q = %q", got)
		}
		if got := r.URL.Query().Get("lang"); got != "ukr" {
			t.Errorf("Query param lang = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"context": "Прайс: візитки від 150 грн."})
	}))
	defer server.Close()

	ret := NewRetriever(server.URL, time.Second, time.Minute)
	text, err := ret.GetContext(context.Background(), "скільки коштують візитки", "ukr")
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if text != "Прайс: візитки від 150 грн." {
		t.Errorf("Context = %q", text)
	}
}

func TestGetContextCaches(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode(map[string]string{"context": "cached text"})
	}))
	defer server.Close()

	ret := NewRetriever(server.URL, time.Second, time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := ret.GetContext(context.Background(), "same query", "ukr"); err != nil {
			t.Fatalf("GetContext call %d failed: %v", i, err)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Backend hits = %d, want 1 (cache miss only once)", hits)
	}

	// A different language is a different cache key
	ret.GetContext(context.Background(), "same query", "eng")
	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Backend hits = %d, want 2 after language change", hits)
	}
}

func TestGetContextEmptyIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"context": ""})
	}))
	defer server.Close()

	ret := NewRetriever(server.URL, time.Second, time.Minute)
	text, err := ret.GetContext(context.Background(), "нема нічого", "ukr")
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty context, got %q", text)
	}
}

func TestGetContextFailuresAreRetrievalKind(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "broken", http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewRetriever(server.URL, time.Second, time.Minute).
			GetContext(context.Background(), "q", "ukr")
		if resilience.KindOf(err) != resilience.KindRetrieval {
			t.Errorf("Kind = %v, want KindRetrieval", resilience.KindOf(err))
		}
	})

	t.Run("unreachable service", func(t *testing.T) {
		_, err := NewRetriever("http://127.0.0.1:1", time.Second, time.Minute).
			GetContext(context.Background(), "q", "ukr")
		if resilience.KindOf(err) != resilience.KindRetrieval {
			t.Errorf("Kind = %v, want KindRetrieval", resilience.KindOf(err))
		}
	})
}
