package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"printdesk/internal/hours"
	"printdesk/internal/models"
	"printdesk/internal/monitor"
	"printdesk/internal/resilience"
	"printdesk/internal/session"
)

type nullBackend struct{}

func (nullBackend) ReadAll() ([]models.ConversationSession, error) { return nil, nil }
func (nullBackend) Write(sess *models.ConversationSession) error   { return nil }
func (nullBackend) Delete(userID string) error                     { return nil }

type fakeGenerator struct {
	answer     string
	err        error
	lastSystem string
	lastTurns  []models.Turn
	calls      int
}

func (g *fakeGenerator) Generate(ctx context.Context, system string, turns []models.Turn) (string, error) {
	g.calls++
	g.lastSystem = system
	g.lastTurns = append([]models.Turn(nil), turns...)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type fakeRetriever struct {
	text string
	err  error
}

func (r *fakeRetriever) GetContext(ctx context.Context, query, language string) (string, error) {
	return r.text, r.err
}

type fakeAnalytics struct {
	queries   int
	responses []models.QueryOutcome
	queryErr  error
}

func (a *fakeAnalytics) LogQuery(ctx context.Context, userID, query, language string) (string, error) {
	a.queries++
	if a.queryErr != nil {
		return "", a.queryErr
	}
	return fmt.Sprintf("corr-%d", a.queries), nil
}

func (a *fakeAnalytics) LogResponse(ctx context.Context, correlationID string, outcome models.QueryOutcome) error {
	a.responses = append(a.responses, outcome)
	return nil
}

// mondayNoon is inside the default schedule; mondayNight is after closing.
var (
	mondayNoon  = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // 12:00 Kyiv
	mondayNight = time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC) // 21:00 Kyiv
)

func testResolver(t *testing.T, opts Options) (*Resolver, *session.Store) {
	t.Helper()
	store := session.NewStore(nullBackend{}, 24*time.Hour, 100)
	oracle, err := hours.NewOracle(hours.DefaultSchedule("Europe/Kyiv"))
	if err != nil {
		t.Fatalf("NewOracle failed: %v", err)
	}
	r := New(store, resilience.NewBreaker(3, time.Minute),
		monitor.NewMonitor(nil, nil), oracle, NewTemplates("ukr"), opts)
	r.now = func() time.Time { return mondayNoon }
	return r, store
}

func TestResolveKeywordTier(t *testing.T) {
	r, store := testResolver(t, Options{})

	outcome := r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")

	if !outcome.Success {
		t.Error("Keyword match should succeed")
	}
	if outcome.Source != models.SourceKeyword {
		t.Errorf("Source = %q, want keyword", outcome.Source)
	}
	if outcome.Confidence != 0.90 {
		t.Errorf("Confidence = %v, want 0.90", outcome.Confidence)
	}
	if outcome.ShouldContactManager {
		t.Error("Keyword answer should not escalate to a manager")
	}
	if !strings.Contains(outcome.Answer, "💰") {
		t.Errorf("Price answer missing its glyph: %q", outcome.Answer)
	}

	// Both the query and the canned answer become history
	window := store.ContextWindow("user-1", 10)
	if len(window) != 2 {
		t.Fatalf("History turns = %d, want 2", len(window))
	}
	if window[1].Role != models.RoleAssistant || window[1].Content != outcome.Answer {
		t.Errorf("Assistant turn mismatch: %+v", window[1])
	}
}

func TestResolveFallbackTier(t *testing.T) {
	r, store := testResolver(t, Options{})

	outcome := r.Resolve(context.Background(), "user-1", "Чи можна привести кота?", "ukr")

	if outcome.Success {
		t.Error("Fallback outcome must report failure")
	}
	if outcome.Source != models.SourceFallback {
		t.Errorf("Source = %q, want fallback", outcome.Source)
	}
	if outcome.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0", outcome.Confidence)
	}
	if !outcome.ShouldContactManager {
		t.Error("Fallback must set should_contact_manager")
	}

	// The shrug is not appended to history; only the user query is
	window := store.ContextWindow("user-1", 10)
	if len(window) != 1 || window[0].Role != models.RoleUser {
		t.Errorf("History after fallback = %+v", window)
	}
}

func TestFallbackCallToAction(t *testing.T) {
	t.Run("during business hours", func(t *testing.T) {
		r, _ := testResolver(t, Options{})
		outcome := r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")
		if !strings.Contains(outcome.Answer, "зараз на місці") {
			t.Errorf("Expected open-hours CTA, got %q", outcome.Answer)
		}
	})

	t.Run("after closing names the next opening", func(t *testing.T) {
		r, _ := testResolver(t, Options{})
		r.now = func() time.Time { return mondayNight }
		outcome := r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")
		if !strings.Contains(outcome.Answer, "03.03.2026 09:00") {
			t.Errorf("Expected next-opening timestamp in CTA, got %q", outcome.Answer)
		}
	})
}

func TestResolveGenerationTier(t *testing.T) {
	gen := &fakeGenerator{answer: "✅ Візитки коштують від 150 грн за 100 шт."}
	ret := &fakeRetriever{text: "Прайс: візитки 150 грн / 100 шт."}
	r, store := testResolver(t, Options{Generator: gen, Retriever: ret})

	outcome := r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")

	if outcome.Source != models.SourceGeneration {
		t.Fatalf("Source = %q, want generation", outcome.Source)
	}
	if outcome.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95", outcome.Confidence)
	}
	if !outcome.ContextUsed {
		t.Error("ContextUsed should be true when retrieval returned text")
	}
	if !strings.Contains(gen.lastSystem, ret.text) {
		t.Error("Retrieved context not embedded in the system instruction")
	}
	if len(gen.lastTurns) != 1 || gen.lastTurns[0].Content != "Скільки коштують візитки?" {
		t.Errorf("Generator turns = %+v", gen.lastTurns)
	}

	window := store.ContextWindow("user-1", 10)
	if len(window) != 2 || window[1].Content != outcome.Answer {
		t.Errorf("Generated answer not appended to history: %+v", window)
	}
}

func TestResolveGenerationWindowCarriesHistory(t *testing.T) {
	gen := &fakeGenerator{answer: "✅ Відповідь."}
	r, _ := testResolver(t, Options{Generator: gen, WindowSize: 6})

	r.Resolve(context.Background(), "user-1", "перше питання", "ukr")
	r.Resolve(context.Background(), "user-1", "друге питання", "ukr")

	if len(gen.lastTurns) != 3 {
		t.Fatalf("Second call turns = %d, want 3", len(gen.lastTurns))
	}
	if gen.lastTurns[0].Content != "перше питання" {
		t.Errorf("First turn = %q", gen.lastTurns[0].Content)
	}
	if gen.lastTurns[1].Role != models.RoleAssistant {
		t.Errorf("Second turn role = %q, want assistant", gen.lastTurns[1].Role)
	}
	if gen.lastTurns[2].Content != "друге питання" {
		t.Errorf("Final turn = %q, want the current query", gen.lastTurns[2].Content)
	}
}

func TestGenerationGlyphAnnotation(t *testing.T) {
	gen := &fakeGenerator{answer: "Звичайна відповідь без маркера."}
	r, _ := testResolver(t, Options{Generator: gen})

	outcome := r.Resolve(context.Background(), "user-1", "питання без ключових слів", "ukr")
	if !strings.HasPrefix(outcome.Answer, "💡 ") {
		t.Errorf("Expected neutral glyph prefix, got %q", outcome.Answer)
	}

	gen.answer = "💰 Відповідь, що вже має маркер."
	outcome = r.Resolve(context.Background(), "user-2", "питання без ключових слів", "ukr")
	if strings.HasPrefix(outcome.Answer, "💡") {
		t.Errorf("Glyph added to an already-marked answer: %q", outcome.Answer)
	}
}

func TestGenerationFailureFallsThrough(t *testing.T) {
	t.Run("keyword tier catches it", func(t *testing.T) {
		gen := &fakeGenerator{err: resilience.New(resilience.KindBackendCall, "HTTP 500")}
		r, _ := testResolver(t, Options{Generator: gen})

		outcome := r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")
		if outcome.Source != models.SourceKeyword {
			t.Errorf("Source = %q, want keyword after generation failure", outcome.Source)
		}
	})

	t.Run("technical fallback when nothing matches", func(t *testing.T) {
		gen := &fakeGenerator{err: resilience.New(resilience.KindBackendCall, "HTTP 500")}
		r, _ := testResolver(t, Options{Generator: gen})

		outcome := r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")
		if outcome.Source != models.SourceFallback {
			t.Fatalf("Source = %q, want fallback", outcome.Source)
		}
		if !strings.Contains(outcome.Answer, "технічна помилка") {
			t.Errorf("Expected technical-error variant, got %q", outcome.Answer)
		}
	})

	t.Run("breaker open keeps the plain variant", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("down")}
		r, _ := testResolver(t, Options{Generator: gen})

		// Trip the breaker, then resolve once more while it is open
		for i := 0; i < 3; i++ {
			r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")
		}
		calls := gen.calls
		outcome := r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")

		if gen.calls != calls {
			t.Error("Generator invoked while breaker was open")
		}
		if strings.Contains(outcome.Answer, "технічна помилка") {
			t.Errorf("Breaker-open fallback used technical variant: %q", outcome.Answer)
		}
	})
}

func TestGenerationFailureIsRecorded(t *testing.T) {
	gen := &fakeGenerator{err: resilience.New(resilience.KindBackendCall, "HTTP 503")}
	r, _ := testResolver(t, Options{Generator: gen})

	r.Resolve(context.Background(), "user-1", "щось незрозуміле", "ukr")

	report := r.HealthReport(1)
	if report.Errors.CountsByKind["external_api"] != 1 {
		t.Errorf("Monitor counts = %v, want one external_api record", report.Errors.CountsByKind)
	}
}

func TestRetrievalFailureIsRecoverable(t *testing.T) {
	gen := &fakeGenerator{answer: "✅ Відповідь без довідки."}
	ret := &fakeRetriever{err: resilience.New(resilience.KindRetrieval, "context service down")}
	r, _ := testResolver(t, Options{Generator: gen, Retriever: ret})

	outcome := r.Resolve(context.Background(), "user-1", "питання", "ukr")

	if outcome.Source != models.SourceGeneration {
		t.Errorf("Source = %q, generation should proceed ungrounded", outcome.Source)
	}
	if outcome.ContextUsed {
		t.Error("ContextUsed must be false when retrieval failed")
	}
	if r.HealthReport(1).Errors.CountsByKind["external_api"] != 1 {
		t.Error("Retrieval failure not recorded")
	}
}

type panickyGenerator struct{}

func (panickyGenerator) Generate(ctx context.Context, system string, turns []models.Turn) (string, error) {
	panic("generator exploded")
}

func TestResolveRecoversFromPanic(t *testing.T) {
	r, _ := testResolver(t, Options{Generator: panickyGenerator{}})

	outcome := r.Resolve(context.Background(), "user-1", "питання", "ukr")

	if outcome.Source != models.SourceFallback {
		t.Errorf("Source after panic = %q, want fallback", outcome.Source)
	}
	if !outcome.ShouldContactManager {
		t.Error("Panic fallback must escalate to a manager")
	}
	if !strings.Contains(outcome.Answer, "технічна помилка") {
		t.Errorf("Panic fallback should use the technical variant: %q", outcome.Answer)
	}
	if r.HealthReport(1).Errors.CountsByKind["unknown"] != 1 {
		t.Error("Recovered panic not recorded")
	}
}

func TestResolveNeverPanicsOnStrangeInput(t *testing.T) {
	r, _ := testResolver(t, Options{})

	inputs := []string{
		"🔥🔥🔥",
		strings.Repeat("а", 10000),
		"\x00\x01\x02",
		"   \t\n  question  \n ",
	}
	for _, query := range inputs {
		outcome := r.Resolve(context.Background(), "user-1", query, "ukr")
		if outcome.Answer == "" {
			t.Errorf("Empty answer for input %q", query)
		}
	}
}

func TestValidateQuery(t *testing.T) {
	r, _ := testResolver(t, Options{})

	t.Run("empty query rejected", func(t *testing.T) {
		err := r.ValidateQuery("   ", "ukr")
		if resilience.KindOf(err) != resilience.KindValidation {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("oversized query rejected", func(t *testing.T) {
		err := r.ValidateQuery(strings.Repeat("а", MaxQueryLen+1), "ukr")
		if resilience.KindOf(err) != resilience.KindValidation {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("multibyte length counts runes not bytes", func(t *testing.T) {
		// Cyrillic is 2 bytes per rune; exactly MaxQueryLen runes must pass
		if err := r.ValidateQuery(strings.Repeat("а", MaxQueryLen), "ukr"); err != nil {
			t.Errorf("Rune-length query rejected: %v", err)
		}
	})

	t.Run("normal query passes", func(t *testing.T) {
		if err := r.ValidateQuery("Скільки коштують візитки?", "ukr"); err != nil {
			t.Errorf("Valid query rejected: %v", err)
		}
	})
}

func TestUnknownLanguageFallsBackToDefault(t *testing.T) {
	r, _ := testResolver(t, Options{})

	outcome := r.Resolve(context.Background(), "user-1", "скільки коштує банер", "pl")
	if outcome.Source != models.SourceKeyword {
		t.Errorf("Source = %q, want keyword via the default pack", outcome.Source)
	}
}

func TestAnalyticsBestEffort(t *testing.T) {
	t.Run("outcomes are reported", func(t *testing.T) {
		sink := &fakeAnalytics{}
		r, _ := testResolver(t, Options{Analytics: sink})

		r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")
		if sink.queries != 1 || len(sink.responses) != 1 {
			t.Fatalf("Analytics calls: queries=%d responses=%d", sink.queries, len(sink.responses))
		}
		if sink.responses[0].Source != models.SourceKeyword {
			t.Errorf("Reported source = %q", sink.responses[0].Source)
		}
	})

	t.Run("sink failure does not affect the outcome", func(t *testing.T) {
		sink := &fakeAnalytics{queryErr: errors.New("db locked")}
		r, _ := testResolver(t, Options{Analytics: sink})

		outcome := r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")
		if !outcome.Success {
			t.Error("Analytics failure leaked into the resolution result")
		}
	})
}

func TestSessionOperations(t *testing.T) {
	r, _ := testResolver(t, Options{})

	r.Resolve(context.Background(), "user-1", "Скільки коштують візитки?", "ukr")

	stats := r.SessionStats("user-1")
	if !stats.Exists || stats.MessageCount != 2 {
		t.Errorf("Stats = %+v, want 2 messages", stats)
	}

	r.ClearSession("user-1")
	if r.SessionStats("user-1").Exists {
		t.Error("Session survived ClearSession")
	}
}

func TestHealthReport(t *testing.T) {
	gen := &fakeGenerator{answer: "✅ ok"}
	r, _ := testResolver(t, Options{Generator: gen})

	report := r.HealthReport(0) // clamps to 1 hour
	if report.Status != monitor.StatusHealthy {
		t.Errorf("Status = %q, want healthy", report.Status)
	}
	if !report.Available {
		t.Error("Generation tier should report available")
	}
	if report.BreakerState != "closed" {
		t.Errorf("BreakerState = %q, want closed", report.BreakerState)
	}
	if report.Errors.WindowHours != 1 {
		t.Errorf("WindowHours = %d, want clamped 1", report.Errors.WindowHours)
	}
}

func TestIsAvailable(t *testing.T) {
	withGen, _ := testResolver(t, Options{Generator: &fakeGenerator{answer: "x"}})
	if !withGen.IsAvailable() {
		t.Error("IsAvailable = false with a configured generator")
	}
	without, _ := testResolver(t, Options{})
	if without.IsAvailable() {
		t.Error("IsAvailable = true without a generator")
	}
}
