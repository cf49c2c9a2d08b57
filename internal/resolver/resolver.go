// Package resolver decides how to answer a customer query: through the
// knowledge-grounded generation backend, the deterministic keyword matcher,
// or a business-hours-aware fallback. Every query that reaches Resolve ends
// in a well-formed outcome; nothing is raised to the transport layer.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"printdesk/internal/hours"
	"printdesk/internal/logging"
	"printdesk/internal/models"
	"printdesk/internal/monitor"
	"printdesk/internal/resilience"
	"printdesk/internal/session"
)

// MaxQueryLen bounds accepted queries in runes. Longer input is rejected
// before the pipeline with a corrective message.
const MaxQueryLen = 4096

// defaultWindowSize is how many history entries are handed to the
// generation backend (the current query rides along as the final turn).
const defaultWindowSize = 6

// Generator is the external generation backend: system instruction plus
// ordered turns in, generated text out. Invoked only through the breaker.
type Generator interface {
	Generate(ctx context.Context, system string, turns []models.Turn) (string, error)
}

// Retriever is the external retrieval collaborator supplying grounding
// context for a query. Empty text is a valid answer.
type Retriever interface {
	GetContext(ctx context.Context, query, language string) (string, error)
}

// Analytics is the best-effort query/response sink. Failures never affect
// the resolution result.
type Analytics interface {
	LogQuery(ctx context.Context, userID, query, language string) (string, error)
	LogResponse(ctx context.Context, correlationID string, outcome models.QueryOutcome) error
}

var resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "printdesk_resolutions_total",
	Help: "Resolved queries by answer source and language.",
}, []string{"source", "language"})

// Resolver is the orchestrator. All dependencies are injected; generator,
// retriever and analytics may be nil, which disables their tier.
type Resolver struct {
	sessions   *session.Store
	breaker    *resilience.Breaker
	monitor    *monitor.Monitor
	oracle     *hours.Oracle
	templates  *Templates
	generator  Generator
	retriever  Retriever
	analytics  Analytics
	windowSize int
	now        func() time.Time
}

// Options carries the optional collaborators and tunables.
type Options struct {
	Generator  Generator
	Retriever  Retriever
	Analytics  Analytics
	WindowSize int
}

// New wires the resolver from its constructed service objects.
func New(sessions *session.Store, breaker *resilience.Breaker, mon *monitor.Monitor,
	oracle *hours.Oracle, templates *Templates, opts Options) *Resolver {
	windowSize := opts.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Resolver{
		sessions:   sessions,
		breaker:    breaker,
		monitor:    mon,
		oracle:     oracle,
		templates:  templates,
		generator:  opts.Generator,
		retriever:  opts.Retriever,
		analytics:  opts.Analytics,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// ValidateQuery checks the per-query contract before the pipeline runs.
// The returned error carries a localized corrective message for the caller.
func (r *Resolver) ValidateQuery(query, language string) error {
	pack := r.templates.Pack(language)
	if strings.TrimSpace(query) == "" {
		return resilience.New(resilience.KindValidation, pack.EmptyQuery)
	}
	if len([]rune(query)) > MaxQueryLen {
		return resilience.New(resilience.KindValidation, pack.QueryTooLong)
	}
	return nil
}

// Resolve produces an answer for one inbound query. It never returns an
// error and never panics: any failure inside the tiers is recorded and
// converted into the fallback outcome at this boundary.
func (r *Resolver) Resolve(ctx context.Context, userID, query, language string) (outcome models.QueryOutcome) {
	start := r.now()
	if language == "" {
		language = r.templates.DefaultLanguage()
	}
	logger := logging.WithQuery(userID, language)

	defer func() {
		if rec := recover(); rec != nil {
			r.monitor.Record("unknown", fmt.Sprintf("panic in resolution pipeline: %v", rec),
				map[string]string{"user_id": userID})
			logger.Error("Panic recovered in resolution pipeline", "panic", rec)
			outcome = r.finish(ctx, logger, "", language, r.fallback(language, true), start)
		}
	}()

	return r.resolve(ctx, logger, userID, query, language, start)
}

func (r *Resolver) resolve(ctx context.Context, logger *slog.Logger, userID, query, language string, start time.Time) models.QueryOutcome {
	query = strings.TrimSpace(query)

	// 1. The inbound query becomes conversational context no matter which
	// tier ends up answering it.
	r.sessions.AppendUserMessage(userID, query, language, nil)

	correlationID := ""
	if r.analytics != nil {
		id, err := r.analytics.LogQuery(ctx, userID, query, language)
		if err != nil {
			logger.Warn("Analytics query log failed", "error", err)
		} else {
			correlationID = id
		}
	}

	// 2-3. Generation path, skipped entirely when the backend is not
	// configured. An unavailability (breaker open) falls through quietly;
	// a real call failure flips the fallback to its technical variant.
	technicalFailure := false
	if r.generator != nil {
		answer, contextUsed, err := r.generateAnswer(ctx, logger, userID, query, language)
		if err == nil && answer != "" {
			answer = ensureGlyph(answer)
			r.sessions.AppendAssistantMessage(userID, answer,
				map[string]string{"source": models.SourceGeneration})
			return r.finish(ctx, logger, correlationID, language, models.QueryOutcome{
				Success:     true,
				Answer:      answer,
				Confidence:  0.95,
				Source:      models.SourceGeneration,
				ContextUsed: contextUsed,
			}, start)
		}
		if err != nil {
			kind := resilience.KindOf(err)
			r.monitor.Record(kind.String(), err.Error(), map[string]string{"user_id": userID})
			logger.Warn("Generation path failed", "kind", kind.String(), "error", err)
			if kind != resilience.KindBackendUnavailable {
				technicalFailure = true
			}
		}
	}

	// 4. Deterministic keyword matcher.
	if answer, group, ok := r.templates.MatchKeyword(language, query); ok {
		r.sessions.AppendAssistantMessage(userID, answer,
			map[string]string{"source": models.SourceKeyword, "group": group})
		return r.finish(ctx, logger, correlationID, language, models.QueryOutcome{
			Success:    true,
			Answer:     answer,
			Confidence: 0.90,
			Source:     models.SourceKeyword,
		}, start)
	}

	// 5. Business-hours-aware fallback. Not appended to history: a shrug is
	// not useful conversational context.
	return r.finish(ctx, logger, correlationID, language, r.fallback(language, technicalFailure), start)
}

// generateAnswer runs the grounded generation path: retrieval context,
// bounded conversation window, one backend call through the breaker.
func (r *Resolver) generateAnswer(ctx context.Context, logger *slog.Logger, userID, query, language string) (string, bool, error) {
	contextText := ""
	if r.retriever != nil {
		text, err := r.retriever.GetContext(ctx, query, language)
		if err != nil {
			// Recoverable: generation proceeds ungrounded.
			r.monitor.Record(resilience.KindRetrieval.String(), err.Error(),
				map[string]string{"user_id": userID})
			logger.Warn("Context retrieval failed", "error", err)
		} else {
			contextText = text
		}
	}

	system := r.templates.Pack(language).SystemPrompt
	if contextText != "" {
		system += "\n\n---\n" + contextText
	}

	// The current query was appended first, so the window's final turn is
	// the query itself preceded by up to windowSize history entries.
	turns := r.sessions.ContextWindow(userID, r.windowSize+1)

	var answer string
	err := r.breaker.Do(ctx, func(ctx context.Context) error {
		generated, genErr := r.generator.Generate(ctx, system, turns)
		if genErr != nil {
			return genErr
		}
		answer = generated
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return answer, contextText != "", nil
}

// fallback composes the localized could-not-answer (or technical-error)
// message with an open/closed call to action.
func (r *Resolver) fallback(language string, technical bool) models.QueryOutcome {
	pack := r.templates.Pack(language)
	base := pack.NoAnswer
	if technical {
		base = pack.TechnicalError
	}

	now := r.now()
	cta := pack.OpenCTA
	if !r.oracle.IsOpenAt(now) {
		next := r.oracle.NextOpen(now).In(r.oracle.Location())
		cta = fmt.Sprintf(pack.ClosedCTA, next.Format("02.01.2006 15:04"))
	}

	return models.QueryOutcome{
		Success:              false,
		Answer:               base + " " + cta,
		Confidence:           0.0,
		Source:               models.SourceFallback,
		ShouldContactManager: true,
	}
}

// finish stamps timing, bumps metrics and reports the outcome to analytics.
func (r *Resolver) finish(ctx context.Context, logger *slog.Logger, correlationID, language string, outcome models.QueryOutcome, start time.Time) models.QueryOutcome {
	outcome.ResponseTimeMs = r.now().Sub(start).Milliseconds()
	resolutionsTotal.WithLabelValues(outcome.Source, language).Inc()

	if r.analytics != nil && correlationID != "" {
		if err := r.analytics.LogResponse(ctx, correlationID, outcome); err != nil {
			logger.Warn("Analytics response log failed", "error", err)
		}
	}
	logger.Info("Query resolved",
		"source", outcome.Source,
		"confidence", outcome.Confidence,
		"response_time_ms", outcome.ResponseTimeMs,
	)
	return outcome
}

// IsAvailable reports whether the generation tier is configured at all.
// The keyword and fallback tiers work regardless.
func (r *Resolver) IsAvailable() bool {
	return r.generator != nil
}

// SessionStats exposes the operational view of one user's session.
func (r *Resolver) SessionStats(userID string) models.SessionStats {
	return r.sessions.Stats(userID)
}

// ClearSession drops the user's conversational history.
func (r *Resolver) ClearSession(userID string) {
	r.sessions.Clear(userID)
}

// EngineHealth is the aggregated operational report.
type EngineHealth struct {
	Status       string         `json:"status"`
	Available    bool           `json:"generation_available"`
	BreakerState string         `json:"breaker_state"`
	Sessions     int            `json:"active_sessions"`
	Errors       monitor.Report `json:"errors"`
}

// HealthReport grades the engine over the trailing window.
func (r *Resolver) HealthReport(windowHours int) EngineHealth {
	if windowHours <= 0 {
		windowHours = 1
	}
	return EngineHealth{
		Status:       r.monitor.Health(windowHours),
		Available:    r.IsAvailable(),
		BreakerState: r.breaker.State().String(),
		Sessions:     r.sessions.Count(),
		Errors:       r.monitor.Analyze(windowHours),
	}
}

// presentationGlyphs is the expected set of answer markers. Generated
// answers missing all of them get a neutral one prepended so presentation
// stays consistent with the canned tier.
var presentationGlyphs = []string{"✅", "💰", "🎨", "⏰", "✨", "📌", "📞", "💡"}

func ensureGlyph(answer string) string {
	for _, glyph := range presentationGlyphs {
		if strings.Contains(answer, glyph) {
			return answer
		}
	}
	return "💡 " + answer
}
