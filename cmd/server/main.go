package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"printdesk/internal/ai"
	"printdesk/internal/analytics"
	"printdesk/internal/config"
	"printdesk/internal/handlers"
	"printdesk/internal/hours"
	"printdesk/internal/jobs"
	"printdesk/internal/logging"
	"printdesk/internal/monitor"
	"printdesk/internal/resilience"
	"printdesk/internal/resolver"
	"printdesk/internal/session"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting PrintDesk resolution engine...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, DataDir: %s)", cfg.Port, cfg.DataDir)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("❌ Failed to create data dir: %v", err)
	}

	// Templates: built-in packs, optionally overridden by a YAML file which
	// is then watched for hot reload.
	templates := resolver.NewTemplates(cfg.DefaultLanguage)
	schedule := hours.DefaultSchedule(cfg.Timezone)
	if cfg.TemplatesPath != "" {
		loaded, err := templates.LoadFile(cfg.TemplatesPath)
		if err != nil {
			log.Fatalf("❌ Failed to load templates from %s: %v", cfg.TemplatesPath, err)
		}
		if len(loaded.Days) > 0 {
			loaded.Timezone = firstNonEmpty(loaded.Timezone, cfg.Timezone)
			schedule = loaded
		}
		log.Printf("✅ Templates loaded from %s", cfg.TemplatesPath)
		go templates.Watch(cfg.TemplatesPath)
	}

	oracle, err := hours.NewOracle(schedule)
	if err != nil {
		log.Fatalf("❌ Invalid business schedule: %v", err)
	}

	// Error monitor with its durable ledger
	ledger, err := monitor.OpenLedger(filepath.Join(cfg.DataDir, "errors.jsonl"))
	if err != nil {
		log.Fatalf("❌ Failed to open error ledger: %v", err)
	}
	defer ledger.Close()
	mon := monitor.NewMonitor(ledger, nil)
	log.Println("✅ Error monitor initialized")

	// Session store with the configured record backend
	var backend session.RecordStore
	switch cfg.SessionBackend {
	case "sqlite":
		sqliteStore, err := session.NewSQLiteStore(filepath.Join(cfg.DataDir, "sessions.db"))
		if err != nil {
			log.Fatalf("❌ Failed to open session database: %v", err)
		}
		defer sqliteStore.Close()
		backend = sqliteStore
		log.Println("✅ Session backend: sqlite")
	default:
		fileStore, err := session.NewFileStore(filepath.Join(cfg.DataDir, "sessions"))
		if err != nil {
			log.Fatalf("❌ Failed to create session directory: %v", err)
		}
		backend = fileStore
		log.Println("✅ Session backend: file")
	}
	sessions := session.NewStore(backend, cfg.SessionIdleTimeout, cfg.SessionMaxMessages)
	loaded, err := sessions.Load()
	if err != nil {
		log.Printf("⚠️  Failed to load persisted sessions: %v", err)
		mon.Record("storage", "session load failed: "+err.Error(), nil)
	} else {
		log.Printf("✅ Loaded %d active sessions", loaded)
	}

	// Circuit breaker shared by all callers of the generation backend
	breaker := resilience.NewBreaker(cfg.BreakerThreshold, cfg.BreakerRecovery)

	// Generation backend (optional — keyword/fallback tiers work without it)
	opts := resolver.Options{WindowSize: cfg.ContextWindowSize}
	if cfg.GenAPIKey != "" {
		generator, err := ai.NewGenerator(ai.GeneratorConfig{
			BaseURL:     cfg.GenBaseURL,
			APIKey:      cfg.GenAPIKey,
			Model:       cfg.GenModel,
			Timeout:     cfg.GenTimeout,
			Temperature: cfg.GenTemperature,
			RateLimit:   cfg.GenRateLimit,
		})
		if err != nil {
			log.Fatalf("❌ Generation backend misconfigured: %v", err)
		}
		opts.Generator = generator
		log.Printf("✅ Generation backend: %s", generator)
	} else {
		log.Println("⚠️  GEN_API_KEY not set - generation tier disabled (keyword/fallback only)")
	}

	// Retrieval collaborator (optional)
	if cfg.RetrievalURL != "" {
		opts.Retriever = ai.NewRetriever(cfg.RetrievalURL, cfg.RetrievalTimeout, cfg.RetrievalCacheTTL)
		log.Printf("✅ Retrieval service: %s", cfg.RetrievalURL)
	} else {
		log.Println("⚠️  RETRIEVAL_URL not set - generation runs ungrounded")
	}

	// Analytics sink (best effort)
	sink, err := analytics.NewSQLiteSink(filepath.Join(cfg.DataDir, "analytics.db"))
	if err != nil {
		log.Printf("⚠️  Analytics disabled: %v", err)
	} else {
		defer sink.Close()
		opts.Analytics = sink
		log.Println("✅ Analytics sink initialized")
	}

	engine := resolver.New(sessions, breaker, mon, oracle, templates, opts)

	// Background maintenance jobs
	scheduler := jobs.NewScheduler()
	scheduler.Register("session_cleanup", jobs.NewSessionCleanupJob(sessions, time.Hour))
	scheduler.Register("ledger_prune", jobs.NewLedgerPruneJob(mon, cfg.LedgerRetentionDays))
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface
	app := fiber.New(fiber.Config{
		AppName:      "printdesk",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("printdesk")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	h := handlers.NewResolveHandler(engine)
	app.Get("/health", h.Liveness)
	api := app.Group("/api")
	api.Post("/resolve", h.Resolve)
	api.Get("/health", h.Health)
	api.Get("/sessions/:userID", h.SessionStats)
	api.Delete("/sessions/:userID", h.ClearSession)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("⚠️  Shutdown error: %v", err)
		}
	}()

	log.Printf("🌐 Listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
