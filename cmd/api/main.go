package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/api/handlers"
	"github.com/nexusflow/signals/internal/detect"
	"github.com/nexusflow/signals/internal/investigate"
	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/metrics"
	"github.com/nexusflow/signals/internal/middleware/ratelimit"
	"github.com/nexusflow/signals/internal/middleware/security"
	"github.com/nexusflow/signals/internal/middleware/validation"
	"github.com/nexusflow/signals/internal/pipeline"
	"github.com/nexusflow/signals/internal/recommend"
	"github.com/nexusflow/signals/internal/report"
	"github.com/nexusflow/signals/internal/sandbox"
	websearch "github.com/nexusflow/signals/internal/search/web"
	"github.com/nexusflow/signals/internal/storage/sqlite"
	"github.com/nexusflow/signals/internal/store"
	"github.com/nexusflow/signals/pkg/config"
	appLogger "github.com/nexusflow/signals/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting NexusFlow Signals API Server")

	metrics.Init()

	ledger, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer ledger.Close()

	err = ledger.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.AnalystModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	runner := sandbox.NewRunner(cfg.Detect.ExecTimeoutSec)
	signalStore := store.New(cfg.Store.Path)

	var searcher recommend.Searcher
	if cfg.Search.Enabled {
		searcher = websearch.NewClient(cfg.Search.SerpAPIKey, cfg.Search.TimeoutSec)
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		LLM:          llmClient,
		Executor:     runner,
		Investigator: investigate.NewInvestigator(llmClient, cfg.LLM.ReasoningModel),
		Strategist:   recommend.NewStrategist(llmClient, cfg.LLM.ReasoningModel, searcher, cfg.Search.MaxResults, cfg.Search.CacheTTL),
		Ghostwriter:  report.NewGhostwriter(llmClient, cfg.LLM.ReasoningModel),
		Signals:      signalStore,
		Ledger:       ledger,
		DetectConfig: detect.Config{
			MaxAttempts:  cfg.Detect.MaxAttempts,
			TopFindings:  cfg.Detect.TopFindings,
			EvidenceRows: cfg.Detect.EvidenceRows,
			Model:        cfg.LLM.AnalystModel,
		},
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: 60,
		Logger:            appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()
	app.Use(rateLimiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxUploadSize: int64(cfg.Server.BodyLimit),
		Logger:        appLogger.GetLogger(),
	}))

	paths := handlers.UploadPaths{
		Dir:         cfg.Data.Dir,
		SalesFile:   cfg.Data.SalesFile,
		ContextFile: cfg.Data.ContextFile,
		BacklogFile: cfg.Data.BacklogFile,
	}

	uploadHandler := handlers.NewUploadHandler(paths)
	auditHandler := handlers.NewAuditHandler(orchestrator, paths)
	signalsHandler := handlers.NewSignalsHandler(signalStore)
	runsHandler := handlers.NewRunsHandler(ledger)
	wsHandler := handlers.NewWebSocketHandler(orchestrator, paths)

	api := app.Group("/api/v1")

	api.Post("/upload", uploadHandler.UploadArtifacts)
	api.Post("/audit", auditHandler.RunAudit)

	api.Get("/signals", signalsHandler.ListSignals)
	api.Get("/signals/:id", signalsHandler.GetSignal)
	api.Delete("/signals", signalsHandler.ClearSignals)

	api.Get("/runs", runsHandler.ListRuns)
	api.Get("/runs/:id", runsHandler.GetRun)

	api.Use("/audit/live", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/audit/live", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
