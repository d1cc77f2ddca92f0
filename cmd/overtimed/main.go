package main

import (
	"fmt"
	"log"
	"time"

	"github.com/purrup/auto-overtime/internal/batch"
	"github.com/purrup/auto-overtime/internal/config"
	"github.com/purrup/auto-overtime/internal/handler"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/normalize"
	"github.com/purrup/auto-overtime/internal/repository/postgres"
	"github.com/purrup/auto-overtime/internal/router"
	"github.com/purrup/auto-overtime/internal/service"
	"github.com/purrup/auto-overtime/internal/vision"
	"github.com/purrup/auto-overtime/internal/vision/openai"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	batchRepo := postgres.NewBatchRepo(db)

	// Initialize the extraction pipeline
	extractor := vision.NewRetrier(openai.NewClient(&cfg.Vision), vision.RetryConfig{
		MaxRetries: cfg.Vision.MaxRetries,
		BaseDelay:  time.Duration(cfg.Vision.BackoffBaseMS) * time.Millisecond,
	})
	opts := normalize.Options{PreferMinguoOnConflict: cfg.Normalize.PreferMinguoOnConflict}
	orchestrator := batch.NewOrchestrator(extractor, opts, cfg.Batch.Concurrency)

	// Initialize services
	batchSvc := service.NewBatchService(batchRepo, orchestrator, merge.NewMerger(opts))

	// Initialize handlers
	batchH := handler.NewBatchHandler(batchSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(batchH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
