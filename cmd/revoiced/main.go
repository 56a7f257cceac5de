// Command revoiced runs the revoice localization daemon: it owns the video
// store, executes pipeline stages, watches the inbox, and serves the HTTP API
// the revoice CLI talks to.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/ingest"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/preflight"
	"revoice/internal/stages"
	"revoice/internal/videostore"
)

func main() {
	// Secrets such as REVOICE_LLM_API_KEY may live in a local .env file.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	store, err := videostore.Open(cfg)
	if err != nil {
		logger.Error("open video store", logging.Error(err))
		return
	}

	executors := stages.NewExecutors(cfg, logger)
	controller := pipeline.NewController(cfg, store, logger, executors)
	ingestSvc := ingest.NewService(cfg, store, controller, logger)

	d, err := daemon.New(cfg, store, controller, ingestSvc, executors, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("revoiced shutting down")
}
