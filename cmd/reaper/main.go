// Command reaper runs one orphan sweep over local storage and exits. It suits
// cron driven deployments that disable the in-process reaper.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/observability"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/reaper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log, "menu-media-reaper")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Storage.Backend != config.BackendLocal {
		logger.Info("nothing to sweep", zap.String("storage_backend", cfg.Storage.Backend))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := storage.NewLocalStorage(cfg.Local)
	if err != nil {
		logger.Fatal("failed to open local storage", zap.Error(err))
	}

	removed, err := reaper.NewService(local, cfg.Image.Variants, logger).Sweep(ctx, cfg.Reaper.Prefix, cfg.Reaper.MaxAge)
	if err != nil {
		logger.Fatal("orphan sweep failed", zap.Error(err))
	}

	logger.Info("orphan sweep finished", zap.Int("removed", removed), zap.String("root", local.Root()))
}
