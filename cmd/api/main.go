package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/handler"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/cache"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/imageproc"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/middleware"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/observability"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/server"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/asset"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/reaper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Log, "menu-media-api")
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.Image.Policy()
	if err != nil {
		logger.Fatal("invalid image policy", zap.Error(err))
	}

	// Storage
	objectStorage, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create object storage", zap.Error(err))
	}

	// Image processing
	gate := imageproc.NewGate(cfg.Image.TransformSlots)
	validator := imageproc.NewValidator(policy)
	transformer := imageproc.NewTransformer(gate, policy.VariantFormat, policy.VariantQuality)

	// Use cases
	assetSvc := asset.NewService(objectStorage, validator, transformer, policy, cfg.Image.IngestTimeout, logger.Named("asset"))

	// Handlers
	assetHandler := handler.NewAssetHandler(assetSvc, policy.MaxUploadBytes)

	// Middleware
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		rateLimiter = middleware.NewRateLimiter(redisClient, cfg.RateLimit, logger)
	}

	routerCfg := server.RouterConfig{
		AssetHandler: assetHandler,
		RateLimiter:  rateLimiter,
		Gate:         gate,
		Logger:       logger,
		Environment:  cfg.Server.Environment,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}

	if local, ok := objectStorage.(*storage.LocalStorage); ok {
		routerCfg.StaticPath = cfg.Local.BaseURL
		routerCfg.StaticRoot = local.Root()

		if cfg.Reaper.Enabled {
			orphanReaper := reaper.NewService(local, policy.Sizes, logger.Named("reaper"))
			go orphanReaper.Run(ctx, cfg.Reaper.Interval, cfg.Reaper.Prefix, cfg.Reaper.MaxAge)
		}
	}

	// Router
	router := server.NewRouter(routerCfg)

	srv := server.NewServer(cfg.Server, router.Engine(), logger)

	logger.Info("asset pipeline ready",
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("transform_slots", gate.Slots()),
		zap.Strings("variants", policy.Sizes.Names()),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}
