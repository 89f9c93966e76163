package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/handler"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/imageproc"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/middleware"
	"github.com/marcos-nsantos/menu-media-backend/internal/pkg/httputil"
)

type Router struct {
	engine       *gin.Engine
	assetHandler *handler.AssetHandler
	rateLimiter  *middleware.RateLimiter
	gate         *imageproc.Gate
	logger       *zap.Logger
	corsOrigins  []string
	staticPath   string
	staticRoot   string
}

type RouterConfig struct {
	AssetHandler *handler.AssetHandler
	// RateLimiter is optional; uploads are unlimited without it.
	RateLimiter *middleware.RateLimiter
	// Gate, when set, has its occupancy reported by /health.
	Gate        *imageproc.Gate
	Logger      *zap.Logger
	Environment string
	CORSOrigins []string
	// StaticPath and StaticRoot serve local storage files when both are set.
	StaticPath string
	StaticRoot string
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:       engine,
		assetHandler: cfg.AssetHandler,
		rateLimiter:  cfg.RateLimiter,
		gate:         cfg.Gate,
		logger:       cfg.Logger,
		corsOrigins:  cfg.CORSOrigins,
		staticPath:   cfg.StaticPath,
		staticRoot:   cfg.StaticRoot,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.logger, "/health", r.staticPath))
	r.engine.Use(middleware.CORS(r.corsOrigins))
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.health)

	if r.staticPath != "" && r.staticRoot != "" {
		r.engine.Static(r.staticPath, r.staticRoot)
	}

	api := r.engine.Group("/api/v1")
	{
		assets := api.Group("/assets")
		{
			upload := []gin.HandlerFunc{r.assetHandler.Upload}
			if r.rateLimiter != nil {
				upload = append([]gin.HandlerFunc{r.rateLimiter.Limit()}, upload...)
			}
			assets.POST("/:kind/:owner_id", upload...)
			assets.DELETE("", r.assetHandler.Delete)
		}
	}
}

func (r *Router) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if r.gate != nil {
		body["transforms"] = gin.H{
			"slots":     r.gate.Slots(),
			"in_flight": r.gate.InFlight(),
			"waiting":   r.gate.Waiting(),
		}
	}
	httputil.OK(c, body)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
