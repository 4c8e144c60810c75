package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/config"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/handlers"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/logger"
)

// Check reports whether one backend is reachable.
type Check func(ctx context.Context) error

// Deps are the collaborators the router exposes over HTTP.
type Deps struct {
	Log      *zap.Logger
	Bus      handlers.Dispatcher
	Stats    handlers.RecordCounter // nil when no archive is configured
	Checks   map[string]Check
	Gatherer prometheus.Gatherer
}

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /metrics
// Authenticated: /events (CORS + rate limited), /stats
func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms every configured backend is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		failed := gin.H{}
		for name, check := range d.Checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "errors": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	apiKeys := auth.APIKeyMiddleware(cfg.APIKeys)

	ingest := r.Group("/")
	ingest.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), apiKeys)
	handlers.RegisterEventRoutes(ingest, d.Bus)

	if d.Stats != nil {
		api := r.Group("/")
		api.Use(apiKeys)
		handlers.RegisterStatsRoutes(api, d.Stats)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "X-API-Key", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
