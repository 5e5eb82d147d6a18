package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/services/health"
	"docharvest-backend/internal/shared/config"
	"docharvest-backend/internal/shared/metrics"
	"docharvest-backend/internal/shared/server/middleware"
	"docharvest-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the wired handlers into NewRouter.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
	Health   *health.Service
}

const (
	rateGroupDefault    = "DEFAULT"
	rateGroupExtraction = "EXTRACTION"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		metrics.Middleware(),
	)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, health.Report{OK: true})
			return
		}
		report := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// rateLimitConfig gives extraction endpoints a quarter of the default budget.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	base := cfg.RateLimit
	extraction := middleware.RateLimitRule{Rate: base.RequestsPerSecond / 4, Burst: base.Burst / 4}
	if extraction.Burst < 1 {
		extraction.Burst = 1
	}
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method != http.MethodPost {
				return rateGroupDefault
			}
			switch c.FullPath() {
			case "/api/v1/documents/upload", "/api/v1/documents/scrape":
				return rateGroupExtraction
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault:    {Rate: base.RequestsPerSecond, Burst: base.Burst},
			rateGroupExtraction: extraction,
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
