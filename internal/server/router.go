// Package server builds the HTTP router.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/handler"
	"github.com/VPRamon/TSI-sub000/internal/middleware"
	"github.com/VPRamon/TSI-sub000/internal/service"
	"github.com/VPRamon/TSI-sub000/pkg/logger"
	corsmiddleware "github.com/VPRamon/TSI-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/VPRamon/TSI-sub000/pkg/middleware/requestid"
)

// Handlers groups the endpoint handlers.
type Handlers struct {
	Schedules *handler.ScheduleHandler
	Analytics *handler.AnalyticsHandler
	Jobs      *handler.JobHandler
	Metrics   *handler.MetricsHandler
}

// Options configures the router.
type Options struct {
	APIPrefix      string
	EnableDocs     bool
	AllowedOrigins []string
	Auth           middleware.TokenValidator
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// NewRouter registers every route. Writes require an ADMIN or OPERATOR token;
// reads are public.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics"))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/metrics/summary", h.Metrics.Snapshot)

	writers := []gin.HandlerFunc{
		middleware.JWT(opts.Auth),
		middleware.RequireWriter(),
	}
	write := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writers...), fn)
	}

	schedules := api.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.POST("", write(h.Schedules.Store)...)
	schedules.GET("/:id", h.Schedules.Get)

	schedules.POST("/:id/analytics", write(h.Analytics.Populate)...)
	schedules.GET("/:id/analytics", h.Analytics.BlockAnalytics)
	schedules.DELETE("/:id/analytics", write(h.Analytics.DeleteAnalytics)...)
	schedules.GET("/:id/analytics/status", h.Analytics.Status)

	schedules.GET("/:id/validation", h.Analytics.ValidationReport)
	schedules.GET("/:id/validation/export", h.Analytics.ExportValidation)
	schedules.DELETE("/:id/validation", write(h.Analytics.DeleteValidation)...)

	schedules.GET("/:id/summary", h.Analytics.Summary)
	schedules.GET("/:id/priority-rates", h.Analytics.PriorityRates)
	schedules.GET("/:id/visibility-bins", h.Analytics.VisibilityBins)

	api.GET("/jobs/:id", h.Jobs.Get)

	return r
}
