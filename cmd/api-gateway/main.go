package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/VPRamon/TSI-sub000/api/swagger"
	"github.com/VPRamon/TSI-sub000/internal/app"
	"github.com/VPRamon/TSI-sub000/internal/handler"
	"github.com/VPRamon/TSI-sub000/internal/ingest"
	"github.com/VPRamon/TSI-sub000/internal/server"
	"github.com/VPRamon/TSI-sub000/pkg/config"
	"github.com/VPRamon/TSI-sub000/pkg/logger"
)

// @title TSI Schedule Analytics API
// @version 1.0.0
// @description Stores telescope observation schedules and serves block analytics, validation reports and summaries.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "api-gateway")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.JWT.Secret == "" {
		logr.Fatal("JWT_SECRET must be set")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.New(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise dependencies", zap.Error(err))
	}
	if err := components.Start(ctx); err != nil {
		logr.Fatal("failed to start background workers", zap.Error(err))
	}

	if cfg.Ingest.WatchDir != "" {
		watcher := ingest.NewWatcher(cfg.Ingest.WatchDir, components.Schedules, logr)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logr.Error("ingest watcher stopped", zap.Error(err))
			}
		}()
	}

	handlers := server.Handlers{
		Schedules: handler.NewScheduleHandler(components.Schedules, logr),
		Analytics: handler.NewAnalyticsHandler(components.Analytics, components.PopulateJobs, components.Exports, logr),
		Jobs:      handler.NewJobHandler(components.Tracker),
		Metrics: handler.NewMetricsHandler(components.Metrics, map[string]handler.Pinger{
			"postgres": handler.PingFunc(components.PingDatabase),
			"redis":    handler.PingFunc(components.PingRedis),
		}),
	}
	router := server.NewRouter(handlers, server.Options{
		APIPrefix:      cfg.APIPrefix,
		EnableDocs:     cfg.Env != config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Auth:           components.Auth,
		Metrics:        components.Metrics,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown failed", zap.Error(err))
	}
	if err := components.Close(); err != nil {
		logr.Warn("dependency shutdown failed", zap.Error(err))
	}
}
