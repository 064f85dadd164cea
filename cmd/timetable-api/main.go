package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kotbarsikow/Shed-parser-nuwee/api/swagger"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/bootstrap"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/handler"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/middleware"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/config"
	"github.com/Kotbarsikow/Shed-parser-nuwee/pkg/logger"
	corsmiddleware "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/middleware/cors"
	reqidmiddleware "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/middleware/requestid"
)

// @title Timetable Sync API
// @version 1.0.0
// @description Scrapes the university timetable and mirrors it into Google Calendar
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build pipeline", "error", err)
	}
	defer app.Close()

	var jobs handler.SyncJobs
	if cfg.SyncJobs.Enabled {
		syncJobs := service.NewSyncJobService(app.Schedule, service.SyncJobConfig{
			Workers:    cfg.SyncJobs.Workers,
			MaxRetries: cfg.SyncJobs.MaxRetries,
			RetryDelay: cfg.SyncJobs.RetryDelay,
		}, app.Validate, logger.Named(logr, "sync-jobs"))
		syncJobs.Start(ctx)
		defer syncJobs.Stop()
		jobs = syncJobs
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.Metrics, "/metrics", "/health", "/ready"))

	checks := make(map[string]handler.ReadinessCheck, len(app.Checks))
	for name, check := range app.Checks {
		checks[name] = handler.ReadinessCheck(check)
	}
	metricsHandler := handler.NewMetricsHandler(app.Metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	scheduleHandler := handler.NewScheduleHandler(app.Schedule)
	syncHandler := handler.NewSyncHandler(app.Schedule, jobs)
	exportHandler := handler.NewExportHandler(app.Export)

	guards := []gin.HandlerFunc{}
	if cfg.JWT.Enabled {
		guards = append(guards, middleware.JWT(app.NewAuthService()))
	}

	// Form endpoint of the original service, kept at the root for existing clients.
	r.POST("/", append(guards, scheduleHandler.Get)...)

	api := r.Group(cfg.APIPrefix, guards...)
	api.POST("/schedule", scheduleHandler.Get)
	api.GET("/schedule/export", exportHandler.Export)
	api.POST("/sync", syncHandler.Sync)
	api.POST("/sync/jobs", syncHandler.Enqueue)
	api.GET("/sync/jobs/:id", syncHandler.Job)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "snapshot", cfg.Snapshot.Driver, "sync_jobs", cfg.SyncJobs.Enabled, "api_auth", cfg.JWT.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
