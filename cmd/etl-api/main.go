package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/edumetrics/lms-kpi-api/api/swagger"
	"github.com/edumetrics/lms-kpi-api/internal/filter"
	"github.com/edumetrics/lms-kpi-api/internal/handler"
	"github.com/edumetrics/lms-kpi-api/internal/lms"
	"github.com/edumetrics/lms-kpi-api/internal/middleware"
	"github.com/edumetrics/lms-kpi-api/internal/repository"
	"github.com/edumetrics/lms-kpi-api/internal/service"
	"github.com/edumetrics/lms-kpi-api/pkg/cache"
	"github.com/edumetrics/lms-kpi-api/pkg/config"
	"github.com/edumetrics/lms-kpi-api/pkg/database"
	"github.com/edumetrics/lms-kpi-api/pkg/jobs"
	"github.com/edumetrics/lms-kpi-api/pkg/logger"
	corsmiddleware "github.com/edumetrics/lms-kpi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edumetrics/lms-kpi-api/pkg/middleware/requestid"
)

// @title LMS KPI API
// @version 1.0.0
// @description Academic KPI computation pipeline over Moodle web services
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, LMS response caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.LMS.CacheTTL, logr, false)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.LMS.CacheTTL, logr, true)
	}

	lmsClient := lms.NewClient(lms.Config{
		BaseURL:  cfg.LMS.BaseURL,
		Token:    cfg.LMS.Token,
		Timeout:  cfg.LMS.Timeout,
		CacheTTL: cfg.LMS.CacheTTL,
	}, cacheSvc, logr)

	courseFilter := filter.New(filter.Config{
		BlacklistKeywords:   cfg.Pipeline.BlacklistKeywords,
		ExcludedDepartments: cfg.Pipeline.ExcludedDepartments,
		MinStart:            parseDateBound(logr, cfg.Pipeline.StartDate, false),
		MaxStart:            parseDateBound(logr, cfg.Pipeline.EndDate, true),
		Strict:              cfg.Pipeline.StrictQualityFilters,
	})

	pool := jobs.NewPool(jobs.PoolConfig{Workers: cfg.Pipeline.Workers, Logger: logr})

	kpiRepo := repository.NewKPIRepository(db)
	pipelineSvc := service.NewPipelineService(lmsClient, kpiRepo, courseFilter, pool, metricsSvc, logr, service.PipelineConfig{
		Workers:   cfg.Pipeline.Workers,
		StartDate: cfg.Pipeline.StartDate,
		EndDate:   cfg.Pipeline.EndDate,
	})
	authSvc := service.NewAuthService(validator.New(), logr, service.AuthConfig{
		ClientID:         cfg.Auth.ClientID,
		ClientSecretHash: cfg.Auth.ClientSecretHash,
		JWTSecret:        cfg.Auth.JWTSecret,
		TokenTTL:         cfg.Auth.TokenTTL,
		Issuer:           cfg.Auth.Issuer,
	})
	exportSvc := service.NewExportService(nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	pipelineHandler := handler.NewPipelineHandler(pipelineSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/token", authHandler.Token)

	protected := api.Group("", middleware.JWT(authSvc))
	protected.GET("/metrics/summary", metricsHandler.Summary)
	protected.POST("/pipeline/runs", pipelineHandler.TriggerRun)
	protected.GET("/pipeline/runs", pipelineHandler.ListRuns)
	protected.GET("/pipeline/runs/:id", pipelineHandler.GetRun)
	protected.POST("/pipeline/runs/:id/cancel", pipelineHandler.CancelRun)
	protected.GET("/pipeline/runs/:id/export", pipelineHandler.ExportRun)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// parseDateBound converts a YYYY-MM-DD pipeline bound into unix seconds.
// End bounds cover the whole day.
func parseDateBound(logr *zap.Logger, raw string, endOfDay bool) int64 {
	if raw == "" {
		return 0
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		logr.Warn("invalid pipeline date bound, ignoring", zap.String("value", raw), zap.Error(err))
		return 0
	}
	ts := t.Unix()
	if endOfDay {
		ts += 86399
	}
	return ts
}
