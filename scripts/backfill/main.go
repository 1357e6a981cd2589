// Command backfill executes one synchronous pipeline run and exits.
// It reuses the API configuration, so a .env pointed at the right
// Moodle instance and warehouse is all it needs. Useful for historical
// loads and cron-driven refreshes where the HTTP surface is overkill.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/edumetrics/lms-kpi-api/internal/filter"
	"github.com/edumetrics/lms-kpi-api/internal/lms"
	"github.com/edumetrics/lms-kpi-api/internal/models"
	"github.com/edumetrics/lms-kpi-api/internal/repository"
	"github.com/edumetrics/lms-kpi-api/internal/service"
	"github.com/edumetrics/lms-kpi-api/pkg/config"
	"github.com/edumetrics/lms-kpi-api/pkg/database"
	"github.com/edumetrics/lms-kpi-api/pkg/jobs"
	"github.com/edumetrics/lms-kpi-api/pkg/logger"
)

func main() {
	startDate := flag.String("start", "", "course start-date window lower bound (YYYY-MM-DD, overrides config)")
	endDate := flag.String("end", "", "course start-date window upper bound (YYYY-MM-DD, overrides config)")
	lenient := flag.Bool("lenient", false, "disable the structural and maturity quality filters")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *startDate != "" {
		cfg.Pipeline.StartDate = *startDate
	}
	if *endDate != "" {
		cfg.Pipeline.EndDate = *endDate
	}
	if *lenient {
		cfg.Pipeline.StrictQualityFilters = false
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

	lmsClient := lms.NewClient(lms.Config{
		BaseURL:  cfg.LMS.BaseURL,
		Token:    cfg.LMS.Token,
		Timeout:  cfg.LMS.Timeout,
		CacheTTL: cfg.LMS.CacheTTL,
	}, nil, logr)

	courseFilter := filter.New(filter.Config{
		BlacklistKeywords:   cfg.Pipeline.BlacklistKeywords,
		ExcludedDepartments: cfg.Pipeline.ExcludedDepartments,
		MinStart:            parseDateBound(cfg.Pipeline.StartDate, false),
		MaxStart:            parseDateBound(cfg.Pipeline.EndDate, true),
		Strict:              cfg.Pipeline.StrictQualityFilters,
	})

	pool := jobs.NewPool(jobs.PoolConfig{Workers: cfg.Pipeline.Workers, Logger: logr})
	pipeline := service.NewPipelineService(lmsClient, repository.NewKPIRepository(db), courseFilter, pool, nil, logr, service.PipelineConfig{
		Workers:   cfg.Pipeline.Workers,
		StartDate: cfg.Pipeline.StartDate,
		EndDate:   cfg.Pipeline.EndDate,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	run, err := pipeline.Run(ctx)
	if err != nil {
		logr.Sugar().Fatalw("backfill failed", "error", err)
	}

	logr.Info("backfill finished",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("total", run.TotalCourses),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)

	for _, outcome := range run.Outcomes {
		if outcome.Status != models.CourseOutcomeOK {
			fmt.Fprintf(os.Stderr, "%s\tcourse %d (%s): %s\n", outcome.Status, outcome.CourseID, outcome.CourseName, outcome.Reason)
		}
	}

	if run.Status != models.RunStatusCompleted {
		os.Exit(1)
	}
}

func parseDateBound(raw string, endOfDay bool) int64 {
	if raw == "" {
		return 0
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return 0
	}
	ts := t.Unix()
	if endOfDay {
		ts += 86399
	}
	return ts
}
