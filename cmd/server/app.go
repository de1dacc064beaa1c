package main

import (
	"time"

	"github.com/paiban/replacement/internal/config"
	"github.com/paiban/replacement/internal/database"
	"github.com/paiban/replacement/internal/jobs"
	"github.com/paiban/replacement/internal/metrics"
	"github.com/paiban/replacement/internal/repository"
	"github.com/paiban/replacement/pkg/compliance"
	"github.com/paiban/replacement/pkg/ranking"
	"github.com/paiban/replacement/pkg/workload"
)

// App 进程内共享的依赖
type App struct {
	Cfg        *config.Config
	Loc        *time.Location
	DB         *database.DB
	Store      *repository.Store
	Recorder   *metrics.Recorder
	Aggregator *workload.Aggregator
	Ranking    *ranking.Service
	Detector   *compliance.Detector
	Runner     *jobs.Runner
	Scheduler  *jobs.Scheduler
}

// NewApp 打开数据库并组装各组件
func NewApp(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore(db)
	recorder := metrics.NewRecorder(metrics.Default())
	aggregator := workload.NewAggregator(store, loc)

	rankingCfg := ranking.Config{
		Timeout:            cfg.Ranking.Timeout,
		Workers:            cfg.Ranking.Workers,
		DefaultTargetHours: cfg.Ranking.DefaultTargetHours,
		SnapshotMaxAge:     cfg.Ranking.SnapshotMaxAge,
		Tiers:              cfg.Ranking.Tiers,
		EligibleRoles:      cfg.Scheduler.Roles(),
	}

	runner := jobs.NewRunner(store, store, aggregator, jobs.RunnerConfig{
		Workers:    cfg.Scheduler.Workers,
		RunTimeout: cfg.Scheduler.RunTimeout,
		Roles:      cfg.Scheduler.Roles(),
	}, loc, jobs.WithRecorder(recorder))

	scheduler, err := jobs.NewScheduler(runner, jobs.Rules{
		Daily:  cfg.Scheduler.DailyRule,
		Weekly: cfg.Scheduler.WeeklyRule,
	}, loc, jobs.WithJobRecorder(recorder))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Cfg:        cfg,
		Loc:        loc,
		DB:         db,
		Store:      store,
		Recorder:   recorder,
		Aggregator: aggregator,
		Ranking:    ranking.NewService(store, aggregator, rankingCfg, loc, ranking.WithMetricsSink(recorder)),
		Detector:   compliance.NewDetector(store, loc, compliance.WithRecorder(recorder)),
		Runner:     runner,
		Scheduler:  scheduler,
	}, nil
}

// Close 释放资源
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
