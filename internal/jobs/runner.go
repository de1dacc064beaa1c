// Package jobs 提供工作量快照的周期性重算任务
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/stats"
	"github.com/paiban/replacement/pkg/workload"
)

const (
	JobDaily  = "daily"
	JobWeekly = "weekly"
)

// Roster 在岗员工名册
type Roster interface {
	ListActiveEmployees(ctx context.Context, roles []model.Role) ([]*model.Employee, error)
}

// WorkloadStore 工作量快照存储
type WorkloadStore interface {
	Upsert(ctx context.Context, w *model.EmployeeWorkload) error
	ListByPeriod(ctx context.Context, month, year int) ([]*model.EmployeeWorkload, error)
	UpdateRefresh(ctx context.Context, id uuid.UUID, replacementCount int, fairness float64, at time.Time) error
}

// Calculator 工作量聚合
type Calculator interface {
	Calculate(ctx context.Context, userID uuid.UUID, month, year int) (*workload.Metrics, error)
	ReplacementCount(ctx context.Context, userID uuid.UUID, month, year int) (int, error)
}

// Recorder 任务指标
type Recorder interface {
	SetFairnessGini(metricType string, gini float64)
	RecordJobRun(job, status string, duration time.Duration, succeeded, failed int)
}

type nopRecorder struct{}

func (nopRecorder) SetFairnessGini(string, float64)                      {}
func (nopRecorder) RecordJobRun(string, string, time.Duration, int, int) {}

// RunnerConfig 批量重算配置
type RunnerConfig struct {
	Workers    int
	RunTimeout time.Duration
	Roles      []model.Role
}

// RunReport 单次任务执行结果
type RunReport struct {
	Job       string
	Month     int
	Year      int
	Employees int
	Succeeded int
	Failed    int
	FellBack  bool
	Fairness  *stats.TeamFairness
	Duration  time.Duration
}

// Status 任务结果状态
func (r *RunReport) Status() string {
	if r.Failed > 0 {
		return "partial"
	}
	return "success"
}

// RunnerOption 可选项
type RunnerOption func(*Runner)

// WithClock 注入时钟
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRecorder 注入指标记录器
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// Runner 执行每日全量重算与每周公平性刷新
type Runner struct {
	roster     Roster
	store      WorkloadStore
	calculator Calculator
	analyzer   *stats.FairnessAnalyzer
	cfg        RunnerConfig
	loc        *time.Location
	now        func() time.Time
	recorder   Recorder
	log        *zerolog.Logger
}

// NewRunner 创建任务执行器
func NewRunner(roster Roster, store WorkloadStore, calculator Calculator, cfg RunnerConfig, loc *time.Location, opts ...RunnerOption) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = []model.Role{model.RoleEmployee, model.RoleSupervisor}
	}
	if loc == nil {
		loc = time.UTC
	}

	r := &Runner{
		roster:     roster,
		store:      store,
		calculator: calculator,
		analyzer:   stats.NewFairnessAnalyzer(),
		cfg:        cfg,
		loc:        loc,
		now:        time.Now,
		recorder:   nopRecorder{},
		log:        logger.Component("jobs"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunDaily 为所有在岗员工重算当月指标并写入快照
func (r *Runner) RunDaily(ctx context.Context) (*RunReport, error) {
	start := r.now()
	period := model.PeriodOf(start, r.loc)
	report := &RunReport{Job: JobDaily, Month: period.Month, Year: period.Year}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	employees, err := r.roster.ListActiveEmployees(ctx, r.cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("读取员工名册失败: %w", err)
	}
	report.Employees = len(employees)

	var (
		mu      sync.Mutex
		results []*workload.Metrics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, emp := range employees {
		g.Go(func() error {
			m, err := r.calculator.Calculate(gctx, emp.ID, period.Month, period.Year)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				r.log.Warn().Err(err).Str("user_id", emp.ID.String()).Msg("员工工作量计算失败，已跳过")
				return nil
			}
			results = append(results, m)
			return nil
		})
	}
	_ = g.Wait()

	members := make([]stats.MemberStat, len(results))
	for i, m := range results {
		members[i] = stats.MemberStat{
			UserID:        m.UserID,
			TotalHours:    m.TotalHours,
			NightShifts:   m.NightShiftCount,
			WeekendShifts: m.WeekendShiftCount,
			Replacements:  m.ReplacementCount,
		}
	}
	fairness := r.analyzer.Analyze(members)
	report.Fairness = fairness

	calculatedAt := r.now()
	for _, m := range results {
		if err := r.store.Upsert(ctx, m.ToWorkload(fairness.Scores[m.UserID], calculatedAt)); err != nil {
			report.Failed++
			r.log.Warn().Err(err).Str("user_id", m.UserID.String()).Msg("写入工作量快照失败")
			continue
		}
		report.Succeeded++
	}

	r.emitGini(fairness)
	report.Duration = r.now().Sub(start)

	r.log.Info().
		Int("month", report.Month).
		Int("year", report.Year).
		Int("employees", report.Employees).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("每日工作量重算完成")

	return report, nil
}

// RunWeekly 仅重算顶班次数并基于快照中的夜班数刷新公平分；当月无快照时退回每日全量重算
func (r *Runner) RunWeekly(ctx context.Context) (*RunReport, error) {
	start := r.now()
	period := model.PeriodOf(start, r.loc)

	rows, err := r.store.ListByPeriod(ctx, period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("读取月度快照失败: %w", err)
	}

	if len(rows) == 0 {
		r.log.Info().Int("month", period.Month).Int("year", period.Year).Msg("当月无工作量快照，执行全量重算")
		report, err := r.RunDaily(ctx)
		if err != nil {
			return nil, err
		}
		report.Job = JobWeekly
		report.FellBack = true
		return report, nil
	}

	report := &RunReport{Job: JobWeekly, Month: period.Month, Year: period.Year, Employees: len(rows)}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	refreshed := make([]bool, len(rows))
	counts := make([]int, len(rows))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, row := range rows {
		g.Go(func() error {
			count, err := r.calculator.ReplacementCount(gctx, row.UserID, period.Month, period.Year)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				r.log.Warn().Err(err).Str("user_id", row.UserID.String()).Msg("顶班次数计算失败，保留原快照")
				counts[i] = row.ReplacementCount
				return nil
			}
			counts[i] = count
			refreshed[i] = true
			return nil
		})
	}
	_ = g.Wait()

	members := make([]stats.MemberStat, len(rows))
	for i, row := range rows {
		members[i] = stats.MemberStat{
			UserID:        row.UserID,
			TotalHours:    row.TotalHours,
			NightShifts:   row.NightShiftCount,
			WeekendShifts: row.WeekendShiftCount,
			Replacements:  counts[i],
		}
	}
	fairness := r.analyzer.Analyze(members)
	report.Fairness = fairness

	refreshedAt := r.now()
	for i, row := range rows {
		if !refreshed[i] {
			continue
		}
		if err := r.store.UpdateRefresh(ctx, row.ID, counts[i], fairness.Scores[row.UserID], refreshedAt); err != nil {
			report.Failed++
			r.log.Warn().Err(err).Str("user_id", row.UserID.String()).Msg("刷新工作量快照失败")
			continue
		}
		report.Succeeded++
	}

	r.emitGini(fairness)
	report.Duration = r.now().Sub(start)

	r.log.Info().
		Int("month", report.Month).
		Int("year", report.Year).
		Int("employees", report.Employees).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("每周公平性刷新完成")

	return report, nil
}

func (r *Runner) emitGini(f *stats.TeamFairness) {
	r.recorder.SetFairnessGini("hours", f.WorkloadGini)
	r.recorder.SetFairnessGini("night_shifts", f.NightShiftGini)
	r.recorder.SetFairnessGini("weekend_shifts", f.WeekendShiftGini)
	r.recorder.SetFairnessGini("replacements", f.ReplacementGini)
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, r.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}
