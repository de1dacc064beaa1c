package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"

	"github.com/paiban/replacement/pkg/logger"
)

// ErrAlreadyRunning 同一触发器的上一次执行尚未结束
var ErrAlreadyRunning = errors.New("任务正在执行")

// Job 可被调度的重算任务
type Job interface {
	RunDaily(ctx context.Context) (*RunReport, error)
	RunWeekly(ctx context.Context) (*RunReport, error)
}

// Rules 触发规则（RFC 5545 RRULE，按业务时区解释）
type Rules struct {
	Daily  string
	Weekly string
}

// trigger 单个触发器，mu 保证同一触发器不会重叠执行
type trigger struct {
	name string
	opt  rrule.ROption
	run  func(ctx context.Context) (*RunReport, error)
	mu   sync.Mutex
}

// next 返回 now 之后的下一次触发时间，无后续触发时返回零值
func (t *trigger) next(now time.Time, loc *time.Location) (time.Time, error) {
	local := now.In(loc)
	opt := t.opt
	// 从一周前的零点展开即可覆盖日/周规则
	opt.Dtstart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -7)

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, err
	}
	return rule.After(now, false), nil
}

// SchedulerOption 可选项
type SchedulerOption func(*Scheduler)

// WithSchedulerClock 注入时钟
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithTimer 注入等待函数
func WithTimer(after func(d time.Duration) <-chan time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.after = after
	}
}

// WithJobRecorder 注入指标记录器
func WithJobRecorder(rec Recorder) SchedulerOption {
	return func(s *Scheduler) {
		s.recorder = rec
	}
}

// Scheduler 周期任务调度器
type Scheduler struct {
	triggers map[string]*trigger
	order    []string
	loc      *time.Location
	now      func() time.Time
	after    func(d time.Duration) <-chan time.Time
	recorder Recorder
	log      *zerolog.Logger
	wg       sync.WaitGroup
}

// NewScheduler 创建调度器
func NewScheduler(job Job, rules Rules, loc *time.Location, opts ...SchedulerOption) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		triggers: make(map[string]*trigger),
		loc:      loc,
		now:      time.Now,
		after:    time.After,
		recorder: nopRecorder{},
		log:      logger.Component("jobs"),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, def := range []struct {
		name string
		rule string
		run  func(ctx context.Context) (*RunReport, error)
	}{
		{JobDaily, rules.Daily, job.RunDaily},
		{JobWeekly, rules.Weekly, job.RunWeekly},
	} {
		opt, err := rrule.StrToROption(def.rule)
		if err != nil {
			return nil, fmt.Errorf("解析 %s 触发规则失败: %w", def.name, err)
		}
		s.triggers[def.name] = &trigger{name: def.name, opt: *opt, run: def.run}
		s.order = append(s.order, def.name)
	}

	return s, nil
}

// Next 返回指定触发器在 after 之后的下一次触发时间
func (s *Scheduler) Next(name string, after time.Time) (time.Time, error) {
	t, ok := s.triggers[name]
	if !ok {
		return time.Time{}, fmt.Errorf("未知任务: %s", name)
	}
	return t.next(after, s.loc)
}

// Trigger 立即执行一次指定任务；上一次执行未结束时返回 ErrAlreadyRunning
func (s *Scheduler) Trigger(ctx context.Context, name string) (*RunReport, error) {
	t, ok := s.triggers[name]
	if !ok {
		return nil, fmt.Errorf("未知任务: %s", name)
	}
	return s.execute(ctx, t)
}

func (s *Scheduler) execute(ctx context.Context, t *trigger) (*RunReport, error) {
	if !t.mu.TryLock() {
		s.recorder.RecordJobRun(t.name, "skipped", 0, 0, 0)
		s.log.Warn().Str("job", t.name).Msg("上一次执行尚未结束，跳过本次触发")
		return nil, ErrAlreadyRunning
	}
	defer t.mu.Unlock()

	start := s.now()
	report, err := t.run(ctx)
	if err != nil {
		s.recorder.RecordJobRun(t.name, "failure", s.now().Sub(start), 0, 0)
		s.log.Error().Err(err).Str("job", t.name).Msg("周期任务执行失败")
		return nil, err
	}

	s.recorder.RecordJobRun(t.name, report.Status(), report.Duration, report.Succeeded, report.Failed)
	return report, nil
}

// Start 为每个触发器启动后台循环，ctx 取消后退出
func (s *Scheduler) Start(ctx context.Context) {
	for _, name := range s.order {
		t := s.triggers[name]
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.log.Info().Str("timezone", s.loc.String()).Msg("周期任务调度器已启动")
}

// Wait 等待后台循环退出
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t *trigger) {
	defer s.wg.Done()

	for {
		now := s.now()
		next, err := t.next(now, s.loc)
		if err != nil || next.IsZero() {
			s.log.Error().Err(err).Str("job", t.name).Msg("无法计算下一次触发时间，触发器停止")
			return
		}

		s.log.Debug().Str("job", t.name).Time("next_run", next).Msg("等待下一次触发")

		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
		}

		if ctx.Err() != nil {
			return
		}
		// 执行错误已在 execute 中记录
		_, _ = s.execute(ctx, t)
	}
}
