// Package ranking 替班候选人排序服务
package ranking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paiban/replacement/pkg/errors"
	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
	"github.com/paiban/replacement/pkg/stats"
	"github.com/paiban/replacement/pkg/workload"
)

// Config 排序配置
type Config struct {
	Timeout            time.Duration      `yaml:"timeout"`
	Workers            int                `yaml:"workers"`
	DefaultTargetHours float64            `yaml:"default_target_hours"`
	SnapshotMaxAge     time.Duration      `yaml:"snapshot_max_age"`
	Tiers              scoring.Thresholds `yaml:"tiers"`
	EligibleRoles      []model.Role       `yaml:"eligible_roles"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Timeout:            5 * time.Second,
		Workers:            8,
		DefaultTargetHours: 160,
		SnapshotMaxAge:     26 * time.Hour,
		Tiers:              scoring.DefaultThresholds(),
		EligibleRoles:      []model.Role{model.RoleEmployee, model.RoleSupervisor},
	}
}

// Candidate 排序后的候选人
type Candidate struct {
	UserID         uuid.UUID              `json:"user_id"`
	Name           string                 `json:"name"`
	Rank           int                    `json:"rank"`
	TotalScore     float64                `json:"total_score"`
	SubScores      scoring.SubScores      `json:"sub_scores"`
	Recommendation scoring.Recommendation `json:"recommendation"`
	CurrentHours   float64                `json:"current_hours"`
	FromSnapshot   bool                   `json:"from_snapshot"`
}

// Result 排序结果
type Result struct {
	ShiftID      uuid.UUID          `json:"shift_id"`
	AbsentUserID uuid.UUID          `json:"absent_user_id"`
	Candidates   []Candidate        `json:"candidates"`
	TeamAverages model.TeamAverages `json:"team_averages"`
	Evaluated    int                `json:"evaluated"`
	Ineligible   int                `json:"ineligible"`
	Failed       int                `json:"failed"`
	Partial      bool               `json:"partial"`
	Duration     time.Duration      `json:"duration"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// Option 服务选项
type Option func(*Service)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetricsSink 注入指标输出
func WithMetricsSink(sink MetricsSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// Service 候选人排序服务
type Service struct {
	store      Store
	calculator MetricsCalculator
	cfg        Config
	loc        *time.Location
	sink       MetricsSink
	now        func() time.Time
	log        *logger.RankingLogger
}

// NewService 创建排序服务
func NewService(store Store, calculator MetricsCalculator, cfg Config, loc *time.Location, opts ...Option) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.DefaultTargetHours <= 0 {
		cfg.DefaultTargetHours = 160
	}
	if len(cfg.EligibleRoles) == 0 {
		cfg.EligibleRoles = DefaultConfig().EligibleRoles
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Service{
		store:      store,
		calculator: calculator,
		cfg:        cfg,
		loc:        loc,
		sink:       nopSink{},
		now:        time.Now,
		log:        logger.NewRankingLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// candidateData 单个候选人的评分输入
type candidateData struct {
	employee     *model.Employee
	metrics      *workload.Metrics
	prefs        *model.EmployeePreferences
	fromSnapshot bool
}

// 候选人评估结局
type outcome int

const (
	outcomeEligible outcome = iota
	outcomeIneligible
	outcomeFailed
)

// RankCandidates 为缺勤员工的班次计算替班候选人排序
// 单个候选人查询失败时剔除该候选人并继续；超时返回已完成部分并标记 Partial
func (s *Service) RankCandidates(ctx context.Context, shiftID, absentUserID uuid.UUID) (*Result, error) {
	startedAt := s.now()
	wallStart := time.Now()

	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, errors.Database(err, "读取班次失败").WithField("shift_id", shiftID.String())
	}
	if shift == nil {
		return nil, errors.NotFound("班次", shiftID.String())
	}

	employees, err := s.store.ListActiveEmployees(ctx, s.cfg.EligibleRoles)
	if err != nil {
		return nil, errors.Database(err, "读取员工名册失败")
	}

	pool := make([]*model.Employee, 0, len(employees))
	for _, e := range employees {
		if e.ID == absentUserID || !e.IsActive {
			continue
		}
		pool = append(pool, e)
	}

	s.log.StartRanking(shiftID.String(), absentUserID.String(), len(pool))

	result := &Result{
		ShiftID:      shiftID,
		AbsentUserID: absentUserID,
		Candidates:   []Candidate{},
		CalculatedAt: startedAt,
	}

	gathered, failed, ineligible, timedOut := s.gather(ctx, shift, pool)
	result.Failed = failed
	result.Ineligible = ineligible
	result.Evaluated = len(gathered)
	result.Partial = timedOut || failed > 0 || failed+ineligible+len(gathered) < len(pool)

	result.Candidates, result.TeamAverages = s.score(shift, gathered)

	result.Duration = time.Since(wallStart)
	s.sink.ObserveRankingDuration(shiftID, result.Duration.Seconds())
	s.log.RankingComplete(shiftID.String(), len(result.Candidates), result.Partial, result.Duration)

	return result, nil
}

// gather 并发收集候选人数据，返回合格候选人、失败数、不合格数以及是否超时
func (s *Service) gather(ctx context.Context, shift *model.Shift, pool []*model.Employee) ([]candidateData, int, int, bool) {
	runCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var (
		mu         sync.Mutex
		closed     bool
		gathered   []candidateData
		failed     int
		ineligible int
	)

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.cfg.Workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, emp := range pool {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				data, out, err := s.evaluate(gctx, shift, emp)

				mu.Lock()
				defer mu.Unlock()
				if closed {
					return nil
				}
				switch out {
				case outcomeEligible:
					gathered = append(gathered, data)
				case outcomeIneligible:
					ineligible++
				case outcomeFailed:
					failed++
					s.log.CandidateSkipped(shift.ID.String(), emp.ID.String(), "查询失败", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	timedOut := false
	select {
	case <-done:
	case <-runCtx.Done():
		select {
		case <-done:
		default:
			timedOut = true
		}
	}

	mu.Lock()
	closed = true
	out := make([]candidateData, len(gathered))
	copy(out, gathered)
	f, i := failed, ineligible
	mu.Unlock()

	return out, f, i, timedOut
}

// evaluate 检查候选人资格并加载评分输入
func (s *Service) evaluate(ctx context.Context, shift *model.Shift, emp *model.Employee) (candidateData, outcome, error) {
	s.sink.IncCandidateEvaluations(shift.ID)

	if err := ctx.Err(); err != nil {
		return candidateData{}, outcomeFailed, err
	}

	if shift.HasSite() {
		ok, err := s.store.HasValidClearance(ctx, emp.ID, *shift.SiteID, shift.StartTime)
		if err != nil {
			return candidateData{}, outcomeFailed, fmt.Errorf("检查现场资质: %w", err)
		}
		if !ok {
			s.log.CandidateSkipped(shift.ID.String(), emp.ID.String(), "缺少现场资质", nil)
			return candidateData{}, outcomeIneligible, nil
		}
	}

	busy, err := s.store.HasOverlappingAssignment(ctx, emp.ID, shift.StartTime, shift.EndTime)
	if err != nil {
		return candidateData{}, outcomeFailed, fmt.Errorf("检查班次冲突: %w", err)
	}
	if busy {
		s.log.CandidateSkipped(shift.ID.String(), emp.ID.String(), "时间冲突", nil)
		return candidateData{}, outcomeIneligible, nil
	}

	prefs, err := s.store.GetPreferences(ctx, emp.ID)
	if err != nil {
		return candidateData{}, outcomeFailed, fmt.Errorf("读取偏好: %w", err)
	}

	metrics, fromSnapshot, err := s.loadMetrics(ctx, emp.ID, shift)
	if err != nil {
		return candidateData{}, outcomeFailed, err
	}

	return candidateData{
		employee:     emp,
		metrics:      metrics,
		prefs:        prefs,
		fromSnapshot: fromSnapshot,
	}, outcomeEligible, nil
}

// loadMetrics 优先使用新鲜的快照，否则按需重新计算
func (s *Service) loadMetrics(ctx context.Context, userID uuid.UUID, shift *model.Shift) (*workload.Metrics, bool, error) {
	period := model.PeriodOf(shift.StartTime, s.loc)

	snapshot, err := s.store.GetWorkload(ctx, userID, period.Month, period.Year)
	if err != nil {
		return nil, false, fmt.Errorf("读取工作量快照: %w", err)
	}
	if snapshot != nil && snapshot.IsFresh(s.now(), s.cfg.SnapshotMaxAge) {
		return workload.FromWorkload(snapshot), true, nil
	}

	metrics, err := s.calculator.Calculate(ctx, userID, period.Month, period.Year)
	if err != nil {
		return nil, false, fmt.Errorf("计算工作量: %w", err)
	}
	return metrics, false, nil
}

// score 计算各项得分并排序
func (s *Service) score(shift *model.Shift, gathered []candidateData) ([]Candidate, model.TeamAverages) {
	members := make([]stats.MemberStat, len(gathered))
	for i, d := range gathered {
		members[i] = stats.MemberStat{
			UserID:        d.employee.ID,
			TotalHours:    d.metrics.TotalHours,
			NightShifts:   d.metrics.NightShiftCount,
			WeekendShifts: d.metrics.WeekendShiftCount,
			Replacements:  d.metrics.ReplacementCount,
		}
	}
	team := stats.TeamAverages(members)

	candidates := make([]Candidate, 0, len(gathered))
	for _, d := range gathered {
		m := d.metrics

		target := s.cfg.DefaultTargetHours
		if d.prefs != nil && d.prefs.TargetMonthlyHours > 0 {
			target = d.prefs.TargetMonthlyHours
		}

		sub := scoring.SubScores{
			Workload:   scoring.Workload(m.TotalHours, target),
			Compliance: scoring.Compliance(m.MinRestHoursBetweenShifts, m.MaxWeeklyHours, m.ConsecutiveDaysWorked),
			Fairness:   scoring.Fairness(m.NightShiftCount, m.ReplacementCount, team),
			Preference: scoring.Preference(shift, d.prefs, m.TotalHours, s.loc),
		}
		total := sub.Total()
		tier := s.cfg.Tiers.Classify(total)

		s.sink.ObserveCandidateScore(total, tier, sub)

		candidates = append(candidates, Candidate{
			UserID:         d.employee.ID,
			Name:           d.employee.Name,
			TotalScore:     total,
			SubScores:      sub,
			Recommendation: tier,
			CurrentHours:   m.TotalHours,
			FromSnapshot:   d.fromSnapshot,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return scoring.Compare(tieKey(candidates[i]), tieKey(candidates[j])) < 0
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return candidates, team
}

func tieKey(c Candidate) scoring.TieKey {
	return scoring.TieKey{
		UserID:       c.UserID,
		Total:        c.TotalScore,
		Fairness:     c.SubScores.Fairness,
		CurrentHours: c.CurrentHours,
	}
}
