package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paiban/replacement/pkg/logger"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/workload"
)

// Store 检测所需的数据源，读取不存在的记录时返回 (nil, nil)
type Store interface {
	GetAssignment(ctx context.Context, id uuid.UUID) (*model.ShiftAssignment, error)
	GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	ListUserAssignmentsInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.AssignedShift, error)
	AppendViolation(ctx context.Context, v *model.ComplianceViolation) error
	IsAssignmentChecked(ctx context.Context, assignmentID uuid.UUID) (bool, error)
	MarkAssignmentChecked(ctx context.Context, assignmentID uuid.UUID, at time.Time) error
}

// ViolationRecorder 违规计数指标
type ViolationRecorder interface {
	IncComplianceViolation(vt model.ViolationType, severity model.Severity)
}

type nopRecorder struct{}

func (nopRecorder) IncComplianceViolation(model.ViolationType, model.Severity) {}

// Detector 合规违规检测器
type Detector struct {
	store    Store
	limits   Limits
	loc      *time.Location
	recorder ViolationRecorder
	now      func() time.Time
	log      *zerolog.Logger
}

// DetectorOption 检测器选项
type DetectorOption func(*Detector)

// WithLimits 自定义阈值
func WithLimits(l Limits) DetectorOption {
	return func(d *Detector) { d.limits = l }
}

// WithRecorder 注入违规计数
func WithRecorder(r ViolationRecorder) DetectorOption {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithClock 注入时钟
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector 创建检测器
func NewDetector(store Store, loc *time.Location, opts ...DetectorOption) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	d := &Detector{
		store:    store,
		limits:   DefaultLimits(),
		loc:      loc,
		recorder: nopRecorder{},
		now:      time.Now,
		log:      logger.Component("compliance"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check 检查一条新分配并记录违规，每条分配只记录一次
// 任何错误（包括 panic）都只记录日志，不会传播给调用方；检测失败的分配不标记，可再次检查
func (d *Detector) Check(ctx context.Context, assignmentID uuid.UUID) (recorded []model.ComplianceViolation) {
	log := d.log.With().Str("assignment_id", assignmentID.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("合规检查异常")
			recorded = nil
		}
	}()

	checked, err := d.store.IsAssignmentChecked(ctx, assignmentID)
	if err != nil {
		log.Error().Err(err).Msg("读取检查记录失败")
		return nil
	}
	if checked {
		log.Debug().Msg("分配已检查，跳过")
		return nil
	}

	violations, err := d.detect(ctx, assignmentID, &log)
	if err != nil {
		log.Error().Err(err).Msg("合规检查失败")
		return nil
	}

	defer func() {
		if err := d.store.MarkAssignmentChecked(ctx, assignmentID, d.now()); err != nil {
			log.Error().Err(err).Msg("记录检查完成失败")
		}
	}()

	for i := range violations {
		v := &violations[i]
		if err := d.store.AppendViolation(ctx, v); err != nil {
			log.Error().Err(err).
				Str("violation_type", string(v.ViolationType)).
				Msg("保存违规记录失败")
			continue
		}
		d.recorder.IncComplianceViolation(v.ViolationType, v.Severity)
		log.Warn().
			Str("user_id", v.UserID.String()).
			Str("shift_id", v.ShiftID.String()).
			Str("violation_type", string(v.ViolationType)).
			Str("severity", string(v.Severity)).
			Msg(v.Description)
		recorded = append(recorded, *v)
	}

	return recorded
}

// Inspect 评估分配当前的违规情况，不写入任何记录
func (d *Detector) Inspect(ctx context.Context, assignmentID uuid.UUID) ([]model.ComplianceViolation, error) {
	log := d.log.With().Str("assignment_id", assignmentID.String()).Logger()
	return d.detect(ctx, assignmentID, &log)
}

// detect 加载数据并评估规则，分配或班次不存在时返回空结果
func (d *Detector) detect(ctx context.Context, assignmentID uuid.UUID, log *zerolog.Logger) ([]model.ComplianceViolation, error) {
	assignment, err := d.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("读取分配: %w", err)
	}
	if assignment == nil {
		log.Info().Msg("分配不存在，跳过合规检查")
		return nil, nil
	}

	shift, err := d.store.GetShift(ctx, assignment.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("读取班次: %w", err)
	}
	if shift == nil {
		log.Info().Str("shift_id", assignment.ShiftID.String()).Msg("班次不存在，跳过合规检查")
		return nil, nil
	}

	obs, err := d.observe(ctx, assignment, shift)
	if err != nil {
		return nil, err
	}

	return d.limits.Evaluate(obs, d.now()), nil
}

// observe 计算该班次的休息、周工时与连续天数
func (d *Detector) observe(ctx context.Context, a *model.ShiftAssignment, shift *model.Shift) (Observation, error) {
	weekStart, weekEnd := workload.WeekBounds(shift.StartTime, d.loc)
	streakFrom, streakTo := workload.StreakBounds(shift.StartTime, d.loc)

	from := shift.StartTime.Add(-workload.RestLookback)
	if weekStart.Before(from) {
		from = weekStart
	}
	if streakFrom.Before(from) {
		from = streakFrom
	}
	to := weekEnd
	if streakTo.After(to) {
		to = streakTo
	}

	shifts, err := d.store.ListUserAssignmentsInRange(ctx, a.UserID, from, to)
	if err != nil {
		return Observation{}, fmt.Errorf("读取员工分配: %w", err)
	}

	obs := Observation{
		UserID:          a.UserID,
		ShiftID:         shift.ID,
		WeeklyHours:     workload.HoursBetween(shifts, weekStart, weekEnd),
		ConsecutiveDays: workload.StreakThrough(shifts, shift.StartTime, d.loc),
	}
	if rest, ok := workload.RestBefore(shifts, a.ID, shift.StartTime); ok {
		obs.RestHours = &rest
	}

	return obs, nil
}
