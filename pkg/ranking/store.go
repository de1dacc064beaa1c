package ranking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
	"github.com/paiban/replacement/pkg/workload"
)

// ShiftReader 读取班次，不存在时返回 (nil, nil)
type ShiftReader interface {
	GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error)
}

// RosterReader 读取在岗员工名册
type RosterReader interface {
	ListActiveEmployees(ctx context.Context, roles []model.Role) ([]*model.Employee, error)
}

// ClearanceChecker 检查现场准入资质
type ClearanceChecker interface {
	HasValidClearance(ctx context.Context, userID, siteID uuid.UUID, at time.Time) (bool, error)
}

// OverlapChecker 检查员工在时间段内是否已有分配
type OverlapChecker interface {
	HasOverlappingAssignment(ctx context.Context, userID uuid.UUID, start, end time.Time) (bool, error)
}

// PreferenceReader 读取员工偏好，无记录时返回 (nil, nil)
type PreferenceReader interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*model.EmployeePreferences, error)
}

// WorkloadReader 读取工作量快照，无记录时返回 (nil, nil)
type WorkloadReader interface {
	GetWorkload(ctx context.Context, userID uuid.UUID, month, year int) (*model.EmployeeWorkload, error)
}

// Store 排序所需的全部只读数据源
type Store interface {
	ShiftReader
	RosterReader
	ClearanceChecker
	OverlapChecker
	PreferenceReader
	WorkloadReader
}

// MetricsCalculator 按需重新计算工作量（快照过期时使用）
type MetricsCalculator interface {
	Calculate(ctx context.Context, userID uuid.UUID, month, year int) (*workload.Metrics, error)
}

// MetricsSink 排序指标输出
type MetricsSink interface {
	ObserveCandidateScore(total float64, tier scoring.Recommendation, sub scoring.SubScores)
	IncCandidateEvaluations(shiftID uuid.UUID)
	ObserveRankingDuration(shiftID uuid.UUID, seconds float64)
}

type nopSink struct{}

func (nopSink) ObserveCandidateScore(float64, scoring.Recommendation, scoring.SubScores) {}
func (nopSink) IncCandidateEvaluations(uuid.UUID)                                        {}
func (nopSink) ObserveRankingDuration(uuid.UUID, float64)                                {}
