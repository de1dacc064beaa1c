package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/errors"
	"github.com/paiban/replacement/pkg/model"
)

// AssignmentReader 读取员工在时间区间内的分配
// 实现需返回开始时间落在 [from, to) 内、状态计入统计的分配，按开始时间升序
type AssignmentReader interface {
	ListUserAssignmentsInRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.AssignedShift, error)
}

// Aggregator 工作量聚合器
type Aggregator struct {
	reader AssignmentReader
	loc    *time.Location
}

// NewAggregator 创建工作量聚合器，loc 为统计使用的本地时区
func NewAggregator(reader AssignmentReader, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{reader: reader, loc: loc}
}

// Location 返回聚合器使用的时区
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// Period 返回指定年月的统计周期
func (a *Aggregator) Period(month, year int) model.Period {
	return model.NewPeriod(month, year, a.loc)
}

// Calculate 计算员工指定月份的工作量指标
func (a *Aggregator) Calculate(ctx context.Context, userID uuid.UUID, month, year int) (*Metrics, error) {
	if month < 1 || month > 12 {
		return nil, errors.InvalidInput("month", fmt.Sprintf("%d 不在 1-12 之间", month))
	}

	period := a.Period(month, year)
	shifts, err := a.reader.ListUserAssignmentsInRange(ctx, userID, period.Start(), period.End())
	if err != nil {
		return nil, errors.Database(err, "读取员工分配失败").WithField("user_id", userID.String())
	}

	return Compute(userID, period, shifts), nil
}

// ReplacementCount 仅统计临时顶班次数
func (a *Aggregator) ReplacementCount(ctx context.Context, userID uuid.UUID, month, year int) (int, error) {
	if month < 1 || month > 12 {
		return 0, errors.InvalidInput("month", fmt.Sprintf("%d 不在 1-12 之间", month))
	}

	period := a.Period(month, year)
	shifts, err := a.reader.ListUserAssignmentsInRange(ctx, userID, period.Start(), period.End())
	if err != nil {
		return 0, errors.Database(err, "读取员工分配失败").WithField("user_id", userID.String())
	}

	count := 0
	for i := range shifts {
		s := &shifts[i]
		if s.Status.IsCounted() && period.Contains(s.StartTime) && s.IsReplacement() {
			count++
		}
	}
	return count, nil
}
