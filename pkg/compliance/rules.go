// Package compliance 检测新分配是否违反劳动时间规定（ArbZG）
package compliance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// Limits 合规阈值
type Limits struct {
	MinRestHours        float64 // 班前最短休息
	CriticalRestHours   float64 // 低于此值为严重
	MaxWeeklyHours      float64 // 周工时上限
	CriticalWeeklyHours float64 // 达到此值为严重
	MaxConsecutiveDays  int     // 最大连续工作天数
	CriticalConsecutive int     // 超过此值为严重
}

// DefaultLimits 返回默认阈值
func DefaultLimits() Limits {
	return Limits{
		MinRestHours:        11,
		CriticalRestHours:   9,
		MaxWeeklyHours:      48,
		CriticalWeeklyHours: 55,
		MaxConsecutiveDays:  6,
		CriticalConsecutive: 8,
	}
}

// Observation 针对一个班次观察到的工作时间数据
type Observation struct {
	UserID          uuid.UUID
	ShiftID         uuid.UUID
	RestHours       *float64 // 班前休息，无更早班次时为空
	WeeklyHours     float64
	ConsecutiveDays int
}

// Evaluate 逐条检查规则，每项违规生成一条记录
func (l Limits) Evaluate(obs Observation, now time.Time) []model.ComplianceViolation {
	var violations []model.ComplianceViolation

	if obs.RestHours != nil && *obs.RestHours < l.MinRestHours {
		severity := model.SeverityError
		if *obs.RestHours < l.CriticalRestHours {
			severity = model.SeverityCritical
		}
		violations = append(violations, l.violation(obs, now,
			model.ViolationRestTime, severity,
			fmt.Sprintf("班前休息仅 %.1f 小时，少于规定的 %.0f 小时", *obs.RestHours, l.MinRestHours),
			*obs.RestHours, l.MinRestHours,
		))
	}

	if obs.WeeklyHours > l.MaxWeeklyHours {
		severity := model.SeverityWarning
		if obs.WeeklyHours >= l.CriticalWeeklyHours {
			severity = model.SeverityCritical
		}
		violations = append(violations, l.violation(obs, now,
			model.ViolationWeeklyHours, severity,
			fmt.Sprintf("本周工时 %.1f 小时，超过 %.0f 小时上限", obs.WeeklyHours, l.MaxWeeklyHours),
			obs.WeeklyHours, l.MaxWeeklyHours,
		))
	}

	if obs.ConsecutiveDays > l.MaxConsecutiveDays {
		severity := model.SeverityWarning
		if obs.ConsecutiveDays > l.CriticalConsecutive {
			severity = model.SeverityCritical
		}
		violations = append(violations, l.violation(obs, now,
			model.ViolationConsecutiveDays, severity,
			fmt.Sprintf("连续工作 %d 天，超过 %d 天上限", obs.ConsecutiveDays, l.MaxConsecutiveDays),
			float64(obs.ConsecutiveDays), float64(l.MaxConsecutiveDays),
		))
	}

	return violations
}

func (l Limits) violation(obs Observation, now time.Time, vt model.ViolationType, severity model.Severity, desc string, value, threshold float64) model.ComplianceViolation {
	return model.ComplianceViolation{
		ID:            uuid.New(),
		UserID:        obs.UserID,
		ShiftID:       obs.ShiftID,
		ViolationType: vt,
		Severity:      severity,
		Description:   desc,
		Value:         &value,
		Threshold:     &threshold,
		CreatedAt:     now,
	}
}
