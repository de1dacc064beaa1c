// Package model 定义替班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMinRestHours 无法观察到休息间隔时的默认值（ArbZG 法定最短休息）
const DefaultMinRestHours = 11.0

// EmployeeWorkload 员工月度工作量快照，(user_id, month, year) 唯一
type EmployeeWorkload struct {
	ID                        uuid.UUID `json:"id" db:"id"`
	UserID                    uuid.UUID `json:"user_id" db:"user_id"`
	Month                     int       `json:"month" db:"month"`
	Year                      int       `json:"year" db:"year"`
	TotalHours                float64   `json:"total_hours" db:"total_hours"`
	ScheduledHours            float64   `json:"scheduled_hours" db:"scheduled_hours"`
	NightShiftCount           int       `json:"night_shift_count" db:"night_shift_count"`
	WeekendShiftCount         int       `json:"weekend_shift_count" db:"weekend_shift_count"`
	ConsecutiveDaysWorked     int       `json:"consecutive_days_worked" db:"consecutive_days_worked"`
	RestDaysCount             int       `json:"rest_days_count" db:"rest_days_count"`
	MaxWeeklyHours            float64   `json:"max_weekly_hours" db:"max_weekly_hours"`
	MinRestHoursBetweenShifts float64   `json:"min_rest_hours_between_shifts" db:"min_rest_hours_between_shifts"`
	ReplacementCount          int       `json:"replacement_count" db:"replacement_count"`
	FairnessScore             float64   `json:"fairness_score" db:"fairness_score"`
	LastCalculated            time.Time `json:"last_calculated" db:"last_calculated"`
}

// Period 快照对应的统计周期
func (w *EmployeeWorkload) Period(loc *time.Location) Period {
	return NewPeriod(w.Month, w.Year, loc)
}

// IsFresh 快照是否在有效期内
func (w *EmployeeWorkload) IsFresh(now time.Time, maxAge time.Duration) bool {
	if w.LastCalculated.IsZero() {
		return false
	}
	return now.Sub(w.LastCalculated) <= maxAge
}

// TeamAverages 团队平均值（公平性评分的参照基线）
type TeamAverages struct {
	NightShifts  float64 `json:"night_shifts"`
	Replacements float64 `json:"replacements"`
	Members      int     `json:"members"`
}
