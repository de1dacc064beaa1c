// Package workload 提供员工月度工作量统计
package workload

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// WeekKey ISO 周标识
type WeekKey struct {
	Year int
	Week int
}

// WeekOf 返回时间点所在的 ISO 周（按本地时区）
func WeekOf(t time.Time, loc *time.Location) WeekKey {
	if loc != nil {
		t = t.In(loc)
	}
	year, week := t.ISOWeek()
	return WeekKey{Year: year, Week: week}
}

// Metrics 员工月度工作量指标
type Metrics struct {
	UserID                    uuid.UUID           `json:"user_id"`
	Month                     int                 `json:"month"`
	Year                      int                 `json:"year"`
	AssignmentCount           int                 `json:"assignment_count"`
	TotalHours                float64             `json:"total_hours"`
	ScheduledHours            float64             `json:"scheduled_hours"`
	NightShiftCount           int                 `json:"night_shift_count"`
	WeekendShiftCount         int                 `json:"weekend_shift_count"`
	ConsecutiveDaysWorked     int                 `json:"consecutive_days_worked"`
	RestDaysCount             int                 `json:"rest_days_count"`
	MaxWeeklyHours            float64             `json:"max_weekly_hours"`
	MinRestHoursBetweenShifts float64             `json:"min_rest_hours_between_shifts"`
	ReplacementCount          int                 `json:"replacement_count"`
	WeeklyHours               map[WeekKey]float64 `json:"-"`
}

// Compute 根据一个月内的分配记录计算工作量指标
// 只统计计入状态且开始时间落在周期内的分配；结果只取决于输入
func Compute(userID uuid.UUID, period model.Period, shifts []model.AssignedShift) *Metrics {
	loc := period.Location

	matched := make([]model.AssignedShift, 0, len(shifts))
	for _, s := range shifts {
		if !s.Status.IsCounted() || !period.Contains(s.StartTime) {
			continue
		}
		matched = append(matched, s)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	m := &Metrics{
		UserID:                    userID,
		Month:                     period.Month,
		Year:                      period.Year,
		AssignmentCount:           len(matched),
		WeeklyHours:               make(map[WeekKey]float64),
		MinRestHoursBetweenShifts: model.DefaultMinRestHours,
	}

	workDays := make(map[time.Time]bool)
	for i := range matched {
		a := &matched[i]
		hours := a.WorkingHours()

		m.TotalHours += hours
		if a.Status.IsPlanned() {
			m.ScheduledHours += hours
		}
		m.WeeklyHours[WeekOf(a.StartTime, loc)] += hours

		if model.IsNightStart(a.StartTime, loc) {
			m.NightShiftCount++
		}
		if model.IsWeekendStart(a.StartTime, loc) {
			m.WeekendShiftCount++
		}
		if a.IsReplacement() {
			m.ReplacementCount++
		}

		workDays[a.WorkDate(loc)] = true
	}

	for _, hours := range m.WeeklyHours {
		if hours > m.MaxWeeklyHours {
			m.MaxWeeklyHours = hours
		}
	}

	days := make([]time.Time, 0, len(workDays))
	for d := range workDays {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	m.ConsecutiveDaysWorked = longestStreak(days)

	m.RestDaysCount = period.DaysInMonth() - len(days)
	if m.RestDaysCount < 0 {
		m.RestDaysCount = 0
	}

	if rest, ok := minRestHours(matched); ok {
		m.MinRestHoursBetweenShifts = rest
	}

	return m
}

// longestStreak 计算最长连续工作天数，days 需已升序排列
func longestStreak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}

	longest, current := 1, 1
	for i := 1; i < len(days); i++ {
		if isNextDay(days[i-1], days[i]) {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
	}
	return longest
}

// isNextDay 按日历日比较，不受夏令时切换影响
func isNextDay(prev, next time.Time) bool {
	y, m, d := prev.AddDate(0, 0, 1).Date()
	ny, nm, nd := next.Date()
	return y == ny && m == nm && d == nd
}

// minRestHours 相邻分配（按开始时间）之间的最短休息，忽略重叠
func minRestHours(sorted []model.AssignedShift) (float64, bool) {
	found := false
	min := 0.0
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].StartTime.Sub(sorted[i-1].EndTime).Hours()
		if gap < 0 {
			continue
		}
		if !found || gap < min {
			min = gap
			found = true
		}
	}
	return min, found
}

// HoursInWeekOf 返回指定时间点所在周的工时
func (m *Metrics) HoursInWeekOf(t time.Time, loc *time.Location) float64 {
	return m.WeeklyHours[WeekOf(t, loc)]
}

// ToWorkload 转换为持久化快照
func (m *Metrics) ToWorkload(fairnessScore float64, calculatedAt time.Time) *model.EmployeeWorkload {
	return &model.EmployeeWorkload{
		UserID:                    m.UserID,
		Month:                     m.Month,
		Year:                      m.Year,
		TotalHours:                m.TotalHours,
		ScheduledHours:            m.ScheduledHours,
		NightShiftCount:           m.NightShiftCount,
		WeekendShiftCount:         m.WeekendShiftCount,
		ConsecutiveDaysWorked:     m.ConsecutiveDaysWorked,
		RestDaysCount:             m.RestDaysCount,
		MaxWeeklyHours:            m.MaxWeeklyHours,
		MinRestHoursBetweenShifts: m.MinRestHoursBetweenShifts,
		ReplacementCount:          m.ReplacementCount,
		FairnessScore:             fairnessScore,
		LastCalculated:            calculatedAt,
	}
}

// FromWorkload 从快照恢复指标（不含按周明细）
func FromWorkload(w *model.EmployeeWorkload) *Metrics {
	return &Metrics{
		UserID:                    w.UserID,
		Month:                     w.Month,
		Year:                      w.Year,
		TotalHours:                w.TotalHours,
		ScheduledHours:            w.ScheduledHours,
		NightShiftCount:           w.NightShiftCount,
		WeekendShiftCount:         w.WeekendShiftCount,
		ConsecutiveDaysWorked:     w.ConsecutiveDaysWorked,
		RestDaysCount:             w.RestDaysCount,
		MaxWeeklyHours:            w.MaxWeeklyHours,
		MinRestHoursBetweenShifts: w.MinRestHoursBetweenShifts,
		ReplacementCount:          w.ReplacementCount,
		WeeklyHours:               make(map[WeekKey]float64),
	}
}
