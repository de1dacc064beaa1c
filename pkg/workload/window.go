package workload

import (
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

// RestLookback 计算班前休息时向前查找的范围
const RestLookback = 7 * 24 * time.Hour

// StreakWindowDays 计算连续工作天数时前后各查找的天数
const StreakWindowDays = 31

// WeekBounds 返回时间点所在 ISO 周的起止（周一 00:00 至下周一 00:00，本地时区）
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	day := model.DateOf(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// HoursBetween 统计开始时间落在 [from, to) 内的计入工时
func HoursBetween(shifts []model.AssignedShift, from, to time.Time) float64 {
	total := 0.0
	for i := range shifts {
		s := &shifts[i]
		if !s.Status.IsCounted() {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		total += s.WorkingHours()
	}
	return total
}

// RestBefore 计算目标班次开始前的休息时长
// 取同一员工在回看范围内、更早开始的计入分配的最晚结束时间；重叠视为 0 小时
// 没有更早的分配时返回 false
func RestBefore(shifts []model.AssignedShift, assignmentID uuid.UUID, start time.Time) (float64, bool) {
	var latestEnd time.Time
	found := false
	lookbackFrom := start.Add(-RestLookback)

	for i := range shifts {
		s := &shifts[i]
		if s.AssignmentID == assignmentID || !s.Status.IsCounted() {
			continue
		}
		if !s.StartTime.Before(start) || s.StartTime.Before(lookbackFrom) {
			continue
		}
		if !found || s.EndTime.After(latestEnd) {
			latestEnd = s.EndTime
			found = true
		}
	}

	if !found {
		return 0, false
	}

	rest := start.Sub(latestEnd).Hours()
	if rest < 0 {
		rest = 0
	}
	return rest, true
}

// StreakBounds 返回计算某班次所在连续工作段时需要读取的时间范围
func StreakBounds(start time.Time, loc *time.Location) (time.Time, time.Time) {
	day := model.DateOf(start, loc)
	return day.AddDate(0, 0, -StreakWindowDays), day.AddDate(0, 0, StreakWindowDays+1)
}

// StreakThrough 计算包含 start 所在日期的连续工作天数（可跨月）
// 只统计计入工作量的分配；前后各最多查找 StreakWindowDays 天
func StreakThrough(shifts []model.AssignedShift, start time.Time, loc *time.Location) int {
	worked := make(map[string]bool, len(shifts))
	for i := range shifts {
		if shifts[i].Status.IsCounted() {
			worked[dayKey(shifts[i].StartTime, loc)] = true
		}
	}

	day := model.DateOf(start, loc)
	worked[dayKey(day, loc)] = true

	streak := 1
	for i := 1; i <= StreakWindowDays && worked[dayKey(day.AddDate(0, 0, -i), loc)]; i++ {
		streak++
	}
	for i := 1; i <= StreakWindowDays && worked[dayKey(day.AddDate(0, 0, i), loc)]; i++ {
		streak++
	}
	return streak
}

func dayKey(t time.Time, loc *time.Location) string {
	return model.DateOf(t, loc).Format("2006-01-02")
}
