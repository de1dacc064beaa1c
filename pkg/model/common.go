// Package model 定义替班引擎的核心数据模型
package model

import (
	"time"
)

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// Period 统计周期（一个自然月，按本地时区划分）
type Period struct {
	Month    int            `json:"month"`
	Year     int            `json:"year"`
	Location *time.Location `json:"-"`
}

// NewPeriod 创建统计周期，loc 为空时使用 UTC
func NewPeriod(month, year int, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	return Period{Month: month, Year: year, Location: loc}
}

// PeriodOf 返回时间点所在的统计周期
func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Period{Month: int(local.Month()), Year: local.Year(), Location: loc}
}

// Start 周期开始时间（当月1日 00:00）
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, p.loc())
}

// End 周期结束时间（下月1日 00:00，不含）
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// DaysInMonth 当月天数
func (p Period) DaysInMonth() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, p.loc()).Day()
}

// Contains 检查时间点是否落在周期内
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
