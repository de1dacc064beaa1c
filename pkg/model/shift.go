// Package model 定义替班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// 夜班时间窗：开始时间在22点后或6点前
const (
	NightShiftStartHour = 22
	NightShiftEndHour   = 6
)

// ShiftStatus 班次状态
type ShiftStatus string

const (
	ShiftStatusOpen       ShiftStatus = "OPEN"
	ShiftStatusFilled     ShiftStatus = "FILLED"
	ShiftStatusInProgress ShiftStatus = "IN_PROGRESS"
	ShiftStatusCompleted  ShiftStatus = "COMPLETED"
	ShiftStatusCancelled  ShiftStatus = "CANCELLED"
)

// AssignmentStatus 排班分配状态
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentStarted   AssignmentStatus = "STARTED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentDeclined  AssignmentStatus = "DECLINED"
)

// CountedStatuses 计入工作量统计的分配状态
var CountedStatuses = []AssignmentStatus{
	AssignmentAssigned,
	AssignmentConfirmed,
	AssignmentStarted,
	AssignmentCompleted,
}

// IsCounted 检查分配状态是否计入工作量
func (s AssignmentStatus) IsCounted() bool {
	for _, c := range CountedStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// IsPlanned 尚未开始的分配（计入计划工时）
func (s AssignmentStatus) IsPlanned() bool {
	return s == AssignmentAssigned || s == AssignmentConfirmed
}

// Shift 班次
type Shift struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	SiteID            *uuid.UUID  `json:"site_id,omitempty" db:"site_id"`
	StartTime         time.Time   `json:"start_time" db:"start_time"`
	EndTime           time.Time   `json:"end_time" db:"end_time"`
	RequiredEmployees int         `json:"required_employees" db:"required_employees"`
	Status            ShiftStatus `json:"status" db:"status"`
}

// ShiftAssignment 排班分配（员工与班次的关联）
type ShiftAssignment struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	ShiftID    uuid.UUID        `json:"shift_id" db:"shift_id"`
	Status     AssignmentStatus `json:"status" db:"status"`
	AssignedAt time.Time        `json:"assigned_at" db:"assigned_at"`
}

// AssignmentCursor 按 (assigned_at, id) 排序的分配游标
type AssignmentCursor struct {
	AssignedAt time.Time
	ID         uuid.UUID
}

// Cursor 返回指向该分配的游标
func (a *ShiftAssignment) Cursor() AssignmentCursor {
	return AssignmentCursor{AssignedAt: a.AssignedAt, ID: a.ID}
}

// AssignedShift 分配及其班次时间（统计查询的联表结果）
type AssignedShift struct {
	AssignmentID uuid.UUID        `json:"assignment_id"`
	UserID       uuid.UUID        `json:"user_id"`
	ShiftID      uuid.UUID        `json:"shift_id"`
	SiteID       *uuid.UUID       `json:"site_id,omitempty"`
	Status       AssignmentStatus `json:"status"`
	AssignedAt   time.Time        `json:"assigned_at"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
}

// Duration 班次时长
func (s *Shift) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.Duration().Hours()
}

// TimeRange 班次时间范围
func (s *Shift) TimeRange() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// IsNightShift 检查是否为夜班（按本地开始时间判断）
func (s *Shift) IsNightShift(loc *time.Location) bool {
	return IsNightStart(s.StartTime, loc)
}

// IsWeekendShift 检查是否为周末班（按本地开始日期判断）
func (s *Shift) IsWeekendShift(loc *time.Location) bool {
	return IsWeekendStart(s.StartTime, loc)
}

// HasSite 检查班次是否绑定了客户现场
func (s *Shift) HasSite() bool {
	return s.SiteID != nil && *s.SiteID != uuid.Nil
}

// WorkingHours 计算工作时长（小时）
func (a *AssignedShift) WorkingHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}

// IsReplacement 分配时间距开班不足24小时，视为临时顶班
func (a *AssignedShift) IsReplacement() bool {
	return a.StartTime.Sub(a.AssignedAt) <= 24*time.Hour
}

// WorkDate 分配所属的工作日（本地开始日期，不含时间部分）
func (a *AssignedShift) WorkDate(loc *time.Location) time.Time {
	return DateOf(a.StartTime, loc)
}

// IsNightStart 开始时间在22点后或6点前
func IsNightStart(start time.Time, loc *time.Location) bool {
	hour := inLocation(start, loc).Hour()
	return hour >= NightShiftStartHour || hour < NightShiftEndHour
}

// IsWeekendStart 开始日期为周六或周日
func IsWeekendStart(start time.Time, loc *time.Location) bool {
	weekday := inLocation(start, loc).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// DateOf 返回本地日期（时间部分清零）
func DateOf(t time.Time, loc *time.Location) time.Time {
	local := inLocation(t, loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
