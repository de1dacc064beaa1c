// Package model 定义替班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role 员工角色
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleDispatcher Role = "DISPATCHER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleEmployee   Role = "EMPLOYEE"
)

// Employee 员工（在岗名册中的一行）
type Employee struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Role     Role      `json:"role" db:"role"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// HasRole 检查员工是否属于给定角色之一
func (e *Employee) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if e.Role == r {
			return true
		}
	}
	return false
}

// EmployeePreferences 员工偏好（每人至多一条，可缺省）
type EmployeePreferences struct {
	UserID                 uuid.UUID   `json:"user_id" db:"user_id"`
	PrefersNightShifts     bool        `json:"prefers_night_shifts" db:"prefers_night_shifts"`
	PrefersDayShifts       bool        `json:"prefers_day_shifts" db:"prefers_day_shifts"`
	PrefersWeekends        bool        `json:"prefers_weekends" db:"prefers_weekends"`
	TargetMonthlyHours     float64     `json:"target_monthly_hours" db:"target_monthly_hours"`
	MinMonthlyHours        float64     `json:"min_monthly_hours" db:"min_monthly_hours"`
	MaxMonthlyHours        float64     `json:"max_monthly_hours" db:"max_monthly_hours"`
	FlexibleHours          bool        `json:"flexible_hours" db:"flexible_hours"`
	PrefersLongShifts      bool        `json:"prefers_long_shifts" db:"prefers_long_shifts"`
	PrefersShortShifts     bool        `json:"prefers_short_shifts" db:"prefers_short_shifts"`
	PrefersConsecutiveDays bool        `json:"prefers_consecutive_days" db:"prefers_consecutive_days"`
	MinRestDaysPerWeek     int         `json:"min_rest_days_per_week" db:"min_rest_days_per_week"`
	PreferredSiteIDs       []uuid.UUID `json:"preferred_site_ids,omitempty" db:"preferred_site_ids"`
	AvoidedSiteIDs         []uuid.UUID `json:"avoided_site_ids,omitempty" db:"avoided_site_ids"`
	Notes                  string      `json:"notes,omitempty" db:"notes"`
}

// PrefersSite 检查现场是否在偏好列表中
func (p *EmployeePreferences) PrefersSite(siteID uuid.UUID) bool {
	return containsID(p.PreferredSiteIDs, siteID)
}

// AvoidsSite 检查现场是否在回避列表中
func (p *EmployeePreferences) AvoidsSite(siteID uuid.UUID) bool {
	return containsID(p.AvoidedSiteIDs, siteID)
}

// SiteClearance 现场准入资质（安保人员进入客户现场的授权）
type SiteClearance struct {
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	SiteID     uuid.UUID  `json:"site_id" db:"site_id"`
	GrantedAt  time.Time  `json:"granted_at" db:"granted_at"`
	ValidUntil *time.Time `json:"valid_until,omitempty" db:"valid_until"`
}

// IsValidAt 检查资质在指定时间是否有效
func (c *SiteClearance) IsValidAt(t time.Time) bool {
	if t.Before(c.GrantedAt) {
		return false
	}
	return c.ValidUntil == nil || !t.After(*c.ValidUntil)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
