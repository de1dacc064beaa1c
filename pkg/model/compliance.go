// Package model 定义替班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType 合规违规类型
type ViolationType string

const (
	ViolationRestTime        ViolationType = "REST_TIME_VIOLATED"
	ViolationWeeklyHours     ViolationType = "WEEKLY_HOURS_EXCEEDED"
	ViolationConsecutiveDays ViolationType = "CONSECUTIVE_DAYS_EXCEEDED"
)

// Severity 违规严重程度
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// ComplianceViolation 合规违规记录（只追加的审计轨迹）
type ComplianceViolation struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	ShiftID       uuid.UUID     `json:"shift_id" db:"shift_id"`
	ViolationType ViolationType `json:"violation_type" db:"violation_type"`
	Severity      Severity      `json:"severity" db:"severity"`
	Description   string        `json:"description" db:"description"`
	Value         *float64      `json:"value,omitempty" db:"value"`
	Threshold     *float64      `json:"threshold,omitempty" db:"threshold"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
