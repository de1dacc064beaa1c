package compliance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
)

func ptr(v float64) *float64 { return &v }

func TestLimits_Evaluate(t *testing.T) {
	limits := DefaultLimits()
	now := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)

	type expectation struct {
		vt       model.ViolationType
		severity model.Severity
	}

	tests := []struct {
		name     string
		obs      Observation
		expected []expectation
	}{
		{
			name:     "全部合规",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 40, ConsecutiveDays: 5},
			expected: nil,
		},
		{
			name:     "无更早班次",
			obs:      Observation{RestHours: nil, WeeklyHours: 8, ConsecutiveDays: 1},
			expected: nil,
		},
		{
			name:     "休息10小时",
			obs:      Observation{RestHours: ptr(10), WeeklyHours: 40, ConsecutiveDays: 5},
			expected: []expectation{{model.ViolationRestTime, model.SeverityError}},
		},
		{
			name:     "休息恰好9小时",
			obs:      Observation{RestHours: ptr(9), WeeklyHours: 40, ConsecutiveDays: 5},
			expected: []expectation{{model.ViolationRestTime, model.SeverityError}},
		},
		{
			name:     "休息8小时",
			obs:      Observation{RestHours: ptr(8), WeeklyHours: 40, ConsecutiveDays: 5},
			expected: []expectation{{model.ViolationRestTime, model.SeverityCritical}},
		},
		{
			name:     "周工时恰好48",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 48, ConsecutiveDays: 5},
			expected: nil,
		},
		{
			name:     "周工时50",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 50, ConsecutiveDays: 5},
			expected: []expectation{{model.ViolationWeeklyHours, model.SeverityWarning}},
		},
		{
			name:     "周工时55",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 55, ConsecutiveDays: 5},
			expected: []expectation{{model.ViolationWeeklyHours, model.SeverityCritical}},
		},
		{
			name:     "连续7天",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 40, ConsecutiveDays: 7},
			expected: []expectation{{model.ViolationConsecutiveDays, model.SeverityWarning}},
		},
		{
			name:     "连续8天",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 40, ConsecutiveDays: 8},
			expected: []expectation{{model.ViolationConsecutiveDays, model.SeverityWarning}},
		},
		{
			name:     "连续9天",
			obs:      Observation{RestHours: ptr(12), WeeklyHours: 40, ConsecutiveDays: 9},
			expected: []expectation{{model.ViolationConsecutiveDays, model.SeverityCritical}},
		},
		{
			name: "三项同时违规",
			obs:  Observation{RestHours: ptr(0), WeeklyHours: 60, ConsecutiveDays: 10},
			expected: []expectation{
				{model.ViolationRestTime, model.SeverityCritical},
				{model.ViolationWeeklyHours, model.SeverityCritical},
				{model.ViolationConsecutiveDays, model.SeverityCritical},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.obs.UserID = uuid.New()
			tt.obs.ShiftID = uuid.New()

			violations := limits.Evaluate(tt.obs, now)
			if len(violations) != len(tt.expected) {
				t.Fatalf("Evaluate() 返回 %d 条违规, expected %d", len(violations), len(tt.expected))
			}
			for i, exp := range tt.expected {
				v := violations[i]
				if v.ViolationType != exp.vt || v.Severity != exp.severity {
					t.Errorf("violations[%d] = %s/%s, expected %s/%s", i, v.ViolationType, v.Severity, exp.vt, exp.severity)
				}
				if v.UserID != tt.obs.UserID || v.ShiftID != tt.obs.ShiftID {
					t.Errorf("violations[%d] 用户或班次不匹配", i)
				}
				if v.Value == nil || v.Threshold == nil {
					t.Errorf("violations[%d] 缺少 value/threshold", i)
				}
				if !v.CreatedAt.Equal(now) {
					t.Errorf("violations[%d].CreatedAt = %v, expected %v", i, v.CreatedAt, now)
				}
			}
		})
	}
}
