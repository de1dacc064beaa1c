// Package scoring 替班候选人评分函数
//
// 所有函数均为纯函数，返回值在 [0, 100] 区间内，可并发调用。
package scoring

import (
	"math"
	"time"

	"github.com/paiban/replacement/pkg/model"
)

// 总分权重，合计为 1.0
const (
	WeightWorkload   = 0.10
	WeightCompliance = 0.40
	WeightFairness   = 0.20
	WeightPreference = 0.30
)

// ArbZG 相关阈值
const (
	MinRestHours          = 11.0
	MaxWeeklyHours        = 48.0
	MaxConsecutiveDays    = 6
	weeklyPenaltyPerHour  = 5.0
	weeklyPenaltyCap      = 50.0
	consecutiveDayPenalty = 10.0
)

// 公平性阈值
const (
	nightDeviationTolerance       = 2.0
	nightDeviationPenalty         = 5.0
	replacementDeviationTolerance = 1.0
	replacementDeviationPenalty   = 10.0
)

// 中性分：缺少偏好记录或目标工时时使用
const (
	NeutralScore    = 50.0
	LongShiftHours  = 10.0
	ShortShiftHours = 6.0
)

// SubScores 四项分项得分
type SubScores struct {
	Workload   float64 `json:"workload"`
	Compliance float64 `json:"compliance"`
	Fairness   float64 `json:"fairness"`
	Preference float64 `json:"preference"`
}

// Total 加权总分（不做取整）
func (s SubScores) Total() float64 {
	return Total(s.Workload, s.Compliance, s.Fairness, s.Preference)
}

// Total 加权总分
func Total(workload, compliance, fairness, preference float64) float64 {
	return workload*WeightWorkload +
		compliance*WeightCompliance +
		fairness*WeightFairness +
		preference*WeightPreference
}

// Workload 按月度工时利用率评分
// 利用率 70%-90% 最佳，过低或超过目标都会降分；目标工时无效时返回中性分
func Workload(currentHours, targetHours float64) float64 {
	if targetHours <= 0 {
		return NeutralScore
	}

	utilization := currentHours * 100 / targetHours

	switch {
	case utilization > 110:
		return 0
	case utilization > 100:
		return 40
	case utilization > 95:
		return 60
	case utilization > 90:
		return 80
	case utilization >= 70:
		return 100
	case utilization >= 50:
		return 80
	case utilization >= 30:
		return 60
	default:
		return 40
	}
}

// Compliance 按劳动法约束评分：休息时间、周工时、连续工作天数
func Compliance(restHours, weeklyHours float64, consecutiveDays int) float64 {
	score := 100.0

	switch {
	case restHours < 9:
		score -= 100
	case restHours < 10:
		score -= 50
	case restHours < MinRestHours:
		score -= 20
	}

	if weeklyHours > MaxWeeklyHours {
		score -= math.Min((weeklyHours-MaxWeeklyHours)*weeklyPenaltyPerHour, weeklyPenaltyCap)
	}

	if consecutiveDays > MaxConsecutiveDays {
		score -= float64(consecutiveDays-MaxConsecutiveDays) * consecutiveDayPenalty
	}

	return clamp(score)
}

// Fairness 与团队平均值比较夜班与顶班次数的偏差
func Fairness(nightShifts, replacements int, team model.TeamAverages) float64 {
	score := 100.0

	nightDeviation := math.Abs(float64(nightShifts) - team.NightShifts)
	if nightDeviation > nightDeviationTolerance {
		score -= nightDeviation * nightDeviationPenalty
	}

	replacementDeviation := math.Abs(float64(replacements) - team.Replacements)
	if replacementDeviation > replacementDeviationTolerance {
		score -= replacementDeviation * replacementDeviationPenalty
	}

	return clamp(score)
}

// Preference 按员工偏好评分，无偏好记录时返回中性分 50
// currentHours 为候选人当月已排工时，loc 为判定夜班/周末的本地时区
func Preference(shift *model.Shift, prefs *model.EmployeePreferences, currentHours float64, loc *time.Location) float64 {
	if prefs == nil || shift == nil {
		return NeutralScore
	}

	score := 100.0
	duration := shift.DurationHours()

	if shift.IsNightShift(loc) {
		if !prefs.PrefersNightShifts {
			score -= 30
		}
	} else if prefs.PrefersNightShifts {
		score -= 20
	}

	if shift.IsWeekendShift(loc) && !prefs.PrefersWeekends {
		score -= 15
	}

	// 上限为 0 视为未设置
	projected := currentHours + duration
	if prefs.MaxMonthlyHours > 0 && projected > prefs.MaxMonthlyHours {
		score -= 40
	} else if projected < prefs.MinMonthlyHours {
		score -= 20
	}

	if shift.HasSite() {
		if prefs.AvoidsSite(*shift.SiteID) {
			score -= 50
		} else if prefs.PrefersSite(*shift.SiteID) {
			score += 10
		}
	}

	if duration >= LongShiftHours && !prefs.PrefersLongShifts {
		score -= 10
	}
	if duration <= ShortShiftHours && !prefs.PrefersShortShifts {
		score -= 10
	}

	return clamp(score)
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
