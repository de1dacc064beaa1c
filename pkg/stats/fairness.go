// Package stats 提供团队公平性统计
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/paiban/replacement/pkg/model"
	"github.com/paiban/replacement/pkg/scoring"
)

// MemberStat 单个员工的月度计数（来自工作量快照或聚合结果）
type MemberStat struct {
	UserID        uuid.UUID `json:"user_id"`
	TotalHours    float64   `json:"total_hours"`
	NightShifts   int       `json:"night_shifts"`
	WeekendShifts int       `json:"weekend_shifts"`
	Replacements  int       `json:"replacements"`
}

// TeamFairness 团队公平性指标
type TeamFairness struct {
	Averages model.TeamAverages `json:"averages"`

	// 基尼系数 (0=完全公平, 1=完全不公平)
	WorkloadGini     float64 `json:"workload_gini"`
	NightShiftGini   float64 `json:"night_shift_gini"`
	WeekendShiftGini float64 `json:"weekend_shift_gini"`
	ReplacementGini  float64 `json:"replacement_gini"`

	AvgHours    float64 `json:"avg_hours"`
	HoursStdDev float64 `json:"hours_std_dev"`
	MaxHours    float64 `json:"max_hours"`
	MinHours    float64 `json:"min_hours"`

	// 个人公平分
	Scores map[uuid.UUID]float64 `json:"scores"`
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// TeamAverages 计算夜班与顶班次数的团队平均值
func TeamAverages(members []MemberStat) model.TeamAverages {
	if len(members) == 0 {
		return model.TeamAverages{}
	}

	nights := 0
	replacements := 0
	for _, m := range members {
		nights += m.NightShifts
		replacements += m.Replacements
	}

	n := float64(len(members))
	return model.TeamAverages{
		NightShifts:  float64(nights) / n,
		Replacements: float64(replacements) / n,
		Members:      len(members),
	}
}

// Analyze 分析团队公平性并为每个员工计算公平分
func (f *FairnessAnalyzer) Analyze(members []MemberStat) *TeamFairness {
	result := &TeamFairness{
		Scores: make(map[uuid.UUID]float64, len(members)),
	}
	if len(members) == 0 {
		return result
	}

	result.Averages = TeamAverages(members)

	hours := make([]float64, len(members))
	nights := make([]float64, len(members))
	weekends := make([]float64, len(members))
	replacements := make([]float64, len(members))
	for i, m := range members {
		hours[i] = m.TotalHours
		nights[i] = float64(m.NightShifts)
		weekends[i] = float64(m.WeekendShifts)
		replacements[i] = float64(m.Replacements)

		result.Scores[m.UserID] = scoring.Fairness(m.NightShifts, m.Replacements, result.Averages)
	}

	result.AvgHours = mean(hours)
	result.HoursStdDev = math.Sqrt(variance(hours, result.AvgHours))
	result.MaxHours, result.MinHours = valueRange(hours)

	result.WorkloadGini = Gini(hours)
	result.NightShiftGini = Gini(nights)
	result.WeekendShiftGini = Gini(weekends)
	result.ReplacementGini = Gini(replacements)

	return result
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算方差
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// valueRange 计算极值
func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// Gini 计算基尼系数
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}
