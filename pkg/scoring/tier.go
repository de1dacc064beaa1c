package scoring

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Recommendation 推荐等级
type Recommendation string

const (
	RecommendationOptimal        Recommendation = "OPTIMAL"
	RecommendationGood           Recommendation = "GOOD"
	RecommendationAcceptable     Recommendation = "ACCEPTABLE"
	RecommendationNotRecommended Recommendation = "NOT_RECOMMENDED"
)

// Thresholds 推荐等级分界（总分下限，含）
type Thresholds struct {
	Optimal    float64 `yaml:"optimal" json:"optimal" validate:"gte=0,lte=100"`
	Good       float64 `yaml:"good" json:"good" validate:"gte=0,lte=100"`
	Acceptable float64 `yaml:"acceptable" json:"acceptable" validate:"gte=0,lte=100"`
}

// DefaultThresholds 默认分界 85/70/50
func DefaultThresholds() Thresholds {
	return Thresholds{Optimal: 85, Good: 70, Acceptable: 50}
}

// Validate 检查分界是否递减
func (t Thresholds) Validate() error {
	if !(t.Optimal >= t.Good && t.Good >= t.Acceptable) {
		return fmt.Errorf("推荐等级分界必须递减: optimal=%v good=%v acceptable=%v", t.Optimal, t.Good, t.Acceptable)
	}
	return nil
}

// Classify 根据总分确定推荐等级
func (t Thresholds) Classify(total float64) Recommendation {
	switch {
	case total >= t.Optimal:
		return RecommendationOptimal
	case total >= t.Good:
		return RecommendationGood
	case total >= t.Acceptable:
		return RecommendationAcceptable
	default:
		return RecommendationNotRecommended
	}
}

// TieKey 排序键
type TieKey struct {
	UserID       uuid.UUID
	Total        float64
	Fairness     float64
	CurrentHours float64
}

// Compare 候选人排序：总分降序，公平分降序，当月工时升序，员工ID升序
// a 应排在 b 之前时返回负数
func Compare(a, b TieKey) int {
	switch {
	case a.Total > b.Total:
		return -1
	case a.Total < b.Total:
		return 1
	case a.Fairness > b.Fairness:
		return -1
	case a.Fairness < b.Fairness:
		return 1
	case a.CurrentHours < b.CurrentHours:
		return -1
	case a.CurrentHours > b.CurrentHours:
		return 1
	}
	return bytes.Compare(a.UserID[:], b.UserID[:])
}
