package scoring

import (
	"sort"
	"testing"

	"github.com/google/uuid"
)

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		total    float64
		expected Recommendation
	}{
		{100, RecommendationOptimal},
		{85, RecommendationOptimal},
		{84.99, RecommendationGood},
		{70, RecommendationGood},
		{69.5, RecommendationAcceptable},
		{50, RecommendationAcceptable},
		{49.9, RecommendationNotRecommended},
		{0, RecommendationNotRecommended},
	}

	for _, tt := range tests {
		if result := th.Classify(tt.total); result != tt.expected {
			t.Errorf("Classify(%v) = %v, expected %v", tt.total, result, tt.expected)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("Validate() 默认分界 error = %v", err)
	}
	if err := (Thresholds{Optimal: 60, Good: 70, Acceptable: 50}).Validate(); err == nil {
		t.Error("Validate() 应拒绝非递减分界")
	}
}

func TestCompare(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	keys := []TieKey{
		{UserID: high, Total: 80, Fairness: 90, CurrentHours: 100},
		{UserID: low, Total: 80, Fairness: 90, CurrentHours: 100},
		{UserID: high, Total: 80, Fairness: 90, CurrentHours: 80},
		{UserID: high, Total: 80, Fairness: 95, CurrentHours: 120},
		{UserID: high, Total: 90, Fairness: 10, CurrentHours: 150},
	}

	sort.SliceStable(keys, func(i, j int) bool { return Compare(keys[i], keys[j]) < 0 })

	expected := []TieKey{
		{UserID: high, Total: 90, Fairness: 10, CurrentHours: 150},
		{UserID: high, Total: 80, Fairness: 95, CurrentHours: 120},
		{UserID: high, Total: 80, Fairness: 90, CurrentHours: 80},
		{UserID: low, Total: 80, Fairness: 90, CurrentHours: 100},
		{UserID: high, Total: 80, Fairness: 90, CurrentHours: 100},
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("位置 %d = %+v, expected %+v", i, keys[i], expected[i])
		}
	}

	if Compare(keys[0], keys[0]) != 0 {
		t.Error("Compare() 相同键应返回 0")
	}
}
