package stats

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestTeamAverages(t *testing.T) {
	members := []MemberStat{
		{UserID: uuid.New(), NightShifts: 4, Replacements: 1},
		{UserID: uuid.New(), NightShifts: 2, Replacements: 0},
		{UserID: uuid.New(), NightShifts: 0, Replacements: 2},
	}

	avg := TeamAverages(members)

	if avg.NightShifts != 2 {
		t.Errorf("NightShifts = %v, expected 2", avg.NightShifts)
	}
	if avg.Replacements != 1 {
		t.Errorf("Replacements = %v, expected 1", avg.Replacements)
	}
	if avg.Members != 3 {
		t.Errorf("Members = %v, expected 3", avg.Members)
	}
}

func TestTeamAverages_Empty(t *testing.T) {
	avg := TeamAverages(nil)
	if avg.NightShifts != 0 || avg.Replacements != 0 || avg.Members != 0 {
		t.Errorf("TeamAverages(nil) = %+v, expected zero", avg)
	}
}

func TestFairnessAnalyzer_Analyze(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	heavy := uuid.New()
	light := uuid.New()
	members := []MemberStat{
		{UserID: heavy, TotalHours: 160, NightShifts: 10, Replacements: 4},
		{UserID: light, TotalHours: 80, NightShifts: 0, Replacements: 0},
	}

	result := analyzer.Analyze(members)

	// 平均夜班5、顶班2：两人偏差均为 5 和 2
	for _, id := range []uuid.UUID{heavy, light} {
		if result.Scores[id] != 55 {
			t.Errorf("Scores[%v] = %v, expected 55", id, result.Scores[id])
		}
	}
	if result.NightShiftGini != 0.5 {
		t.Errorf("NightShiftGini = %v, expected 0.5", result.NightShiftGini)
	}
	if result.AvgHours != 120 {
		t.Errorf("AvgHours = %v, expected 120", result.AvgHours)
	}
	if result.MaxHours != 160 || result.MinHours != 80 {
		t.Errorf("MaxHours/MinHours = %v/%v, expected 160/80", result.MaxHours, result.MinHours)
	}
	if result.HoursStdDev != 40 {
		t.Errorf("HoursStdDev = %v, expected 40", result.HoursStdDev)
	}
}

func TestFairnessAnalyzer_PerfectFairness(t *testing.T) {
	analyzer := NewFairnessAnalyzer()

	members := []MemberStat{
		{UserID: uuid.New(), TotalHours: 120, NightShifts: 3, Replacements: 1},
		{UserID: uuid.New(), TotalHours: 120, NightShifts: 3, Replacements: 1},
	}

	result := analyzer.Analyze(members)

	if result.WorkloadGini != 0 {
		t.Errorf("WorkloadGini = %v, expected 0", result.WorkloadGini)
	}
	for id, score := range result.Scores {
		if score != 100 {
			t.Errorf("Scores[%v] = %v, expected 100", id, score)
		}
	}
}

func TestFairnessAnalyzer_EmptyInput(t *testing.T) {
	result := NewFairnessAnalyzer().Analyze(nil)

	if result == nil {
		t.Fatal("Analyze(nil) should not return nil")
	}
	if len(result.Scores) != 0 {
		t.Errorf("len(Scores) = %d, expected 0", len(result.Scores))
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"空", nil, 0},
		{"全零", []float64{0, 0, 0}, 0},
		{"完全平均", []float64{5, 5, 5, 5}, 0},
		{"一人承担全部", []float64{0, 0, 0, 8}, 0.75},
		{"两人一半", []float64{0, 10}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Gini(tt.values); math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Gini(%v) = %v, expected %v", tt.values, result, tt.expected)
			}
		})
	}
}
