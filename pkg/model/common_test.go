package model

import (
	"testing"
	"time"
)

func TestPeriod_DaysInMonth(t *testing.T) {
	tests := []struct {
		name     string
		month    int
		year     int
		expected int
	}{
		{"一月", 1, 2026, 31},
		{"平年二月", 2, 2026, 28},
		{"闰年二月", 2, 2028, 29},
		{"四月", 4, 2026, 30},
		{"十二月", 12, 2026, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPeriod(tt.month, tt.year, time.UTC)
			if result := p.DaysInMonth(); result != tt.expected {
				t.Errorf("DaysInMonth() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestPeriod_Bounds(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("时区数据不可用")
	}

	p := NewPeriod(12, 2026, berlin)
	if !p.Start().Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, berlin)) {
		t.Errorf("Start() = %v", p.Start())
	}
	if !p.End().Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, berlin)) {
		t.Errorf("End() = %v", p.End())
	}

	// 柏林时间 1月1日 00:30 对应 UTC 12月31日 23:30
	newYear := time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC)
	if p.Contains(newYear) {
		t.Error("跨年时刻不应属于12月")
	}
	if got := PeriodOf(newYear, berlin); got.Month != 1 || got.Year != 2027 {
		t.Errorf("PeriodOf() = %d/%d, expected 1/2027", got.Month, got.Year)
	}
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)
	a := TimeRange{Start: base, End: base.Add(8 * time.Hour)}

	tests := []struct {
		name     string
		other    TimeRange
		expected bool
	}{
		{"完全包含", TimeRange{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}, true},
		{"部分重叠", TimeRange{Start: base.Add(7 * time.Hour), End: base.Add(10 * time.Hour)}, true},
		{"首尾相接", TimeRange{Start: base.Add(8 * time.Hour), End: base.Add(16 * time.Hour)}, false},
		{"完全分离", TimeRange{Start: base.Add(20 * time.Hour), End: base.Add(28 * time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := a.Overlaps(tt.other); result != tt.expected {
				t.Errorf("Overlaps() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
