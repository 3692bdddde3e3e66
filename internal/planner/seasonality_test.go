package planner

import (
	"testing"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

func TestSeasonalityMultiplier(t *testing.T) {
	full := domain.Seasonality{Feb14: ptr(2.0), MothersDay: ptr(1.5), NovDec: ptr(1.3)}

	tests := []struct {
		name     string
		date     time.Time
		season   domain.Seasonality
		expected float64
	}{
		{name: "empty_map", date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), expected: 1.0},
		{name: "feb14", date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), season: domain.Seasonality{Feb14: ptr(2.0)}, expected: 2.0},
		{name: "feb15", date: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), season: domain.Seasonality{Feb14: ptr(2.0)}, expected: 1.0},
		{name: "feb13", date: time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC), season: full, expected: 1.0},
		{name: "may7_outside", date: time.Date(2025, 5, 7, 0, 0, 0, 0, time.UTC), season: full, expected: 1.0},
		{name: "may8_start", date: time.Date(2025, 5, 8, 0, 0, 0, 0, time.UTC), season: full, expected: 1.5},
		{name: "may14_end", date: time.Date(2025, 5, 14, 0, 0, 0, 0, time.UTC), season: full, expected: 1.5},
		{name: "may15_outside", date: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC), season: full, expected: 1.0},
		{name: "nov1", date: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), season: full, expected: 1.3},
		{name: "dec31", date: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), season: full, expected: 1.3},
		{name: "oct31", date: time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), season: full, expected: 1.0},
		{name: "matching_window_unset", date: time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), season: domain.Seasonality{NovDec: ptr(1.3)}, expected: 1.0},
		{name: "non_positive_multiplier_ignored", date: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC), season: domain.Seasonality{NovDec: ptr(-1)}, expected: 1.0},
		{name: "time_of_day_ignored", date: time.Date(2025, 2, 14, 23, 59, 59, 0, time.UTC), season: full, expected: 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SeasonalityMultiplier(tt.date, tt.season)
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if again := SeasonalityMultiplier(tt.date, tt.season); again != got {
				t.Errorf("Expected a pure result, got %v then %v", got, again)
			}
		})
	}
}

func TestSeasonalityMultiplier_UsesCalendarDateOfLocation(t *testing.T) {
	// 23:00 on Feb 14 in UTC-5 is already Feb 15 in UTC; the date component of
	// the value as given is what counts.
	loc := time.FixedZone("UTC-5", -5*60*60)
	date := time.Date(2025, 2, 14, 23, 0, 0, 0, loc)

	got := SeasonalityMultiplier(date, domain.Seasonality{Feb14: ptr(2.0)})
	if got != 2.0 {
		t.Errorf("Expected 2.0, got %v", got)
	}
}
