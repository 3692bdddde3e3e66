package planner

import (
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// SeasonalityMultiplier returns the demand multiplier for planDate.
// Windows are checked in order and the first one containing the date decides:
//   - February 14             -> Feb14
//   - May 8 to May 14         -> MothersDay
//   - any day of Nov or Dec   -> NovDec
//
// Only the calendar date is used. A missing or non-positive multiplier means 1.0.
func SeasonalityMultiplier(planDate time.Time, s domain.Seasonality) float64 {
	if s.IsEmpty() {
		return 1.0
	}

	_, month, day := planDate.Date()
	switch {
	case month == time.February && day == 14:
		return multiplierOrOne(s.Feb14)
	case month == time.May && day >= 8 && day <= 14:
		return multiplierOrOne(s.MothersDay)
	case month == time.November || month == time.December:
		return multiplierOrOne(s.NovDec)
	}

	return 1.0
}

func multiplierOrOne(v *float64) float64 {
	if v == nil || *v <= 0 {
		return 1.0
	}
	return *v
}
