package leave

import (
	"errors"
	"time"
)

// CycleYear labels the active leave cycle with the year the cycle started.
// startMonth is 0-indexed (0 = January). With startMonth 4 (May), a date in
// March belongs to the cycle that started the previous May.
func CycleYear(now time.Time, startMonth int) int {
	year := now.Year()
	if int(now.Month())-1 < startMonth {
		year--
	}
	return year
}

// CycleBounds returns the inclusive start and exclusive end of the cycle
// labeled year for the given start month.
func CycleBounds(year, startMonth int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(startMonth+1), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

// CalculateDays returns the inclusive day count between start and end.
func CalculateDays(start, end time.Time) (float64, error) {
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return end.Sub(start).Hours()/24 + 1, nil
}
