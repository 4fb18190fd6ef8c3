package payroll

import "time"

// ComputeAttendance reduces a month of raw records to billable present
// days. Half days count 0.5. Two degenerate inputs fall back to fully
// present so a tenant that has not rolled out attendance tracking still
// gets paid: no records at all, and records that compute to zero present
// days. The caller logs and counts the fallback; a partial month with at
// least one present day is paid exactly as recorded.
func ComputeAttendance(records []AttendanceRecord, year int, month time.Month) AttendanceSummary {
	total := daysInMonth(year, month)

	if len(records) == 0 {
		return AttendanceSummary{
			PresentDays: float64(total),
			TotalDays:   total,
			Fallback:    FallbackNoRecords,
		}
	}

	var present float64
	for _, r := range records {
		switch r.Status {
		case AttendancePresent:
			present++
		case AttendanceHalfDay:
			present += 0.5
		}
	}

	if present == 0 {
		return AttendanceSummary{
			PresentDays: float64(total),
			TotalDays:   total,
			Fallback:    FallbackZeroPresent,
		}
	}

	if present > float64(total) {
		present = float64(total)
	}
	return AttendanceSummary{PresentDays: present, TotalDays: total}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
