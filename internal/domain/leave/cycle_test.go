package leave

import (
	"testing"
	"time"
)

func TestCycleYear(t *testing.T) {
	tests := []struct {
		name       string
		date       time.Time
		startMonth int
		want       int
	}{
		{
			name:       "calendar cycle january",
			date:       time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			startMonth: 0,
			want:       2026,
		},
		{
			name:       "calendar cycle december",
			date:       time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
			startMonth: 0,
			want:       2026,
		},
		{
			name:       "may cycle, march belongs to prior year",
			date:       time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
			startMonth: 4,
			want:       2025,
		},
		{
			name:       "may cycle, june belongs to current year",
			date:       time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC),
			startMonth: 4,
			want:       2026,
		},
		{
			name:       "may cycle, may itself starts the year",
			date:       time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
			startMonth: 4,
			want:       2026,
		},
		{
			name:       "april cycle fiscal year",
			date:       time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			startMonth: 3,
			want:       2025,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CycleYear(tc.date, tc.startMonth); got != tc.want {
				t.Fatalf("CycleYear(%v, %d) = %d, want %d", tc.date, tc.startMonth, got, tc.want)
			}
		})
	}
}

func TestCycleBounds(t *testing.T) {
	start, end := CycleBounds(2025, 4, time.UTC)
	if !start.Equal(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", end)
	}
}

func TestCalculateDays(t *testing.T) {
	start := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	days, err := CalculateDays(start, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	days, err = CalculateDays(start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}

	if _, err := CalculateDays(start, start.AddDate(0, 0, -1)); err == nil {
		t.Fatal("expected error for inverted range")
	}
}
