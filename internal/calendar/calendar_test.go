package calendar

import (
	"testing"
	"time"
)

func TestNormalizeSameDayTimestampsAreEqual(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("AEST", 10*60*60)
	morning := time.Date(2024, time.March, 5, 6, 15, 0, 0, loc)
	night := time.Date(2024, time.March, 5, 23, 59, 59, 0, loc)

	if !Normalize(morning).Equal(Normalize(night)) {
		t.Fatalf("Normalize(%v) != Normalize(%v)", morning, night)
	}
	if got := Normalize(morning).Hour(); got != 0 {
		t.Fatalf("Normalize() hour = %d, want 0", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, time.November, 12, 17, 4, 9, 0, time.Local)
	once := Normalize(ts)
	twice := Normalize(once)
	if !once.Equal(twice) {
		t.Fatalf("Normalize not idempotent: %v vs %v", once, twice)
	}
}

func TestDayDiff(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("X", 11*60*60)
	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		want int
	}{
		{
			name: "same day different times",
			a:    time.Date(2024, time.January, 13, 23, 0, 0, 0, loc),
			b:    time.Date(2024, time.January, 13, 1, 0, 0, 0, loc),
			want: 0,
		},
		{
			name: "consecutive days",
			a:    time.Date(2024, time.January, 14, 0, 30, 0, 0, loc),
			b:    time.Date(2024, time.January, 13, 23, 30, 0, 0, loc),
			want: 1,
		},
		{
			name: "negative when a before b",
			a:    time.Date(2024, time.January, 10, 12, 0, 0, 0, loc),
			b:    time.Date(2024, time.January, 13, 12, 0, 0, 0, loc),
			want: -3,
		},
		{
			name: "across year boundary",
			a:    time.Date(2024, time.January, 2, 0, 0, 0, 0, loc),
			b:    time.Date(2023, time.December, 30, 0, 0, 0, 0, loc),
			want: 3,
		},
		{
			name: "across leap February",
			a:    time.Date(2024, time.March, 1, 0, 0, 0, 0, loc),
			b:    time.Date(2024, time.February, 28, 0, 0, 0, 0, loc),
			want: 2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DayDiff(tc.a, tc.b); got != tc.want {
				t.Fatalf("DayDiff() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.January, 31},
		{2024, time.April, 30},
		{2024, time.December, 31},
		{2100, time.February, 28},
	}

	for _, tc := range tests {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestFormatAndParseISORoundTrip(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, time.July, 9, 0, 0, 0, 0, time.Local)
	iso := FormatISO(day)
	if iso != "2024-07-09" {
		t.Fatalf("FormatISO() = %q, want %q", iso, "2024-07-09")
	}

	parsed, err := ParseISO(iso)
	if err != nil {
		t.Fatalf("ParseISO() unexpected error: %v", err)
	}
	if !parsed.Equal(day) {
		t.Fatalf("ParseISO(FormatISO()) = %v, want %v", parsed, day)
	}
}

func TestValidISO(t *testing.T) {
	t.Parallel()

	valid := []string{"2024-01-01", "1999-12-31", "2024-02-29"}
	for _, s := range valid {
		if !ValidISO(s) {
			t.Errorf("ValidISO(%q) = false, want true", s)
		}
	}

	invalid := []string{"", "2024-1-1", "2024-13-01", "2023-02-29", "today", "2024/01/01"}
	for _, s := range invalid {
		if ValidISO(s) {
			t.Errorf("ValidISO(%q) = true, want false", s)
		}
	}
}
