package habit

import (
	"time"

	"github.com/lachiem1/habitflow/internal/calendar"
)

// DayCell is one calendar day of a month projection.
type DayCell struct {
	Date   time.Time
	Count  int
	Active bool
	Ratio  float64
}

// BuildMonth projects the ledger onto a calendar month, one cell per day in
// ascending order. Days before the habit's creation or after today are
// inactive but still present for layout. Counts for days beyond the tracked
// window are 0; habits are not assumed complete or incomplete past the
// tracked horizon.
func BuildMonth(l *Ledger, created, today time.Time, target int, year int, month time.Month) []DayCell {
	days := calendar.DaysInMonth(year, month)
	todayN := calendar.Normalize(today)
	createdN := calendar.Normalize(created)

	cells := make([]DayCell, 0, days)
	for day := 1; day <= days; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, today.Location())

		count := 0
		if daysAgo := calendar.DayDiff(todayN, date); daysAgo >= 0 && daysAgo < WindowWidth && l != nil {
			count = l.CountOn(date)
		}

		cells = append(cells, DayCell{
			Date:   date,
			Count:  count,
			Active: !date.After(todayN) && !date.Before(createdN),
			Ratio:  ProgressRatio(count, target),
		})
	}
	return cells
}

// WeekBuckets splits a month projection into four buckets and returns, for
// each, the percentage of days whose target was met. Backs the dashboard
// mini-bars.
func WeekBuckets(cells []DayCell) [4]int {
	var buckets [4]int
	if len(cells) == 0 {
		return buckets
	}
	for i := 0; i < 4; i++ {
		start := i * len(cells) / 4
		end := (i + 1) * len(cells) / 4
		if start >= end {
			continue
		}
		met := 0
		for _, cell := range cells[start:end] {
			if cell.Ratio >= 1 {
				met++
			}
		}
		buckets[i] = Percent(float64(met) / float64(end-start))
	}
	return buckets
}

// IntensityLevel classifies a progress ratio into five display levels,
// 0 (none) through 4 (well past target).
func IntensityLevel(ratio float64) int {
	switch {
	case ratio <= 0:
		return 0
	case ratio < 0.5:
		return 1
	case ratio < 1:
		return 2
	case ratio < 1.5:
		return 3
	default:
		return 4
	}
}
