package habit

import (
	"math"
	"time"

	"github.com/lachiem1/habitflow/internal/calendar"
)

// ratioCap bounds progress ratios at 200% so a heavily over-completed day
// cannot distort averages.
const ratioCap = 2.0

// Metrics is a snapshot of every derived figure the dashboard renders.
type Metrics struct {
	CurrentStreak int
	LongestStreak int
	Recent        []int
	TodayPct      int
	WeeklyPct     int
	MonthlyPct    int
}

// Analyze recomputes all derived metrics for h as of today.
func Analyze(h Habit, today time.Time) Metrics {
	h = h.Normalized()
	window := RecentWindow(h.Completions, today)
	return Metrics{
		CurrentStreak: CurrentStreakAt(h.Completions, today),
		LongestStreak: LongestStreakAt(h.Completions, today),
		Recent:        window,
		TodayPct:      TodayPercent(window, h.Target()),
		WeeklyPct:     WeeklyPercent(window, h.Target()),
		MonthlyPct:    MonthlyPercent(h.Completions, h.CreatedAt, h.Target(), today.Year(), today.Month(), today),
	}
}

// RecentWindow projects the ledger onto a fixed-width intensity window:
// index 0 is today, index i is i days ago, each cell capped at the display
// ceiling. The result always has length WindowWidth.
func RecentWindow(l *Ledger, today time.Time) []int {
	window := make([]int, WindowWidth)
	if l == nil {
		return window
	}
	base := calendar.Normalize(today)
	for i := 0; i < WindowWidth; i++ {
		window[i] = l.CountOn(base.AddDate(0, 0, -i))
	}
	return window
}

// CurrentStreak counts consecutive non-zero cells from the front of a wire
// window. A zero today yields 0; there is no grace day.
func CurrentStreak(window []int) int {
	streak := 0
	for _, count := range window {
		if count <= 0 {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak returns the maximum contiguous non-zero run in a wire window.
func LongestStreak(window []int) int {
	longest, run := 0, 0
	for _, count := range window {
		if count > 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// CurrentStreakAt scans the ledger backward from today, stopping at the
// first missing day or the lookback bound.
func CurrentStreakAt(l *Ledger, today time.Time) int {
	if l == nil || l.Len() == 0 {
		return 0
	}
	base := calendar.Normalize(today)
	streak := 0
	for i := 0; i < LookbackDays; i++ {
		if !l.Contains(base.AddDate(0, 0, -i)) {
			break
		}
		streak++
	}
	return streak
}

// LongestStreakAt returns the maximum contiguous run of completed days over
// the lookback window ending today. A gap of any length resets the run.
func LongestStreakAt(l *Ledger, today time.Time) int {
	if l == nil || l.Len() == 0 {
		return 0
	}
	base := calendar.Normalize(today)
	longest, run := 0, 0
	for i := 0; i < LookbackDays; i++ {
		if l.Contains(base.AddDate(0, 0, -i)) {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// ProgressRatio maps a day's completion count against its target, capped at
// 2.0. A zero target falls back to presence: any completion counts as met.
func ProgressRatio(count, target int) float64 {
	if target > 0 {
		return math.Min(float64(count)/float64(target), ratioCap)
	}
	if count > 0 {
		return 1
	}
	return 0
}

// Percent renders a ratio as an integer percentage, display-capped at 200.
func Percent(ratio float64) int {
	return int(math.Round(math.Min(ratio, ratioCap) * 100))
}

// TodayPercent is the progress percentage for window index 0.
func TodayPercent(window []int, target int) int {
	if len(window) == 0 {
		return 0
	}
	return Percent(ProgressRatio(window[0], target))
}

// WeeklyPercent averages the progress ratio over the first seven window
// cells, as a percentage.
func WeeklyPercent(window []int, target int) int {
	week := window
	if len(week) > 7 {
		week = week[:7]
	}
	if len(week) == 0 {
		return 0
	}
	sum := 0.0
	for _, count := range week {
		sum += ProgressRatio(count, target)
	}
	return int(math.Round(sum / float64(len(week)) * 100))
}

// MonthlyPercent averages the progress ratio over every day of the month
// projection, as a percentage.
func MonthlyPercent(l *Ledger, created time.Time, target int, year int, month time.Month, today time.Time) int {
	cells := BuildMonth(l, created, today, target, year, month)
	if len(cells) == 0 {
		return 0
	}
	sum := 0.0
	for _, cell := range cells {
		sum += cell.Ratio
	}
	return int(math.Round(sum / float64(len(cells)) * 100))
}
