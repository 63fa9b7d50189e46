package hubapi

import (
	"time"

	"github.com/lachiem1/habitflow/internal/daylog"
	"github.com/lachiem1/habitflow/internal/habit"
)

// wireHabit is the raw habit payload. The server owns authoritative streak
// recomputation; recent (index 0 = today) is the canonical on-the-wire
// completion representation.
type wireHabit struct {
	ID            string `json:"id"`
	LegacyID      string `json:"_id,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	CreatedAt     string `json:"createdAt"`
	TimesPerDay   int    `json:"timesPerDay"`
	Frequency     string `json:"frequency"`
	Recent        []int  `json:"recent"`
	CurrentStreak int    `json:"currentStreak"`
	LongestStreak int    `json:"longestStreak"`
}

type habitResponse struct {
	Habit wireHabit `json:"habit"`
}

type habitListResponse struct {
	Habits []wireHabit `json:"habits"`
}

// toHabit decodes a raw habit into the canonical shape, defaulting missing
// fields instead of trusting ad hoc checks downstream.
func (w wireHabit) toHabit(now time.Time) habit.Habit {
	id := w.ID
	if id == "" {
		id = w.LegacyID
	}

	createdAt, err := time.Parse(time.RFC3339, w.CreatedAt)
	if err != nil {
		createdAt = now
	}

	recent := w.Recent
	if len(recent) > habit.WindowWidth {
		recent = recent[:habit.WindowWidth]
	}

	return habit.Habit{
		ID:          id,
		Name:        w.Name,
		Description: w.Description,
		CreatedAt:   createdAt,
		TimesPerDay: w.TimesPerDay,
		Frequency:   habit.Frequency(w.Frequency),
		Completions: habit.LedgerFromWindow(recent, now),
	}.Normalized()
}

// wireLog is the raw daily-log payload, keyed by YYYY-MM-DD date.
type wireLog struct {
	Date         string   `json:"date"`
	WorkSummary  string   `json:"workSummary"`
	KeyLearnings []string `json:"keyLearnings"`
	IssuesFaced  string   `json:"issuesFaced"`
	HoursWorked  float64  `json:"hoursWorked"`
}

func (w wireLog) toLog() daylog.DailyLog {
	return daylog.DailyLog{
		Date:         w.Date,
		WorkSummary:  w.WorkSummary,
		KeyLearnings: w.KeyLearnings,
		IssuesFaced:  w.IssuesFaced,
		HoursWorked:  w.HoursWorked,
	}.Normalized()
}

func fromLog(l daylog.DailyLog) wireLog {
	return wireLog{
		Date:         l.Date,
		WorkSummary:  l.WorkSummary,
		KeyLearnings: l.KeyLearnings,
		IssuesFaced:  l.IssuesFaced,
		HoursWorked:  l.HoursWorked,
	}
}
