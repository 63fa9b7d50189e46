// Package daylog holds the daily work-log model: one record per owner per
// calendar date, edited as free text and synced through the tier stack.
package daylog

import (
	"strings"

	"github.com/lachiem1/habitflow/internal/calendar"
	"github.com/lachiem1/habitflow/internal/record"
)

// DailyLog is a single day's journal entry. Date is the YYYY-MM-DD primary
// key; saving is always an upsert for that date.
type DailyLog struct {
	Date         string
	WorkSummary  string
	KeyLearnings []string
	IssuesFaced  string
	HoursWorked  float64
}

func (l DailyLog) Key() string { return l.Date }

// Validate rejects a log before any persistence attempt. The date is the
// only required field.
func (l DailyLog) Validate() error {
	if strings.TrimSpace(l.Date) == "" {
		return &record.ValidationError{Field: "date", Reason: "required"}
	}
	if !calendar.ValidISO(l.Date) {
		return &record.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// Normalized clamps negative hours and drops blank learning lines.
func (l DailyLog) Normalized() DailyLog {
	if l.HoursWorked < 0 {
		l.HoursWorked = 0
	}
	l.KeyLearnings = SplitLearnings(JoinLearnings(l.KeyLearnings))
	return l
}

// SplitLearnings turns editor text into the ordered learning list, dropping
// blank lines.
func SplitLearnings(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// JoinLearnings renders the learning list back into editor text.
func JoinLearnings(lines []string) string {
	return strings.Join(lines, "\n")
}

// FirstLine returns the first non-empty summary line for list views.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "No summary"
}
