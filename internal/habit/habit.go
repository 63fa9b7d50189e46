// Package habit holds the habit model and the analytics derived from its
// sparse completion record: streaks, the 28-day intensity window, month-grid
// projections, and progress percentages. Everything here is recomputed from
// source events; nothing derived is ever the source of truth.
package habit

import (
	"strings"
	"time"

	"github.com/lachiem1/habitflow/internal/record"
)

const (
	// WindowWidth is the length of the rolling intensity window. Index 0 is
	// today, index i is i days ago.
	WindowWidth = 28

	// IntensityCap is the display ceiling for a single day's completion count.
	IntensityCap = 4

	// LookbackDays bounds streak scans over the completion set.
	LookbackDays = 365
)

// Frequency classifies how often a habit is meant to recur. It does not
// alter streak math.
type Frequency string

const (
	Daily   Frequency = "Daily"
	Weekly  Frequency = "Weekly"
	Monthly Frequency = "Monthly"
)

// MarkMode selects the completion-mutation semantics. Toggle matches the
// server's complete endpoint and is the default; increment is an explicit
// opt-in with no un-mark.
type MarkMode int

const (
	MarkToggle MarkMode = iota
	MarkIncrement
)

// Habit is a recurring habit with its completion ledger. Derived metrics are
// computed on demand via Analyze, never stored here.
type Habit struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	TimesPerDay int
	Frequency   Frequency
	Completions *Ledger
}

func (h Habit) Key() string { return h.ID }

func (h Habit) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return &record.ValidationError{Field: "id", Reason: "required"}
	}
	if strings.TrimSpace(h.Name) == "" {
		return &record.ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}

// Target returns the daily completion target, clamped to a minimum of 1 so
// metric computation stays total even for malformed records.
func (h Habit) Target() int {
	if h.TimesPerDay < 1 {
		return 1
	}
	return h.TimesPerDay
}

// Normalized fills defaults for fields a remote payload may omit.
func (h Habit) Normalized() Habit {
	if strings.TrimSpace(h.Name) == "" {
		h.Name = "Untitled"
	}
	if h.TimesPerDay < 1 {
		h.TimesPerDay = 1
	}
	switch h.Frequency {
	case Daily, Weekly, Monthly:
	default:
		h.Frequency = Daily
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if h.Completions == nil {
		h.Completions = NewLedger()
	}
	return h
}
