package habit

import (
	"encoding/json"
	"time"

	"github.com/lachiem1/habitflow/internal/calendar"
)

// Ledger is a habit's sparse completion record: at most one entry per
// calendar day, keyed by the local-midnight-normalized day, each carrying a
// capped intensity count. A last-completion pointer and streak counters are
// maintained incrementally on insert as a display hint; the analyzer always
// recomputes canonical values from the day set.
type Ledger struct {
	counts map[string]int
	last   time.Time

	cachedCurrent int
	cachedLongest int
}

func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// LedgerFromDays rebuilds a ledger from a stored day→count map. Counts are
// re-capped and the last-completion pointer is recomputed.
func LedgerFromDays(days map[string]int) *Ledger {
	l := NewLedger()
	for iso, count := range days {
		day, err := calendar.ParseISO(iso)
		if err != nil || count <= 0 {
			continue
		}
		l.counts[iso] = capIntensity(count)
		if day.After(l.last) {
			l.last = day
		}
	}
	return l
}

// LedgerFromWindow rebuilds a ledger from the wire intensity window, where
// index 0 is today and index i is i days ago.
func LedgerFromWindow(window []int, today time.Time) *Ledger {
	l := NewLedger()
	base := calendar.Normalize(today)
	for i, count := range window {
		if i >= WindowWidth || count <= 0 {
			continue
		}
		day := base.AddDate(0, 0, -i)
		l.counts[calendar.FormatISO(day)] = capIntensity(count)
		if day.After(l.last) {
			l.last = day
		}
	}
	return l
}

// Toggle inserts day if absent and removes it if present, returning whether
// the day is present afterwards. Inserting updates the incremental streak
// counters the same way the authoritative store does; removing repairs the
// last-completion pointer and leaves canonical streaks to recomputation.
func (l *Ledger) Toggle(day time.Time) bool {
	iso := calendar.FormatISO(calendar.Normalize(day))
	if _, ok := l.counts[iso]; ok {
		delete(l.counts, iso)
		l.repairLast()
		return false
	}

	normalized := calendar.Normalize(day)
	l.counts[iso] = 1
	if !l.last.IsZero() {
		switch diff := calendar.DayDiff(normalized, l.last); {
		case diff == 1:
			l.cachedCurrent++
		case diff > 1:
			l.cachedCurrent = 1
		}
	} else {
		l.cachedCurrent = 1
	}
	if normalized.After(l.last) {
		l.last = normalized
	}
	if l.cachedCurrent > l.cachedLongest {
		l.cachedLongest = l.cachedCurrent
	}
	return true
}

// Increment adds one completion to day, capped at the intensity ceiling.
// There is no un-mark in this mode.
func (l *Ledger) Increment(day time.Time) {
	normalized := calendar.Normalize(day)
	iso := calendar.FormatISO(normalized)
	if count, ok := l.counts[iso]; ok {
		l.counts[iso] = capIntensity(count + 1)
		return
	}
	l.Toggle(normalized)
}

// Mark applies the configured completion-mutation semantics to day.
func (l *Ledger) Mark(day time.Time, mode MarkMode) {
	if mode == MarkIncrement {
		l.Increment(day)
		return
	}
	l.Toggle(day)
}

func (l *Ledger) Contains(day time.Time) bool {
	_, ok := l.counts[calendar.FormatISO(calendar.Normalize(day))]
	return ok
}

// CountOn returns the capped intensity for day, 0 if absent.
func (l *Ledger) CountOn(day time.Time) int {
	return l.counts[calendar.FormatISO(calendar.Normalize(day))]
}

func (l *Ledger) Len() int {
	return len(l.counts)
}

// LastCompleted returns the most recent completed day, if any.
func (l *Ledger) LastCompleted() (time.Time, bool) {
	if l.last.IsZero() {
		return time.Time{}, false
	}
	return l.last, true
}

// Days returns a copy of the day→count map, keyed by ISO date.
func (l *Ledger) Days() map[string]int {
	out := make(map[string]int, len(l.counts))
	for iso, count := range l.counts {
		out[iso] = count
	}
	return out
}

func (l *Ledger) Clone() *Ledger {
	out := LedgerFromDays(l.Days())
	out.cachedCurrent = l.cachedCurrent
	out.cachedLongest = l.cachedLongest
	return out
}

// CachedStreaks returns the incrementally maintained streak counters. They
// are a display hint only; Analyze recomputes canonical values.
func (l *Ledger) CachedStreaks() (current, longest int) {
	return l.cachedCurrent, l.cachedLongest
}

// MarshalJSON encodes the ledger as its day→count map.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Days())
}

// UnmarshalJSON rebuilds the ledger from a day→count map, dropping
// malformed days and re-capping counts.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	days := make(map[string]int)
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	*l = *LedgerFromDays(days)
	return nil
}

func (l *Ledger) repairLast() {
	l.last = time.Time{}
	for iso := range l.counts {
		day, err := calendar.ParseISO(iso)
		if err != nil {
			continue
		}
		if day.After(l.last) {
			l.last = day
		}
	}
}

func capIntensity(count int) int {
	if count > IntensityCap {
		return IntensityCap
	}
	return count
}
