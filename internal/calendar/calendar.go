// Package calendar provides the day-bucketing primitives shared by the habit
// analytics and the journal: local-midnight normalization, signed day
// differences, month lengths, and ISO date formatting.
package calendar

import (
	"fmt"
	"time"
)

const isoLayout = "2006-01-02"

// Normalize truncates a timestamp to local midnight. Two timestamps on the
// same calendar day normalize to equal values.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayDiff returns the signed number of calendar days a - b. Both inputs are
// normalized first and the difference is computed on reconstructed UTC dates,
// so daylight-savings transitions cannot skew the count.
func DayDiff(a, b time.Time) int {
	an := Normalize(a)
	bn := Normalize(b)
	au := time.Date(an.Year(), an.Month(), an.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(bn.Year(), bn.Month(), bn.Day(), 0, 0, 0, 0, time.UTC)
	return int(au.Sub(bu) / (24 * time.Hour))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

// FormatISO renders a timestamp's calendar day as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format(isoLayout)
}

// ParseISO parses a YYYY-MM-DD string into a local-midnight timestamp.
func ParseISO(s string) (time.Time, error) {
	t, err := time.ParseInLocation(isoLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ISO date %q: %w", s, err)
	}
	return t, nil
}

// ValidISO reports whether s is a well-formed YYYY-MM-DD date.
func ValidISO(s string) bool {
	_, err := time.Parse(isoLayout, s)
	return err == nil
}
