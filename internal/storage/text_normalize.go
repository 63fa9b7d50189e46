package storage

import "strings"

// normalizeHabitName collapses internal whitespace and lowercases so that
// "Morning  Run" and "morning run" count as the same habit name.
func normalizeHabitName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
