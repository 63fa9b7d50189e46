// Package record defines the contract shared by every persistence tier and
// the error taxonomy the sync layer routes on.
package record

// Record is any domain value that can move through a persistence tier.
// Key returns the stable primary key within its collection (habit id, log
// date). Validate runs before any persistence attempt.
type Record interface {
	Key() string
	Validate() error
}
