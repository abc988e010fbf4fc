package submission

import "errors"

// ErrNotFound is returned by repository lookups that match no record.
var ErrNotFound = errors.New("submission not found")

// Repository defines persistence for submission records. Implementations
// must be safe for concurrent use and must return defensive copies.
type Repository interface {
	// Get returns the record for the exact anchor key, or ErrNotFound.
	Get(key Key) (*Record, error)
	// Put upserts the record under key (full replace) and schedules a
	// durable write.
	Put(key Key, rec *Record) error
	// Remove deletes the record, reporting whether it existed. Not used
	// in the main flow; records normally stay as an audit trail.
	Remove(key Key) bool
	// CountPending returns the number of records still awaiting a
	// decision.
	CountPending() int
	// FindByBatchMember is the fallback lookup for reviewers replying to
	// a non-first item of a batch: it scans batch membership sets for
	// messageID within reviewGroupID.
	FindByBatchMember(reviewGroupID int64, messageID int) (Key, *Record, error)
	// Flush synchronously writes the current snapshot. Mandatory at
	// process shutdown.
	Flush() error
}
