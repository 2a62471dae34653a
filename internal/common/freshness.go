// Package common provides shared utilities for tickerboard
package common

import "time"

// DefaultDatasetTTL is the lifetime of a cached warehouse dataset.
const DefaultDatasetTTL = 30000 * time.Second

// IsFresh returns true if updated is non-zero and its age at now does not exceed ttl.
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) <= ttl
}
