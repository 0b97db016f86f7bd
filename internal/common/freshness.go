package common

import "time"

// Freshness TTLs for cached pricing data
const (
	FreshnessLivePrice  = 60 * time.Second
	FreshnessInstrument = 6 * time.Hour // stock_data rows older than this are refreshed
	FreshnessNAVFile    = 1 * time.Hour
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, ttl, time.Now())
}

// IsFreshAt reports freshness against an explicit clock.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
