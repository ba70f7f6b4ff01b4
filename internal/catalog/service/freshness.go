package service

import "time"

// ShouldRefresh reports whether a sync is due. A zero lastSync, a
// non-positive ttl or forced always refresh.
func ShouldRefresh(now, lastSync time.Time, ttl time.Duration, forced bool) bool {
	if forced || lastSync.IsZero() || ttl <= 0 {
		return true
	}
	return now.Sub(lastSync) >= ttl
}
