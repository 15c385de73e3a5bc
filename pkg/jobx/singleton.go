package jobx

import (
	"math"
	"time"
)

// SingletonBucket returns the start of the dedup window containing now:
// window * floor((unix(now) + offset) / window) seconds after the epoch.
// A non-positive window means no bucket.
func SingletonBucket(now time.Time, windowSeconds, offsetSeconds int) *time.Time {
	if windowSeconds <= 0 {
		return nil
	}
	w := float64(windowSeconds)
	epoch := float64(now.UnixNano())/float64(time.Second) + float64(offsetSeconds)
	start := w * math.Floor(epoch/w)
	t := time.Unix(int64(start), 0).UTC()
	return &t
}
