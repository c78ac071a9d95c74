package monitor

import (
	"errors"
	"time"
)

const (
	// the server samples realtime power roughly every 2 minutes; the extra
	// 5 seconds absorbs clock skew between us and the meter
	realtimeSampleInterval = 2*time.Minute + 5*time.Second

	dailyInterval      = time.Minute
	priceInterval      = time.Hour
	weatherInterval    = 30 * time.Minute
	timeSeriesInterval = 30 * time.Second

	retryDelay      = 10 * time.Second
	priceRetryDelay = 30 * time.Second
	noSiteDelay     = 10 * time.Second
)

// realtimeDelay targets the instant the next server sample should exist. A
// target already in the past falls back to a fixed delay instead of
// hot-looping.
func realtimeDelay(sampleTime, now time.Time) time.Duration {
	d := sampleTime.Add(realtimeSampleInterval).Sub(now)
	if d <= 0 {
		return retryDelay
	}
	return d
}

// fixedDelay builds the delay function for loops on a constant cadence.
func fixedDelay[T any](interval, onError time.Duration) func(r Result[T]) time.Duration {
	return func(r Result[T]) time.Duration {
		if r.OK() {
			return interval
		}
		if errors.Is(r.Err, ErrSiteNotSelected) {
			return noSiteDelay
		}
		return onError
	}
}
