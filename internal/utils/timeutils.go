package utils

import "time"

// Capture tooling reports interaction and trace timestamps as epoch
// milliseconds; these helpers are the one place that convention is
// converted to and from time.Time.

// NowMs returns the current time as epoch milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// ToEpochMs converts a time to epoch milliseconds; the zero time maps to 0.
func ToEpochMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromEpochMs converts epoch milliseconds to a UTC time; 0 maps to the zero
// time.
func FromEpochMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// AbsGapMs is the absolute difference between two epoch-millisecond stamps.
func AbsGapMs(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
