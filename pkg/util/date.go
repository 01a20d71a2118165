package util

import (
	"strconv"
	"time"
)

// MsToTime converts epoch milliseconds to a UTC time.
func MsToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// TimeToMs converts t to epoch milliseconds.
func TimeToMs(t time.Time) int64 {
	return t.UnixMilli()
}

// NowMs returns the current time in epoch milliseconds.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// ParseEpochMs accepts RFC3339(Nano), epoch milliseconds, or epoch seconds. Integers below
// 1e11 are treated as seconds. Returns (ms, true) if any form worked.
func ParseEpochMs(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli(), true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		if n < 1e11 {
			return n * 1000, true
		}
		return n, true
	}
	return 0, false
}
