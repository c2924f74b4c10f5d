// Package wintime converts Windows FILETIME values, counts of 100 ns ticks
// since 1601-01-01T00:00:00Z, to and from time.Time.
package wintime

import (
	"math"
	"time"
)

// epochDelta is the number of seconds between 1601-01-01 and 1970-01-01.
const epochDelta = 11644473600

const (
	ticksPerSecond = 10_000_000
	ticksPerMicro  = 10
)

// Epoch is the zero FILETIME.
var Epoch = time.Date(1601, time.January, 1, 0, 0, 0, 0, time.UTC)

// Convert returns the UTC instant for a FILETIME, truncated to microseconds.
// Every uint64 value maps to a valid time; the largest lands in year 60056.
func Convert(ticks uint64) time.Time {
	micros := ticks / ticksPerMicro
	secs := int64(micros / 1_000_000)
	nsec := int64(micros%1_000_000) * 1000
	return time.Unix(secs-epochDelta, nsec).UTC()
}

// Ticks returns the FILETIME for t. Times before Epoch map to 0 and times past
// the representable range saturate at math.MaxUint64.
func Ticks(t time.Time) uint64 {
	if t.Before(Epoch) {
		return 0
	}
	secs := uint64(t.Unix() + epochDelta)
	if secs > math.MaxUint64/ticksPerSecond {
		return math.MaxUint64
	}
	whole := secs * ticksPerSecond
	frac := uint64(t.Nanosecond() / 100)
	if whole > math.MaxUint64-frac {
		return math.MaxUint64
	}
	return whole + frac
}

// FromUnix converts seconds since 1970, as stored by InstallDate style
// registry values, to a UTC time.
func FromUnix(secs uint32) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}
