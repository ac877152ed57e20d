package index

import (
	"fmt"
	"strconv"
	"time"
)

// Timestamps are stored as the decimal count of 100 ns ticks since
// 0001-01-01T00:00:00Z, which is also the zero time.Time.
const (
	tickDuration = 100 * time.Nanosecond
	// seconds between 0001-01-01 and the Unix epoch
	unixToTicksSeconds = 62135596800
	ticksPerSecond     = int64(time.Second / tickDuration)
)

// SerializeTimestamp renders t as ticks. Sub-tick precision is dropped.
func SerializeTimestamp(t time.Time) string {
	t = t.UTC()
	ticks := (t.Unix()+unixToTicksSeconds)*ticksPerSecond + int64(t.Nanosecond())/int64(tickDuration)
	return strconv.FormatInt(ticks, 10)
}

// DeserializeTimestamp parses a tick count produced by SerializeTimestamp.
func DeserializeTimestamp(s string) (time.Time, error) {
	ticks, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	if ticks < 0 {
		return time.Time{}, fmt.Errorf("bad timestamp %q: negative", s)
	}
	sec := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	return time.Unix(sec-unixToTicksSeconds, rem*int64(tickDuration)).UTC(), nil
}

// TruncateToTick drops precision the index cannot store.
func TruncateToTick(t time.Time) time.Time {
	return t.Truncate(tickDuration)
}
