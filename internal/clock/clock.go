package clock

import "time"

// Clock is the time source for charge scheduling and event timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Unix returns the clock's current time in whole seconds.
func Unix(c Clock) int64 {
	return c.Now().Unix()
}
