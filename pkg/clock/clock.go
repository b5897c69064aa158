package clock

import "time"

// Clock supplies the current time in the business reference timezone.
// All auction window comparisons go through a Clock so tests can pin time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock and normalizes it to a fixed location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a SystemClock pinned to the given location.
func NewSystemClock(loc *time.Location) *SystemClock {
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// FixedClock always returns the same instant. Test use only.
type FixedClock struct {
	Instant time.Time
}

func (c *FixedClock) Now() time.Time {
	return c.Instant
}
