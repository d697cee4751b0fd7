// Package clock is the authoritative source of "now" in the operating time
// zone. Every civil-time comparison (deadlines, operating day boundaries)
// goes through it; periodic timers keep using monotonic elapsed time.
package clock

import (
	"fmt"
	"time"
)

// Clock yields the current instant in the operating zone
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// SystemClock is the wall clock pinned to a fixed civil zone
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock loads the operating zone, e.g. "Asia/Tokyo"
func NewSystemClock(zone string) (*SystemClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load operating timezone %q: %w", zone, err)
	}
	return &SystemClock{loc: loc}, nil
}

// Now returns the current instant in the operating zone
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the operating zone
func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// OperatingDay truncates an instant to its civil date in the instant's own
// location. A race whose deadline falls before local midnight belongs to
// that local day.
func OperatingDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameOperatingDay reports whether two instants share a civil date
func SameOperatingDay(a, b time.Time) bool {
	return OperatingDay(a).Equal(OperatingDay(b.In(a.Location())))
}

// FixedClock is a frozen clock for tests
type FixedClock struct {
	Instant time.Time
}

// Now returns the frozen instant
func (c *FixedClock) Now() time.Time { return c.Instant }

// Location returns the frozen instant's location
func (c *FixedClock) Location() *time.Location { return c.Instant.Location() }

// Advance moves the frozen instant forward
func (c *FixedClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }
