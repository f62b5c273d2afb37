// Package clock supplies response timestamps.
package clock

import (
	"sync"
	"time"
)

// ISO8601Layout renders second precision with a numeric offset ("+00:00" for UTC).
const ISO8601Layout = "2006-01-02T15:04:05-07:00"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// ISO8601 formats t for response envelopes.
func ISO8601(t time.Time) string {
	return t.Format(ISO8601Layout)
}

// System is a wall clock pinned to a location. Successive Now calls never go
// backwards, even if the host clock is stepped back.
// It is safe for concurrent use.
type System struct {
	loc *time.Location
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewSystem returns a System clock in loc. A nil loc means UTC.
func NewSystem(loc *time.Location) *System {
	return newSystem(loc, time.Now)
}

func newSystem(loc *time.Location, now func() time.Time) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc, now: now}
}

func (c *System) Now() time.Time {
	t := c.now().In(c.loc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}

// Location reports the location timestamps are rendered in.
func (c *System) Location() *time.Location {
	return c.loc
}

// Manual is a controllable clock for tests.
// It is safe for concurrent use.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (c *Manual) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *Manual) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *Manual) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
