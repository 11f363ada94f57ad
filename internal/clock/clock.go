// Package clock issues strictly increasing ISO-8601 timestamps for one agent.
package clock

import (
	"sync"
	"time"

	"github.com/starford/othala/internal/models"
)

// Clock is a monotonic timestamp source. The zero value is not usable; use New.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// New returns a Clock backed by time.Now.
func New() *Clock {
	return &Clock{now: time.Now}
}

// NewWithSource returns a Clock reading wall time from now.
func NewWithSource(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns a timestamp strictly later than every value previously returned by c.
func (c *Clock) Now() models.Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return models.NewTimestamp(t)
}
