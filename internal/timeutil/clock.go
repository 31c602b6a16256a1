// Package timeutil provides a testable abstraction over wall-clock time and
// the timestamp layouts used in output naming and chirp headers.
package timeutil

import (
	"sync"
	"time"
)

// Layouts used for run directories and channel file names.
const (
	RunDirLayout    = "20060102150405"
	FileStampLayout = "20060102_150405"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// SecondsToDuration converts fractional seconds to a Duration, rounding to the
// nearest nanosecond.
func SecondsToDuration(s float64) time.Duration {
	return time.Duration(s*float64(time.Second) + 0.5)
}

// TimeOfDay splits t into hour, minute, second and millisecond fields.
func TimeOfDay(t time.Time) (hour, minute, second, millisecond int) {
	return t.Hour(), t.Minute(), t.Second(), t.Nanosecond() / int(time.Millisecond)
}
