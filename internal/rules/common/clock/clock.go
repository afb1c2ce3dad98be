package clock

import "time"

// Clock abstracts time for components that record timestamps, so tests can
// pin the current instant.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed instant, advanced manually by tests.
type MockClock struct {
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}
