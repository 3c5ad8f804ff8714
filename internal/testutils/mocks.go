package testutils

import (
	"context"
	"sync"
	"time"

	"rtc-api/internal/payment"
)

// MockClock advances instantly on Sleep and records every dwell it was asked
// to wait for.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	sleeps  []time.Duration
}

func NewMockClock(start time.Time) *MockClock {
	return &MockClock{current: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *MockClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.current = c.current.Add(d)
	return nil
}

func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// MockRand returns fixed values.
type MockRand struct {
	ValInt   int
	ValFloat float64
}

func (r *MockRand) Intn(int) int     { return r.ValInt }
func (r *MockRand) Float64() float64 { return r.ValFloat }

// NotificationSink collects notifications emitted by an engine or session.
type NotificationSink struct {
	mu    sync.Mutex
	items []payment.Notification
}

func (s *NotificationSink) Emit(n payment.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
}

func (s *NotificationSink) Items() []payment.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]payment.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *NotificationSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Last returns the most recent notification, or a zero value if none.
func (s *NotificationSink) Last() payment.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return payment.Notification{}
	}
	return s.items[len(s.items)-1]
}

// HasType reports whether any collected notification has the given type.
func (s *NotificationSink) HasType(t string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.Type == t {
			return true
		}
	}
	return false
}
