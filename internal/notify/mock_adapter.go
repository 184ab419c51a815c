package notify

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter implements Adapter for testing. It records sent events and
// can be made to fail on demand.
type MockAdapter struct {
	mu     sync.Mutex
	sent   []Event
	closed bool
	fail   error
}

// NewMockAdapter creates a MockAdapter.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// FailWith makes subsequent Send calls return err.
func (m *MockAdapter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Send records the event.
func (m *MockAdapter) Send(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: closed")
	}
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, ev)
	return nil
}

// Close marks the adapter closed.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns a copy of all recorded events.
func (m *MockAdapter) Sent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.sent))
	copy(out, m.sent)
	return out
}
