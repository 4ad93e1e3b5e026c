package serialio

import (
	"sync"
	"time"
)

// MockPort is a scripted Port for tests. Reads pop queued replies in
// order; a nil entry simulates a read timeout. When Responder is set it is
// called on every Write and its return values are queued as replies,
// which lets a test act like a device answering per command.
type MockPort struct {
	mu        sync.Mutex
	replies   [][]byte
	Writes    [][]byte
	Bauds     []int // every rate passed to SetBaudRate, in order
	Flushes   int
	Closed    bool
	Responder func(written []byte) [][]byte
}

func NewMockPort(replies ...[]byte) *MockPort {
	return &MockPort{replies: replies}
}

// Enqueue appends a scripted reply. nil means "time out once".
func (m *MockPort) Enqueue(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, b)
}

func (m *MockPort) Write(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	m.Writes = append(m.Writes, cp)
	if m.Responder != nil {
		m.replies = append(m.replies, m.Responder(cp)...)
	}
	return nil
}

func (m *MockPort) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	if len(m.replies) == 0 {
		m.mu.Unlock()
		// Nothing scripted: behave like an idle line.
		time.Sleep(timeout)
		return nil, nil
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	if next == nil {
		time.Sleep(timeout)
		return nil, nil
	}
	if len(next) > maxBytes {
		m.mu.Lock()
		m.replies = append([][]byte{next[maxBytes:]}, m.replies...)
		m.mu.Unlock()
		next = next[:maxBytes]
	}
	return next, nil
}

func (m *MockPort) SetBaudRate(rate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bauds = append(m.Bauds, rate)
	return nil
}

func (m *MockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
