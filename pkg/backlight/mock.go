package backlight

import "sync"

// Mock is an in-memory Device. It records every successful write and can be
// told to fail upcoming writes.
type Mock struct {
	mu      sync.Mutex
	current int
	max     int
	writes  []int
	// failures holds errors returned by the next calls to Set, in order.
	// A nil entry lets that write succeed.
	failures []error
	onSet    func(n int)
}

var _ Device = &Mock{}

// NewMock returns a Mock reporting current and max.
func NewMock(current, max int) *Mock {
	return &Mock{current: current, max: max}
}

// Current returns the last written (or initial) value.
func (m *Mock) Current() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, nil
}

// Max returns the configured maximum.
func (m *Mock) Max() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.max, nil
}

// Set records value unless a failure was queued.
func (m *Mock) Set(value int) error {
	m.mu.Lock()
	var err error
	if len(m.failures) > 0 {
		err = m.failures[0]
		m.failures = m.failures[1:]
	}
	if err == nil {
		m.current = Clamp(value, m.max)
		m.writes = append(m.writes, m.current)
	}
	n := len(m.writes)
	hook := m.onSet
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return err
}

// FailNext queues errors for the next writes.
func (m *Mock) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// OnSet registers a hook called after every Set with the number of
// successful writes so far.
func (m *Mock) OnSet(fn func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSet = fn
}

// Writes returns a copy of all successfully written values.
func (m *Mock) Writes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.writes))
	copy(out, m.writes)
	return out
}
