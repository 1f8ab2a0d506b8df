// Package sink provides destinations for the current favicon value.
package sink

import "sync"

// Sink receives the icon the host should display: either a data URI holding
// a composited badge, or the plain icon source. Writes are last-writer-wins.
// SetIcon is called with the blink controller's lock held and must not block.
type Sink interface {
	SetIcon(icon string)
}

// Func adapts a function to the Sink interface.
type Func func(icon string)

// SetIcon calls f(icon).
func (f Func) SetIcon(icon string) {
	f(icon)
}

// Multi fans a write out to every sink in order.
type Multi []Sink

// SetIcon writes icon to each sink.
func (m Multi) SetIcon(icon string) {
	for _, s := range m {
		s.SetIcon(icon)
	}
}

// Memory is a Sink that keeps the current value and every write.
type Memory struct {
	mu      sync.RWMutex
	current string
	history []string
}

// NewMemory creates an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// SetIcon records icon as the current value.
func (m *Memory) SetIcon(icon string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = icon
	m.history = append(m.history, icon)
}

// Current returns the last value written.
func (m *Memory) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns a copy of every value written, oldest first.
func (m *Memory) History() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// Writes returns the number of values written.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}
