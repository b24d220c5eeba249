// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/nubra-ai/nubra-chat/internal/completion"
)

// MockCompletion is a deterministic completion.Client for tests. It matches
// outbound messages against registered patterns and returns the paired
// response; queued scripted responses take precedence over patterns.
//
// Safe for concurrent use.
type MockCompletion struct {
	mu       sync.Mutex
	rules    []mockRule
	queue    []scripted
	fallback string
	calls    []string
}

type mockRule struct {
	pattern  string // substring match, case-insensitive
	response string
}

type scripted struct {
	response string
	err      error
}

var _ completion.Client = (*MockCompletion)(nil)

// NewMockCompletion creates a mock with the given fallback response,
// returned when nothing is queued and no pattern matches.
func NewMockCompletion(fallback string) *MockCompletion {
	return &MockCompletion{fallback: fallback}
}

// AddResponse registers a pattern-response pair. First match wins.
func (m *MockCompletion) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// Queue appends a scripted response consumed before pattern matching.
func (m *MockCompletion) Queue(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scripted{response: response})
}

// QueueError appends a scripted failure.
func (m *MockCompletion) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, scripted{err: err})
}

// Complete implements completion.Client.
func (m *MockCompletion) Complete(_ context.Context, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, message)

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next.response, next.err
	}

	lower := strings.ToLower(message)
	for _, rule := range m.rules {
		if strings.Contains(lower, rule.pattern) {
			return rule.response, nil
		}
	}
	return m.fallback, nil
}

// Calls returns a copy of every outbound message received.
func (m *MockCompletion) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns the number of Complete invocations.
func (m *MockCompletion) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
