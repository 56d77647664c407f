package observability

import (
	"sync"
	"time"
)

// Metrics is the counter surface the agents, screens and tools report to.
// Labels are free-form. Exporters decide which keys they keep.
type Metrics interface {
	IncrementRequests(labels map[string]string)
	RecordLatency(duration time.Duration, labels map[string]string)
	IncrementTokensUsed(tokens int, labels map[string]string)
	RecordError(errorType string, labels map[string]string)
	SetActiveAgents(count int)
}

type NoOpMetrics struct{}

func (n *NoOpMetrics) IncrementRequests(labels map[string]string)                     {}
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string)       {}
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string)         {}
func (n *NoOpMetrics) SetActiveAgents(count int)                                      {}

// Counters is an in-memory Metrics. Besides totals it counts requests and
// errors per label value, so callers can ask how often the cloud screen ran
// or how many tool calls failed for check_stock.
type Counters struct {
	mu           sync.Mutex
	requests     int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	byLabel      map[string]int64
	activeAgents int
}

func NewCounters() *Counters {
	return &Counters{errors: map[string]int64{}, byLabel: map[string]int64{}}
}

func labelKey(key, value string) string { return key + "=" + value }

func (m *Counters) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
	for k, v := range labels {
		m.byLabel[labelKey(k, v)]++
	}
}

func (m *Counters) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	m.totalLatency += duration
	m.mu.Unlock()
}

func (m *Counters) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	m.tokensUsed += int64(tokens)
	m.mu.Unlock()
}

func (m *Counters) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	m.errors[errorType]++
	m.mu.Unlock()
}

func (m *Counters) SetActiveAgents(count int) {
	m.mu.Lock()
	m.activeAgents = count
	m.mu.Unlock()
}

func (m *Counters) Requests() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// RequestsWith counts requests that carried label key=value.
func (m *Counters) RequestsWith(key, value string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byLabel[labelKey(key, value)]
}

func (m *Counters) Errors(errorType string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[errorType]
}

func (m *Counters) Tokens() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokensUsed
}

func (m *Counters) ActiveAgents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeAgents
}

var (
	_ Metrics = (*NoOpMetrics)(nil)
	_ Metrics = (*Counters)(nil)
)
