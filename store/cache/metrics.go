package cache

import (
	"sync"
	"time"
)

// Metrics tracks running cache counters. Counters are monotonically
// increasing and reset only by an explicit Reset call. The struct is shared
// across concurrent goroutines and therefore mutex-guarded.
type Metrics struct {
	mu sync.Mutex

	hits    int64
	misses  int64
	sets    int64
	deletes int64
	errors  int64

	totalResponseTime time.Duration
	operations        int64
}

// MetricsSnapshot is a point-in-time copy of the cache metrics.
type MetricsSnapshot struct {
	Hits                int64         `json:"hits"`
	Misses              int64         `json:"misses"`
	Sets                int64         `json:"sets"`
	Deletes             int64         `json:"deletes"`
	Errors              int64         `json:"errors"`
	HitRate             float64       `json:"hit_rate"`
	TotalResponseTime   time.Duration `json:"total_response_time_ns"`
	AverageResponseTime time.Duration `json:"average_response_time_ns"`
}

// NewMetrics creates a zeroed metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordHit records a cache hit and its latency.
func (m *Metrics) RecordHit(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
	m.recordLatencyLocked(d)
}

// RecordMiss records a cache miss and its latency.
func (m *Metrics) RecordMiss(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
	m.recordLatencyLocked(d)
}

// RecordSet records a cache write and its latency.
func (m *Metrics) RecordSet(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.recordLatencyLocked(d)
}

// RecordDelete records a cache delete and its latency.
func (m *Metrics) RecordDelete(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.recordLatencyLocked(d)
}

// RecordError records a backend error.
func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// recordLatencyLocked folds a latency sample into the running mean.
// Caller must hold m.mu.
func (m *Metrics) recordLatencyLocked(d time.Duration) {
	m.operations++
	m.totalResponseTime += d
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := MetricsSnapshot{
		Hits:              m.hits,
		Misses:            m.misses,
		Sets:              m.sets,
		Deletes:           m.deletes,
		Errors:            m.errors,
		TotalResponseTime: m.totalResponseTime,
	}
	if lookups := m.hits + m.misses; lookups > 0 {
		snapshot.HitRate = float64(m.hits) / float64(lookups)
	}
	if m.operations > 0 {
		snapshot.AverageResponseTime = m.totalResponseTime / time.Duration(m.operations)
	}
	return snapshot
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits = 0
	m.misses = 0
	m.sets = 0
	m.deletes = 0
	m.errors = 0
	m.totalResponseTime = 0
	m.operations = 0
}
