// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mind

import (
	"sync"
	"time"
)

// Standard structured-log field keys used by the client and the tool layer.
const (
	KeyOperation  = "operation"
	KeyAttempts   = "attempts"
	KeyStatusCode = "status_code"
	KeyDurationMS = "duration_ms"
)

// Metrics is a point-in-time snapshot of client activity.
type Metrics struct {
	// RequestsByOperation counts completed calls per operation.
	RequestsByOperation map[string]int64

	// RetriesByOperation counts re-attempts (attempts beyond the first).
	RetriesByOperation map[string]int64

	// FailuresByStatus counts failed calls per operation and final status.
	// Status 0 groups transport-level failures.
	FailuresByStatus map[string]map[int]int64

	// TotalDuration accumulates wall time per operation.
	TotalDuration map[string]time.Duration

	// LastEventTime is when the collector last recorded a call.
	LastEventTime time.Time
}

// MetricsCollector tracks client activity for the status surfaces.
// A nil collector is valid and records nothing.
type MetricsCollector struct {
	mu      sync.Mutex
	metrics Metrics
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: Metrics{
			RequestsByOperation: make(map[string]int64),
			RetriesByOperation:  make(map[string]int64),
			FailuresByStatus:    make(map[string]map[int]int64),
			TotalDuration:       make(map[string]time.Duration),
		},
	}
}

// Record registers one completed call (success or final failure).
func (m *MetricsCollector) Record(op string, attempts, statusCode int, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.LastEventTime = time.Now()
	m.metrics.RequestsByOperation[op]++
	if attempts > 1 {
		m.metrics.RetriesByOperation[op] += int64(attempts - 1)
	}
	m.metrics.TotalDuration[op] += duration

	if !success {
		if m.metrics.FailuresByStatus[op] == nil {
			m.metrics.FailuresByStatus[op] = make(map[int]int64)
		}
		m.metrics.FailuresByStatus[op][statusCode]++
	}
}

// Snapshot returns a deep copy of the current metrics.
func (m *MetricsCollector) Snapshot() Metrics {
	if m == nil {
		return Metrics{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Metrics{
		RequestsByOperation: make(map[string]int64, len(m.metrics.RequestsByOperation)),
		RetriesByOperation:  make(map[string]int64, len(m.metrics.RetriesByOperation)),
		FailuresByStatus:    make(map[string]map[int]int64, len(m.metrics.FailuresByStatus)),
		TotalDuration:       make(map[string]time.Duration, len(m.metrics.TotalDuration)),
		LastEventTime:       m.metrics.LastEventTime,
	}
	for k, v := range m.metrics.RequestsByOperation {
		snap.RequestsByOperation[k] = v
	}
	for k, v := range m.metrics.RetriesByOperation {
		snap.RetriesByOperation[k] = v
	}
	for op, byStatus := range m.metrics.FailuresByStatus {
		copied := make(map[int]int64, len(byStatus))
		for status, n := range byStatus {
			copied[status] = n
		}
		snap.FailuresByStatus[op] = copied
	}
	for k, v := range m.metrics.TotalDuration {
		snap.TotalDuration[k] = v
	}
	return snap
}
