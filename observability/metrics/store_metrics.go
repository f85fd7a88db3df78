// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

// StoreMetrics wraps a Collector with the counters and histograms the
// store package emits for each backend operation.
type StoreMetrics struct {
	collector Collector
}

// NewStoreMetrics creates pre-defined metrics for store backend monitoring.
func NewStoreMetrics(collector Collector) *StoreMetrics {
	return &StoreMetrics{collector: collector}
}

// RecordOperation records a completed backend operation.
func (m *StoreMetrics) RecordOperation(namespace, operation string, durationSec float64) {
	labels := NewLabels("namespace", namespace, "operation", operation)
	m.collector.IncrementCounter("kvx_store_operations_total", labels)
	m.collector.ObserveHistogram("kvx_store_operation_duration_seconds", durationSec, labels)
}

// RecordError records a failed backend operation.
func (m *StoreMetrics) RecordError(namespace, operation, code string) {
	m.collector.IncrementCounter("kvx_store_operation_errors_total", NewLabels(
		"namespace", namespace,
		"operation", operation,
		"code", code,
	))
}

// SetBackendUp reports whether the configured backend is reachable.
func (m *StoreMetrics) SetBackendUp(namespace string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	m.collector.SetGauge("kvx_store_backend_up", value, NewLabels("namespace", namespace))
}

// QueueMetrics wraps a Collector with the counters and gauges the queue
// package emits for scheduling, claiming, and cleanup.
type QueueMetrics struct {
	collector Collector
}

// NewQueueMetrics creates pre-defined metrics for queue monitoring.
func NewQueueMetrics(collector Collector) *QueueMetrics {
	return &QueueMetrics{collector: collector}
}

// RecordScheduled records a task entering the pending scope.
func (m *QueueMetrics) RecordScheduled() {
	m.collector.IncrementCounter("kvx_queue_scheduled_total", NoLabels())
}

// RecordClaimed records a task moving from pending to running.
func (m *QueueMetrics) RecordClaimed() {
	m.collector.IncrementCounter("kvx_queue_claimed_total", NoLabels())
}

// RecordFinished records a task moving from running to finished.
func (m *QueueMetrics) RecordFinished() {
	m.collector.IncrementCounter("kvx_queue_finished_total", NoLabels())
}

// SetPendingDepth reports the current number of pending tasks.
func (m *QueueMetrics) SetPendingDepth(depth int) {
	m.collector.SetGauge("kvx_queue_pending_depth", float64(depth), NoLabels())
}
