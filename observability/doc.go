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

// Package observability provides monitoring, logging, and health-check
// capabilities for kvx processes.
//
// # Overview
//
// This package ties together the metrics, logging, and health
// subpackages behind a single Manager:
//   - Metrics collection (Prometheus)
//   - Structured logging
//   - Liveness, readiness, and startup probes
//
// # Metrics
//
// Collect and expose metrics for monitoring:
//
//	collector := metrics.NewPrometheusCollector()
//	storeMetrics := metrics.NewStoreMetrics(collector)
//
//	// Record a store operation
//	storeMetrics.RecordOperation("default", "get", 0.002)
//
//	// Expose metrics
//	http.Handle("/metrics", collector.Handler())
//
// # Logging
//
// Structured logging with context propagation:
//
//	logger := logging.NewStructuredLogger(logging.LevelInfo)
//
//	ctx := logging.WithRequestID(ctx, "req-123")
//	logger.Info(ctx, "request handled",
//	    logging.String("instance_id", "kvxctl-serve"),
//	    logging.Int("duration_ms", 42),
//	)
//
// # Health Checks
//
// Liveness, readiness, and startup probes:
//
//	liveness := health.NewLivenessChecker()
//	startup := health.NewStartupChecker()
//	readiness := health.NewReadinessChecker(startup,
//	    health.NewStoreHealthCheck(backend),
//	)
//
//	http.Handle("/health/live", health.Handler(liveness))
//	http.Handle("/health/ready", health.Handler(readiness))
//
// # Manager
//
// Manager wires the above together for a running process:
//
//	manager, err := observability.NewManager(&observability.ManagerConfig{
//	    InstanceID:   "kvxctl-serve",
//	    Config:       observability.DefaultConfig(),
//	    StoreChecker: health.NewStoreHealthCheck(backend),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Shutdown(context.Background())
//
//	http.ListenAndServe(":9090", manager.HTTPHandler())
package observability
