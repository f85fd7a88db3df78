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

package health

import (
	"context"
	"time"
)

// Pinger is the minimal surface a store health check needs: a call that
// reaches the backend and fails if it is unreachable. store.Backend's
// IsEmpty satisfies this without requiring a dedicated ping method.
type Pinger interface {
	IsEmpty(ctx context.Context) (bool, error)
}

// StoreHealthCheck reports whether the configured backend is reachable.
type StoreHealthCheck struct {
	backend Pinger
}

// NewStoreHealthCheck creates a health check that probes backend by
// calling IsEmpty, which every Backend implementation can answer without
// touching any particular key.
func NewStoreHealthCheck(backend Pinger) *StoreHealthCheck {
	return &StoreHealthCheck{backend: backend}
}

// Name returns the check name.
func (c *StoreHealthCheck) Name() string { return "store" }

// Check implements Checker.
func (c *StoreHealthCheck) Check(ctx context.Context) CheckResult {
	start := time.Now()
	_, err := c.backend.IsEmpty(ctx)
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return CheckResult{Name: c.Name(), Status: StatusUnhealthy, Message: err.Error()}.
			WithDetail("latency_ms", latencyMs)
	}
	return CheckResult{Name: c.Name(), Status: StatusHealthy}.
		WithDetail("latency_ms", latencyMs)
}
