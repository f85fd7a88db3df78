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

package store

import (
	"context"

	"github.com/google/uuid"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/internal/resilience"
	"github.com/NLnetLabs/kvx/observability/logging"
	"github.com/NLnetLabs/kvx/observability/metrics"
)

// Logger and Collector are package-level hooks a caller may set once at
// startup so Transaction/Execute emit structured logs and metrics
// without every call site threading them through explicitly. A nil
// Logger falls back to an info-level StructuredLogger; a nil Collector
// means no metrics are recorded.
var (
	Logger    logging.Logger
	Collector metrics.Collector
)

func log() logging.Logger {
	if Logger == nil {
		return logging.NewStructuredLogger(logging.LevelInfo)
	}
	return Logger
}

// isRetriable reports whether err represents a serialization conflict
// that Transaction/Execute should retry rather than propagate.
func isRetriable(err error) bool {
	return kverrors.Is(err, kverrors.ErrSerializationConflict)
}

// Transaction runs fn against backend under scope's transactional
// isolation, retrying indefinitely while fn fails with a serialization
// conflict and propagating any other error, including a user error from
// the closure itself, immediately.
func Transaction(ctx context.Context, backend Backend, scope kv.Scope, fn TransactionFunc) error {
	txID := uuid.NewString()
	logger := log().With(logging.String("tx_id", txID), logging.Scope("scope", scope))

	attempts := 0
	retryCfg := resilience.UnboundedRetryConfig(isRetriable)
	retryCfg.OnRetry = func(attempt int, err error) {
		attempts = attempt
		logger.Warn(ctx, "transaction retrying after serialization conflict", logging.Int("attempt", attempt))
		if Collector != nil {
			Collector.IncrementCounter("kvx_store_tx_retries_total", metrics.NoLabels().WithScope(scope))
		}
	}

	err := resilience.Retry(ctx, retryCfg, func(ctx context.Context) error {
		return backend.TransactionIn(ctx, scope, fn)
	})

	if err != nil {
		logger.Error(ctx, "transaction failed", logging.Error(err), logging.Int("attempts", attempts+1))
		if Collector != nil {
			Collector.IncrementCounter("kvx_store_tx_failures_total", metrics.NoLabels().WithScope(scope))
		}
		return err
	}

	if Collector != nil {
		Collector.IncrementCounter("kvx_store_tx_commits_total", metrics.NoLabels().WithScope(scope))
	}
	return nil
}

// Execute is Transaction for closures that produce a result alongside
// their error. The result is only meaningful when err is nil.
func Execute[T any](ctx context.Context, backend Backend, scope kv.Scope, fn func(ctx context.Context, tx Backend) (T, error)) (T, error) {
	var result T
	err := Transaction(ctx, backend, scope, func(ctx context.Context, tx Backend) error {
		v, fnErr := fn(ctx, tx)
		if fnErr != nil {
			return fnErr
		}
		result = v
		return nil
	})
	return result, err
}
