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

// Package resilience provides the retry/backoff primitive used by the
// transaction driver to recover from retriable storage conflicts.
//
//	err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
//	    return attemptOnce(ctx)
//	})
//
// Setting RetryConfig.MaxAttempts to 0 (or any value <= 0) retries
// forever until ShouldRetry reports false or the context is canceled.
package resilience
