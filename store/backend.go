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

	"github.com/NLnetLabs/kvx/pkg/kv"
)

// TransactionFunc is the closure a caller passes to TransactionIn. It
// receives a backend handle scoped to the transaction's scope and its
// descendants and returns an error to trigger rollback.
type TransactionFunc func(ctx context.Context, tx Backend) error

// Backend is the contract every storage substrate satisfies. All
// operations implicitly operate within the backend's namespace.
type Backend interface {
	// IsEmpty reports whether no keys exist in this namespace.
	IsEmpty(ctx context.Context) (bool, error)

	// Has reports whether key is present.
	Has(ctx context.Context, key kv.Key) (bool, error)

	// HasScope reports whether any key has scope as its scope or an
	// ancestor of its scope. HasScope(GlobalScope()) equals !IsEmpty().
	HasScope(ctx context.Context, scope kv.Scope) (bool, error)

	// Get returns the stored value for key, or ok=false if absent.
	Get(ctx context.Context, key kv.Key) (value kv.Value, ok bool, err error)

	// ListKeys returns every key whose scope equals scope exactly (not
	// descendants). Order is unspecified but stable within a snapshot.
	ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error)

	// ListScopes returns every distinct non-empty scope, each exactly
	// once.
	ListScopes(ctx context.Context) ([]kv.Scope, error)

	// Store inserts or overwrites key with value.
	Store(ctx context.Context, key kv.Key, value kv.Value) error

	// MoveValue atomically moves the value at from to to, overwriting to
	// if present. Fails with pkg/errors.ErrUnknownKey if from is absent.
	MoveValue(ctx context.Context, from, to kv.Key) error

	// MoveScope atomically moves every key under from to the
	// corresponding key under to, preserving relative structure. Fails
	// with pkg/errors.ErrScopeNotEmpty if any destination key already
	// exists.
	MoveScope(ctx context.Context, from, to kv.Scope) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key kv.Key) error

	// DeleteScope removes every key under scope. Deleting an empty or
	// absent scope succeeds.
	DeleteScope(ctx context.Context, scope kv.Scope) error

	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error

	// MigrateNamespace atomically renames every row in this namespace to
	// newNamespace. Fails with pkg/errors.ErrNamespaceNotEmpty if
	// newNamespace already has content.
	MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error

	// TransactionIn runs fn against a transactional view of the backend,
	// serialised with any other transaction on scope or an ancestor or
	// descendant of scope. It commits fn's effects on success and
	// discards them on error. Retriable conflicts are handled internally
	// by the Transaction/Execute driver, not by TransactionIn itself.
	TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error

	// Close releases any resources (connection pools, open handles) held
	// by the backend.
	Close() error
}
