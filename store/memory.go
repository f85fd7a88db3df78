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
	"sync"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
)

// scopeMap is scope-string -> key-name-string -> value, the shape every
// namespace's data takes in the memory backend.
type scopeMap map[string]map[string]kv.Value

// memoryStore is the shared, mutex-guarded state behind one or more
// MemoryBackend handles opened against the same store. A single mutex
// guards every operation, including the whole duration of a transaction,
// exactly as spec'd: coarse but sufficient for a reference backend.
type memoryStore struct {
	mu   sync.Mutex
	data map[kv.Namespace]scopeMap
}

// MemoryBackend is the in-process, mutex-guarded reference backend.
// Other backends must behave as-if this one ran.
type MemoryBackend struct {
	store     *memoryStore
	namespace kv.Namespace
}

// NewMemoryBackend creates a fresh, empty memory backend for namespace.
func NewMemoryBackend(namespace kv.Namespace) *MemoryBackend {
	return &MemoryBackend{
		store:     &memoryStore{data: make(map[kv.Namespace]scopeMap)},
		namespace: namespace,
	}
}

func (b *MemoryBackend) nsLocked() scopeMap {
	ns, ok := b.store.data[b.namespace]
	if !ok {
		ns = make(scopeMap)
		b.store.data[b.namespace] = ns
	}
	return ns
}

func (b *MemoryBackend) isEmptyLocked() bool {
	for _, names := range b.nsLocked() {
		if len(names) > 0 {
			return false
		}
	}
	return true
}

func (b *MemoryBackend) hasLocked(key kv.Key) bool {
	names, ok := b.nsLocked()[key.Scope.String()]
	if !ok {
		return false
	}
	_, ok = names[key.Name.String()]
	return ok
}

func (b *MemoryBackend) hasScopeLocked(scope kv.Scope) bool {
	if scope.IsGlobal() {
		return !b.isEmptyLocked()
	}
	for scopeStr, names := range b.nsLocked() {
		if len(names) == 0 {
			continue
		}
		parsed, err := kv.ParseScope(scopeStr)
		if err != nil {
			continue
		}
		if scope.IsPrefixOf(parsed) {
			return true
		}
	}
	return false
}

func (b *MemoryBackend) getLocked(key kv.Key) (kv.Value, bool) {
	names, ok := b.nsLocked()[key.Scope.String()]
	if !ok {
		return kv.Value{}, false
	}
	v, ok := names[key.Name.String()]
	return v, ok
}

func (b *MemoryBackend) listKeysLocked(scope kv.Scope) []kv.Key {
	names, ok := b.nsLocked()[scope.String()]
	if !ok {
		return nil
	}
	out := make([]kv.Key, 0, len(names))
	for name := range names {
		seg := kv.Segment(name)
		out = append(out, kv.NewScopedKey(scope, seg))
	}
	return out
}

// listScopesLocked returns every scope that is a prefix of some key's
// scope (spec invariant I2), not just the literal scopes that directly
// hold a key.
func (b *MemoryBackend) listScopesLocked() []kv.Scope {
	var literal []string
	for scopeStr, names := range b.nsLocked() {
		if len(names) > 0 {
			literal = append(literal, scopeStr)
		}
	}
	return expandAncestorScopes(literal)
}

func (b *MemoryBackend) storeLocked(key kv.Key, value kv.Value) {
	ns := b.nsLocked()
	scopeStr := key.Scope.String()
	names, ok := ns[scopeStr]
	if !ok {
		names = make(map[string]kv.Value)
		ns[scopeStr] = names
	}
	names[key.Name.String()] = value
}

func (b *MemoryBackend) deleteLocked(key kv.Key) {
	ns := b.nsLocked()
	scopeStr := key.Scope.String()
	names, ok := ns[scopeStr]
	if !ok {
		return
	}
	delete(names, key.Name.String())
	if len(names) == 0 {
		delete(ns, scopeStr)
	}
}

func (b *MemoryBackend) deleteScopeLocked(scope kv.Scope) {
	ns := b.nsLocked()
	for scopeStr := range ns {
		parsed, err := kv.ParseScope(scopeStr)
		if err != nil {
			continue
		}
		if scope.IsPrefixOf(parsed) {
			delete(ns, scopeStr)
		}
	}
}

func (b *MemoryBackend) moveValueLocked(from, to kv.Key) error {
	v, ok := b.getLocked(from)
	if !ok {
		return kverrors.ErrUnknownKey.WithDetail("key", from.String())
	}
	b.deleteLocked(from)
	b.storeLocked(to, v)
	return nil
}

func (b *MemoryBackend) moveScopeLocked(from, to kv.Scope) error {
	if b.hasScopeLocked(to) {
		return kverrors.ErrScopeNotEmpty.WithDetail("scope", to.String())
	}
	ns := b.nsLocked()
	type move struct {
		scopeStr string
		names    map[string]kv.Value
	}
	var moves []move
	for scopeStr, names := range ns {
		parsed, err := kv.ParseScope(scopeStr)
		if err != nil {
			continue
		}
		if from.IsPrefixOf(parsed) {
			moves = append(moves, move{scopeStr: scopeStr, names: names})
		}
	}
	for _, m := range moves {
		parsed, _ := kv.ParseScope(m.scopeStr)
		rel := parsed[len(from):]
		destScope := append(kv.NewScope(to...), rel...)
		delete(ns, m.scopeStr)
		ns[destScope.String()] = m.names
	}
	return nil
}

func (b *MemoryBackend) clearLocked() {
	b.store.data[b.namespace] = make(scopeMap)
}

func (b *MemoryBackend) cloneNamespaceLocked() scopeMap {
	clone := make(scopeMap, len(b.nsLocked()))
	for scopeStr, names := range b.nsLocked() {
		namesCopy := make(map[string]kv.Value, len(names))
		for k, v := range names {
			namesCopy[k] = v
		}
		clone[scopeStr] = namesCopy
	}
	return clone
}

func (b *MemoryBackend) restoreNamespaceLocked(snapshot scopeMap) {
	b.store.data[b.namespace] = snapshot
}

// IsEmpty reports whether no keys exist in this namespace.
func (b *MemoryBackend) IsEmpty(ctx context.Context) (bool, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.isEmptyLocked(), nil
}

// Has reports whether key is present.
func (b *MemoryBackend) Has(ctx context.Context, key kv.Key) (bool, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.hasLocked(key), nil
}

// HasScope reports whether scope, or any descendant of scope, has a key.
func (b *MemoryBackend) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.hasScopeLocked(scope), nil
}

// Get returns the stored value for key.
func (b *MemoryBackend) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	v, ok := b.getLocked(key)
	return v, ok, nil
}

// ListKeys returns every key whose scope equals scope exactly.
func (b *MemoryBackend) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.listKeysLocked(scope), nil
}

// ListScopes returns every distinct non-empty scope.
func (b *MemoryBackend) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.listScopesLocked(), nil
}

// Store inserts or overwrites key with value.
func (b *MemoryBackend) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.storeLocked(key, value)
	return nil
}

// MoveValue atomically moves the value at from to to.
func (b *MemoryBackend) MoveValue(ctx context.Context, from, to kv.Key) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.moveValueLocked(from, to)
}

// MoveScope atomically moves every key under from to to.
func (b *MemoryBackend) MoveScope(ctx context.Context, from, to kv.Scope) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.moveScopeLocked(from, to)
}

// Delete removes key. Deleting an absent key succeeds.
func (b *MemoryBackend) Delete(ctx context.Context, key kv.Key) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.deleteLocked(key)
	return nil
}

// DeleteScope removes every key under scope.
func (b *MemoryBackend) DeleteScope(ctx context.Context, scope kv.Scope) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.deleteScopeLocked(scope)
	return nil
}

// Clear removes every key in the namespace.
func (b *MemoryBackend) Clear(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	b.clearLocked()
	return nil
}

func (b *MemoryBackend) migrateNamespaceLocked(newNamespace kv.Namespace) error {
	if dest, ok := b.store.data[newNamespace]; ok {
		for _, names := range dest {
			if len(names) > 0 {
				return kverrors.ErrNamespaceNotEmpty.WithDetail("namespace", newNamespace.String())
			}
		}
	}

	b.store.data[newNamespace] = b.nsLocked()
	delete(b.store.data, b.namespace)
	b.namespace = newNamespace
	return nil
}

// MigrateNamespace atomically renames every row in this namespace to
// newNamespace.
func (b *MemoryBackend) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.migrateNamespaceLocked(newNamespace)
}

// TransactionIn runs fn against this backend under the store's single
// mutex, restoring a snapshot of the namespace if fn returns an error.
func (b *MemoryBackend) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	snapshot := b.cloneNamespaceLocked()
	handle := &memoryTxHandle{backend: b}
	if err := fn(ctx, handle); err != nil {
		b.restoreNamespaceLocked(snapshot)
		return err
	}
	return nil
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}

// memoryTxHandle is the Backend view handed to a transaction closure. It
// calls the *Locked helpers directly because MemoryBackend.TransactionIn
// already holds the store mutex for the closure's entire duration.
type memoryTxHandle struct {
	backend *MemoryBackend
}

func (h *memoryTxHandle) IsEmpty(ctx context.Context) (bool, error) {
	return h.backend.isEmptyLocked(), nil
}

func (h *memoryTxHandle) Has(ctx context.Context, key kv.Key) (bool, error) {
	return h.backend.hasLocked(key), nil
}

func (h *memoryTxHandle) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	return h.backend.hasScopeLocked(scope), nil
}

func (h *memoryTxHandle) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	v, ok := h.backend.getLocked(key)
	return v, ok, nil
}

func (h *memoryTxHandle) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	return h.backend.listKeysLocked(scope), nil
}

func (h *memoryTxHandle) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	return h.backend.listScopesLocked(), nil
}

func (h *memoryTxHandle) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	h.backend.storeLocked(key, value)
	return nil
}

func (h *memoryTxHandle) MoveValue(ctx context.Context, from, to kv.Key) error {
	return h.backend.moveValueLocked(from, to)
}

func (h *memoryTxHandle) MoveScope(ctx context.Context, from, to kv.Scope) error {
	return h.backend.moveScopeLocked(from, to)
}

func (h *memoryTxHandle) Delete(ctx context.Context, key kv.Key) error {
	h.backend.deleteLocked(key)
	return nil
}

func (h *memoryTxHandle) DeleteScope(ctx context.Context, scope kv.Scope) error {
	h.backend.deleteScopeLocked(scope)
	return nil
}

func (h *memoryTxHandle) Clear(ctx context.Context) error {
	h.backend.clearLocked()
	return nil
}

func (h *memoryTxHandle) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	return h.backend.migrateNamespaceLocked(newNamespace)
}

// TransactionIn on the transactional handle runs fn directly: the store
// mutex is already held for the whole outer transaction, and the memory
// backend serialises every transaction regardless of scope.
func (h *memoryTxHandle) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	return fn(ctx, h)
}

func (h *memoryTxHandle) Close() error {
	return nil
}
