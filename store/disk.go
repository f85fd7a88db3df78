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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
)

// lockAcquireTimeout bounds how long TransactionIn waits to acquire every
// lock in a scope's ancestor chain before reporting a retriable conflict
// to the Transaction/Execute driver instead of blocking indefinitely.
const lockAcquireTimeout = 250 * time.Millisecond

// DiskBackend implements the backend contract on a local filesystem
// tree: one file per key, one directory per scope, and a sibling
// .locks/ area holding per-scope advisory lock files.
type DiskBackend struct {
	root      string
	namespace kv.Namespace
}

// NewDiskBackend opens (creating if necessary) a disk backend rooted at
// root for namespace.
func NewDiskBackend(root string, namespace kv.Namespace) (*DiskBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, kverrors.ErrIO.Wrap(err)
	}
	return &DiskBackend{root: root, namespace: namespace}, nil
}

func (b *DiskBackend) nsRoot() string {
	return filepath.Join(b.root, b.namespace.String())
}

func (b *DiskBackend) nsRootFor(ns kv.Namespace) string {
	return filepath.Join(b.root, ns.String())
}

func (b *DiskBackend) scopeDir(scope kv.Scope) string {
	parts := make([]string, 0, len(scope)+1)
	parts = append(parts, b.nsRoot())
	for _, seg := range scope {
		parts = append(parts, seg.String())
	}
	return filepath.Join(parts...)
}

func (b *DiskBackend) keyPath(key kv.Key) string {
	return filepath.Join(b.scopeDir(key.Scope), key.Name.String())
}

// lockPath is PATH/.locks/NAMESPACE/<scope-path>.lock, the advisory lock
// file guarding one scope's slot in an ancestor chain.
func (b *DiskBackend) lockPath(scope kv.Scope) string {
	rel := scope.String() + ".lock"
	return filepath.Join(b.root, ".locks", b.namespace.String(), filepath.FromSlash(rel))
}

// walkFiles walks dir (if present) and returns the slash-joined path of
// every regular file relative to dir.
func walkFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kverrors.ErrIO.Wrap(err)
	}
	if !info.IsDir() {
		return nil, kverrors.ErrIO.WithMessage("expected a directory").WithDetail("path", dir)
	}

	var out []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, kverrors.ErrIO.Wrap(err)
	}
	return out, nil
}

// splitRelFile splits a slash-joined relative file path into its scope
// string and key name.
func splitRelFile(rel string) (scopeStr, name string) {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return "", rel
	}
	return rel[:idx], rel[idx+1:]
}

func (b *DiskBackend) readFile(path string) (kv.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kv.Value{}, kverrors.ErrIO.Wrap(err)
	}
	v, err := kv.ParseValue(raw)
	if err != nil {
		return kv.Value{}, err
	}
	return v, nil
}

// writeKeyFile atomically writes value to key's file: a temp file in the
// system temp directory, then a rename into place, so a reader never
// observes a partially written value.
func (b *DiskBackend) writeKeyFile(key kv.Key, value kv.Value) error {
	dir := b.scopeDir(key.Scope)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	pretty, err := value.PrettyJSON()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "kvx-*")
	if err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(pretty); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return kverrors.ErrIO.Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return kverrors.ErrIO.Wrap(err)
	}
	if err := os.Rename(tmpPath, b.keyPath(key)); err != nil {
		os.Remove(tmpPath)
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

func (b *DiskBackend) removeKeyFile(key kv.Key) error {
	if err := os.Remove(b.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

// IsEmpty reports whether no keys exist in this namespace.
func (b *DiskBackend) IsEmpty(ctx context.Context) (bool, error) {
	files, err := walkFiles(b.nsRoot())
	if err != nil {
		return false, err
	}
	return len(files) == 0, nil
}

// Has reports whether key's file exists.
func (b *DiskBackend) Has(ctx context.Context, key kv.Key) (bool, error) {
	_, err := os.Stat(b.keyPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, kverrors.ErrIO.Wrap(err)
}

// HasScope reports whether scope or any descendant holds a key.
func (b *DiskBackend) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	if scope.IsGlobal() {
		empty, err := b.IsEmpty(ctx)
		return !empty, err
	}
	files, err := walkFiles(b.scopeDir(scope))
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// Get reads and parses key's file.
func (b *DiskBackend) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	has, err := b.Has(ctx, key)
	if err != nil || !has {
		return kv.Value{}, false, err
	}
	v, err := b.readFile(b.keyPath(key))
	if err != nil {
		return kv.Value{}, false, err
	}
	return v, true, nil
}

// ListKeys returns every direct-child key file under scope.
func (b *DiskBackend) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	entries, err := os.ReadDir(b.scopeDir(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kverrors.ErrIO.Wrap(err)
	}
	var out []kv.Key
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, kv.NewScopedKey(scope, kv.Segment(e.Name())))
	}
	return out, nil
}

// ListScopes returns every scope that is a prefix of some key's scope.
func (b *DiskBackend) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	files, err := walkFiles(b.nsRoot())
	if err != nil {
		return nil, err
	}
	literal := make(map[string]bool)
	for _, rel := range files {
		scopeStr, _ := splitRelFile(rel)
		literal[scopeStr] = true
	}
	scopes := make([]string, 0, len(literal))
	for s := range literal {
		scopes = append(scopes, s)
	}
	return expandAncestorScopes(scopes), nil
}

// Store inserts or overwrites key with value.
func (b *DiskBackend) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	return b.writeKeyFile(key, value)
}

// MoveValue renames the source file onto the destination path.
func (b *DiskBackend) MoveValue(ctx context.Context, from, to kv.Key) error {
	has, err := b.Has(ctx, from)
	if err != nil {
		return err
	}
	if !has {
		return kverrors.ErrUnknownKey.WithDetail("key", from.String())
	}
	destDir := b.scopeDir(to.Scope)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	if err := os.Rename(b.keyPath(from), b.keyPath(to)); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

// MoveScope renames the source scope directory onto the destination,
// failing if the destination already holds a key.
func (b *DiskBackend) MoveScope(ctx context.Context, from, to kv.Scope) error {
	hasTo, err := b.HasScope(ctx, to)
	if err != nil {
		return err
	}
	if hasTo {
		return kverrors.ErrScopeNotEmpty.WithDetail("scope", to.String())
	}

	fromDir := b.scopeDir(from)
	if _, err := os.Stat(fromDir); os.IsNotExist(err) {
		return nil
	}

	toDir := b.scopeDir(to)
	if info, err := os.Stat(toDir); err == nil && info.IsDir() {
		if err := os.Remove(toDir); err != nil {
			return kverrors.ErrIO.Wrap(err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(toDir), 0o755); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	if err := os.Rename(fromDir, toDir); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

// Delete removes key's file. Deleting an absent key succeeds.
func (b *DiskBackend) Delete(ctx context.Context, key kv.Key) error {
	return b.removeKeyFile(key)
}

// DeleteScope recursively removes scope's directory.
func (b *DiskBackend) DeleteScope(ctx context.Context, scope kv.Scope) error {
	if err := os.RemoveAll(b.scopeDir(scope)); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

// Clear removes every key in the namespace.
func (b *DiskBackend) Clear(ctx context.Context) error {
	if err := os.RemoveAll(b.nsRoot()); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	if err := os.MkdirAll(b.nsRoot(), 0o755); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	return nil
}

// MigrateNamespace renames root/old to root/new.
func (b *DiskBackend) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	return b.migrateNamespace(newNamespace)
}

func (b *DiskBackend) migrateNamespace(newNamespace kv.Namespace) error {
	destRoot := b.nsRootFor(newNamespace)
	destFiles, err := walkFiles(destRoot)
	if err != nil {
		return err
	}
	if len(destFiles) > 0 {
		return kverrors.ErrNamespaceNotEmpty.WithDetail("namespace", newNamespace.String())
	}

	if _, err := os.Stat(b.nsRoot()); os.IsNotExist(err) {
		b.namespace = newNamespace
		return nil
	}
	if info, err := os.Stat(destRoot); err == nil && info.IsDir() {
		if err := os.Remove(destRoot); err != nil {
			return kverrors.ErrIO.Wrap(err)
		}
	}
	if err := os.Rename(b.nsRoot(), destRoot); err != nil {
		return kverrors.ErrIO.Wrap(err)
	}
	b.namespace = newNamespace
	return nil
}

// scopeChain returns scope and every proper ancestor of scope, ordered
// from the global scope down to scope itself.
func scopeChain(scope kv.Scope) []kv.Scope {
	chain := []kv.Scope{scope}
	cur := scope
	for {
		parent, ok := cur.Parent()
		if !ok {
			return chain
		}
		chain = append([]kv.Scope{parent}, chain...)
		cur = parent
	}
}

// acquireScopeChain takes a shared lock on every proper ancestor of scope
// and an exclusive lock on scope itself, in root-to-leaf order. A
// transaction on scope's ancestor holds scope's slot exclusively too, so
// it is refused our shared lock; a transaction on scope's descendant
// needs a shared lock on scope, so it is refused by our exclusive one.
// Either way, overlapping scopes contend on a lock they both need
// instead of silently running in parallel. If any lock in the chain
// cannot be acquired within lockAcquireTimeout, every lock already held
// is released and a retriable conflict is reported.
func (b *DiskBackend) acquireScopeChain(ctx context.Context, scope kv.Scope) ([]*flock.Flock, error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	chain := scopeChain(scope)
	held := make([]*flock.Flock, 0, len(chain))
	for i, s := range chain {
		path := b.lockPath(s)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			releaseLocks(held)
			return nil, kverrors.ErrIO.Wrap(err)
		}

		fl := flock.New(path)
		var locked bool
		var err error
		if i == len(chain)-1 {
			locked, err = fl.TryLockContext(lockCtx, 5*time.Millisecond)
		} else {
			locked, err = fl.TryRLockContext(lockCtx, 5*time.Millisecond)
		}
		if err != nil || !locked {
			releaseLocks(held)
			return nil, kverrors.ErrSerializationConflict.WithDetail("scope", scope.String())
		}
		held = append(held, fl)
	}
	return held, nil
}

func releaseLocks(held []*flock.Flock) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].Unlock()
	}
}

// loadScope reads every key file under scope's directory into a scopeMap
// keyed by each key's absolute scope, so the result can seed a staging
// view restricted to scope and its descendants.
func (b *DiskBackend) loadScope(scope kv.Scope) (scopeMap, error) {
	dir := b.scopeDir(scope)
	files, err := walkFiles(dir)
	if err != nil {
		return nil, err
	}
	data := make(scopeMap)
	for _, rel := range files {
		relScopeStr, name := splitRelFile(rel)
		relScope, parseErr := kv.ParseScope(relScopeStr)
		if parseErr != nil {
			continue
		}
		absScope := append(kv.NewScope(scope...), relScope...)
		value, readErr := b.readFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if readErr != nil {
			return nil, readErr
		}
		names, ok := data[absScope.String()]
		if !ok {
			names = make(map[string]kv.Value)
			data[absScope.String()] = names
		}
		names[name] = value
	}
	return data, nil
}

// TransactionIn locks scope's whole ancestor chain, runs fn against an
// in-memory staging view restricted to scope and its descendants, and
// applies the staged mutations to disk only if fn succeeds.
func (b *DiskBackend) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	held, err := b.acquireScopeChain(ctx, scope)
	if err != nil {
		return err
	}
	defer releaseLocks(held)

	before, err := b.loadScope(scope)
	if err != nil {
		return err
	}
	mem := &MemoryBackend{
		store:     &memoryStore{data: map[kv.Namespace]scopeMap{b.namespace: cloneScopeMap(before)}},
		namespace: b.namespace,
	}

	if err := fn(ctx, &diskTxHandle{scope: scope, mem: mem}); err != nil {
		return err
	}

	after := mem.store.data[mem.namespace]
	if mem.namespace != b.namespace {
		return b.migrateNamespace(mem.namespace)
	}

	added, removed := diffScopeMaps(before, after)
	for _, op := range added {
		scope, parseErr := kv.ParseScope(op.scopeStr)
		if parseErr != nil {
			continue
		}
		key := kv.NewScopedKey(scope, kv.Segment(op.name))
		if err := b.writeKeyFile(key, op.value); err != nil {
			return err
		}
	}
	for _, op := range removed {
		scope, parseErr := kv.ParseScope(op.scopeStr)
		if parseErr != nil {
			continue
		}
		key := kv.NewScopedKey(scope, kv.Segment(op.name))
		if err := b.removeKeyFile(key); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for the disk backend; it holds no persistent handles
// between transactions.
func (b *DiskBackend) Close() error {
	return nil
}

// diskTxHandle is the Backend view handed to a DiskBackend transaction
// closure. It delegates to an in-memory staging copy of scope's subtree
// and rejects any key or scope argument that falls outside that subtree,
// so a transaction can never touch data it did not lock.
type diskTxHandle struct {
	scope kv.Scope
	mem   *MemoryBackend
}

func (h *diskTxHandle) checkScope(target kv.Scope) error {
	if h.scope.IsPrefixOf(target) {
		return nil
	}
	return kverrors.ErrInvalidSegment.
		WithMessage("scope falls outside the transaction's locked subtree").
		WithDetail("scope", target.String()).
		WithDetail("locked", h.scope.String())
}

func (h *diskTxHandle) checkKey(key kv.Key) error {
	return h.checkScope(key.Scope)
}

func (h *diskTxHandle) IsEmpty(ctx context.Context) (bool, error) {
	has, err := h.mem.HasScope(ctx, h.scope)
	if err != nil {
		return false, err
	}
	return !has, nil
}

func (h *diskTxHandle) Has(ctx context.Context, key kv.Key) (bool, error) {
	if err := h.checkKey(key); err != nil {
		return false, err
	}
	return h.mem.Has(ctx, key)
}

func (h *diskTxHandle) HasScope(ctx context.Context, scope kv.Scope) (bool, error) {
	if err := h.checkScope(scope); err != nil {
		return false, err
	}
	return h.mem.HasScope(ctx, scope)
}

func (h *diskTxHandle) Get(ctx context.Context, key kv.Key) (kv.Value, bool, error) {
	if err := h.checkKey(key); err != nil {
		return kv.Value{}, false, err
	}
	return h.mem.Get(ctx, key)
}

func (h *diskTxHandle) ListKeys(ctx context.Context, scope kv.Scope) ([]kv.Key, error) {
	if err := h.checkScope(scope); err != nil {
		return nil, err
	}
	return h.mem.ListKeys(ctx, scope)
}

// ListScopes returns every scope within the locked subtree, filtering out
// anything a concurrent migration might otherwise have exposed.
func (h *diskTxHandle) ListScopes(ctx context.Context) ([]kv.Scope, error) {
	scopes, err := h.mem.ListScopes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]kv.Scope, 0, len(scopes))
	for _, s := range scopes {
		if h.scope.IsPrefixOf(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (h *diskTxHandle) Store(ctx context.Context, key kv.Key, value kv.Value) error {
	if err := h.checkKey(key); err != nil {
		return err
	}
	return h.mem.Store(ctx, key, value)
}

func (h *diskTxHandle) MoveValue(ctx context.Context, from, to kv.Key) error {
	if err := h.checkKey(from); err != nil {
		return err
	}
	if err := h.checkKey(to); err != nil {
		return err
	}
	return h.mem.MoveValue(ctx, from, to)
}

func (h *diskTxHandle) MoveScope(ctx context.Context, from, to kv.Scope) error {
	if err := h.checkScope(from); err != nil {
		return err
	}
	if err := h.checkScope(to); err != nil {
		return err
	}
	return h.mem.MoveScope(ctx, from, to)
}

func (h *diskTxHandle) Delete(ctx context.Context, key kv.Key) error {
	if err := h.checkKey(key); err != nil {
		return err
	}
	return h.mem.Delete(ctx, key)
}

func (h *diskTxHandle) DeleteScope(ctx context.Context, scope kv.Scope) error {
	if err := h.checkScope(scope); err != nil {
		return err
	}
	return h.mem.DeleteScope(ctx, scope)
}

// Clear removes every key within the locked subtree. Unlike the
// namespace-wide Clear on DiskBackend itself, a transaction can only
// clear what it locked.
func (h *diskTxHandle) Clear(ctx context.Context) error {
	return h.mem.DeleteScope(ctx, h.scope)
}

func (h *diskTxHandle) MigrateNamespace(ctx context.Context, newNamespace kv.Namespace) error {
	if !h.scope.IsGlobal() {
		return kverrors.ErrInvalidSegment.
			WithMessage("namespace migration requires a transaction locked on the global scope").
			WithDetail("scope", h.scope.String())
	}
	return h.mem.MigrateNamespace(ctx, newNamespace)
}

// TransactionIn runs fn directly against a handle narrowed to the
// requested sub-scope: the outer TransactionIn already holds every lock
// a descendant scope could need, so no further locking is required.
func (h *diskTxHandle) TransactionIn(ctx context.Context, scope kv.Scope, fn TransactionFunc) error {
	if err := h.checkScope(scope); err != nil {
		return err
	}
	return fn(ctx, &diskTxHandle{scope: scope, mem: h.mem})
}

func (h *diskTxHandle) Close() error {
	return nil
}

func cloneScopeMap(in scopeMap) scopeMap {
	out := make(scopeMap, len(in))
	for scopeStr, names := range in {
		namesCopy := make(map[string]kv.Value, len(names))
		for k, v := range names {
			namesCopy[k] = v
		}
		out[scopeStr] = namesCopy
	}
	return out
}

type scopeMapEntry struct {
	scopeStr string
	name     string
	value    kv.Value
}

// diffScopeMaps compares before and after and reports keys that were
// added or changed, and keys that were removed.
func diffScopeMaps(before, after scopeMap) (added, removed []scopeMapEntry) {
	for scopeStr, names := range after {
		beforeNames := before[scopeStr]
		for name, value := range names {
			prior, existed := beforeNames[name]
			if !existed || !prior.Equal(value) {
				added = append(added, scopeMapEntry{scopeStr: scopeStr, name: name, value: value})
			}
		}
	}
	for scopeStr, names := range before {
		afterNames := after[scopeStr]
		for name := range names {
			if _, still := afterNames[name]; !still {
				removed = append(removed, scopeMapEntry{scopeStr: scopeStr, name: name})
			}
		}
	}
	return added, removed
}
