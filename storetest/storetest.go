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

// Package storetest holds a backend-agnostic conformance suite: one set
// of properties every store.Backend implementation must satisfy,
// regardless of whether it is memory-, disk-, or SQL-backed.
package storetest

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/store"
)

// Opener opens a backend for namespace against the same underlying
// substrate every call in a single Run shares (the same temp directory,
// the same in-process store, the same database), the way store.Open
// hands out namespace-scoped handles onto one physical store. Properties
// that only need one namespace call it once with a fixed name; the
// namespace-isolation property calls it twice with different names to
// confirm the two handles expose disjoint key spaces.
type Opener func(t *testing.T, namespace kv.Namespace) store.Backend

var defaultNamespace = kv.MustNamespace("app")

// Run exercises every property a conforming store.Backend must satisfy
// against the backend open produces. Each property runs in its own
// subtest; every property except namespace isolation opens the same
// namespace ("app"), so later properties see the keys earlier ones left
// behind.
func Run(t *testing.T, open Opener) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, open) })
	t.Run("DeleteIdempotence", func(t *testing.T) { testDeleteIdempotence(t, open) })
	t.Run("ScopeDerivation", func(t *testing.T) { testScopeDerivation(t, open) })
	t.Run("MoveAtomicity", func(t *testing.T) { testMoveAtomicity(t, open) })
	t.Run("ScopeMove", func(t *testing.T) { testScopeMove(t, open) })
	t.Run("TransactionIsolation", func(t *testing.T) { testTransactionIsolation(t, open) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, open) })
	t.Run("NamespaceIsolation", func(t *testing.T) { testNamespaceIsolation(t, open) })
}

func testRoundTrip(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	k := kv.NewGlobalKey(kv.MustSegment("a"))
	v := kv.NewStringValue("hello")

	if err := b.Store(ctx, k, v); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, ok, err := b.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() after Store() reported absent")
	}
	if !got.Equal(v) {
		t.Errorf("Get() = %v, want %v", got, v)
	}
}

func testDeleteIdempotence(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	k := kv.NewGlobalKey(kv.MustSegment("a"))

	if err := b.Delete(ctx, k); err != nil {
		t.Fatalf("Delete() on absent key error = %v", err)
	}
	if err := b.Store(ctx, k, kv.NewInteger(1)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := b.Delete(ctx, k); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := b.Delete(ctx, k); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, ok, _ := b.Get(ctx, k); ok {
		t.Error("Get() after delete should report absent")
	}
}

func testScopeDerivation(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	scope := kv.NewScope(kv.MustSegment("a"), kv.MustSegment("b"))
	key := kv.NewScopedKey(scope, kv.MustSegment("k"))

	if has, _ := b.HasScope(ctx, scope); has {
		t.Error("HasScope() before any key exists should be false")
	}
	if err := b.Store(ctx, key, kv.NewInteger(1)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if has, _ := b.HasScope(ctx, scope); !has {
		t.Error("HasScope() for the key's own scope should be true")
	}
	parent, _ := scope.Parent()
	if has, _ := b.HasScope(ctx, parent); !has {
		t.Error("HasScope() for an ancestor scope should be true")
	}

	scopes, err := b.ListScopes(ctx)
	if err != nil {
		t.Fatalf("ListScopes() error = %v", err)
	}
	seen := make(map[string]int)
	for _, s := range scopes {
		seen[s.String()]++
	}
	for _, want := range []kv.Scope{scope, parent} {
		if seen[want.String()] != 1 {
			t.Errorf("ListScopes() reported %s %d times, want exactly once", want, seen[want.String()])
		}
	}
}

func testMoveAtomicity(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	a := kv.NewGlobalKey(kv.MustSegment("a"))
	dest := kv.NewGlobalKey(kv.MustSegment("b"))
	v := kv.NewInteger(7)

	if err := b.Store(ctx, a, v); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := b.MoveValue(ctx, a, dest); err != nil {
		t.Fatalf("MoveValue() error = %v", err)
	}

	if _, ok, _ := b.Get(ctx, a); ok {
		t.Error("source key should be gone after move")
	}
	got, ok, _ := b.Get(ctx, dest)
	if !ok {
		t.Fatal("destination key should exist after move")
	}
	if !got.Equal(v) {
		t.Errorf("moved value = %v, want %v", got, v)
	}

	if err := b.MoveValue(ctx, a, dest); !kverrors.Is(err, kverrors.ErrUnknownKey) {
		t.Errorf("MoveValue() from an absent key error = %v, want ErrUnknownKey", err)
	}
}

func testScopeMove(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	from := kv.NewScope(kv.MustSegment("a"))
	to := kv.NewScope(kv.MustSegment("b"))
	child := kv.MustSegment("x")
	name := kv.MustSegment("k")
	v := kv.NewInteger(1)

	if err := b.Store(ctx, kv.NewScopedKey(from.Child(child), name), v); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := b.MoveScope(ctx, from, to); err != nil {
		t.Fatalf("MoveScope() error = %v", err)
	}

	if has, _ := b.HasScope(ctx, from); has {
		t.Error("source scope should no longer exist")
	}
	got, ok, err := b.Get(ctx, kv.NewScopedKey(to.Child(child), name))
	if err != nil || !ok {
		t.Fatalf("Get() under moved scope = %v, %v, %v", got, ok, err)
	}
	if !got.Equal(v) {
		t.Errorf("moved value = %v, want %v", got, v)
	}

	if err := b.Store(ctx, kv.NewScopedKey(from, name), kv.NewInteger(2)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := b.MoveScope(ctx, from, to); !kverrors.Is(err, kverrors.ErrScopeNotEmpty) {
		t.Errorf("MoveScope() onto a non-empty destination error = %v, want ErrScopeNotEmpty", err)
	}
}

// testTransactionIsolation runs two goroutines, each performing a
// transactional read-increment-write loop against the same key, and
// checks the final value converges to exactly 2*iterations with no lost
// updates.
func testTransactionIsolation(t *testing.T, open Opener) {
	if testing.Short() {
		t.Skip("skipping concurrency property in -short mode")
	}

	ctx := context.Background()
	b := open(t, defaultNamespace)
	k := kv.NewGlobalKey(kv.MustSegment("counter"))
	if err := b.Store(ctx, k, kv.NewInteger(0)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	const iterations = 200
	increment := func() error {
		for i := 0; i < iterations; i++ {
			if err := store.Transaction(ctx, b, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
				v, _, err := tx.Get(ctx, k)
				if err != nil {
					return err
				}
				cur, _ := v.AsInteger()
				return tx.Store(ctx, k, kv.NewInteger(cur+1))
			}); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.Go(increment)
	g.Go(increment)
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent increments failed: %v", err)
	}

	v, _, err := b.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got, _ := v.AsInteger()
	if want := int64(2 * iterations); got != want {
		t.Errorf("final counter = %d, want %d", got, want)
	}
}

func testRollback(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open(t, defaultNamespace)
	k := kv.NewGlobalKey(kv.MustSegment("k"))
	if err := b.Store(ctx, k, kv.NewInteger(1)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	userErr := kverrors.New(kverrors.CategoryUser, "BOOM", "closure failed")
	err := b.TransactionIn(ctx, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
		if err := tx.Store(ctx, k, kv.NewInteger(2)); err != nil {
			return err
		}
		return userErr
	})
	if !kverrors.Is(err, userErr) {
		t.Errorf("TransactionIn() error = %v, want verbatim closure error", err)
	}

	v, _, _ := b.Get(ctx, k)
	got, _ := v.AsInteger()
	if got != 1 {
		t.Errorf("value after rollback = %d, want 1 (unchanged)", got)
	}
}

func testNamespaceIsolation(t *testing.T, open Opener) {
	ctx := context.Background()
	ns1 := kv.MustNamespace("ns1")
	ns2 := kv.MustNamespace("ns2")
	b1 := open(t, ns1)
	k := kv.NewGlobalKey(kv.MustSegment("shared-name"))

	if err := b1.Store(ctx, k, kv.NewInteger(1)); err != nil {
		t.Fatalf("Store() on first namespace error = %v", err)
	}

	b2 := open(t, ns2)
	if _, ok, _ := b2.Get(ctx, k); ok {
		t.Error("a second namespace onto the same store should not see the first namespace's data")
	}
	if err := b2.Store(ctx, k, kv.NewInteger(2)); err != nil {
		t.Fatalf("Store() on second namespace error = %v", err)
	}

	v1, _, _ := b1.Get(ctx, k)
	n1, _ := v1.AsInteger()
	if n1 != 1 {
		t.Errorf("first namespace's value changed to %d, want 1", n1)
	}
}
