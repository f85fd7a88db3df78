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
	"os"
	"path/filepath"
	"testing"

	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/storetest"
)

// Store must place a key's file at the path spelled out by its scope's
// segments, nested one directory per segment.
func TestDiskBackend_StoreNestsFileUnderScopeSegments(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b, err := NewDiskBackend(root, kv.MustNamespace("ns"))
	if err != nil {
		t.Fatalf("NewDiskBackend() error = %v", err)
	}
	defer b.Close()

	scope := kv.NewScope(kv.MustSegment("s1"), kv.MustSegment("s2"))
	key := kv.NewScopedKey(scope, kv.MustSegment("k"))
	if err := b.Store(ctx, key, kv.NewStringValue("v")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	path := filepath.Join(root, "ns", "s1", "s2", "k")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file at %s, error = %v", path, err)
	}

	want := "\"v\""
	got := string(data)
	if got != want {
		t.Errorf("file contents = %q, want %q", got, want)
	}
}

func TestDiskBackend_NewIsEmpty(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b, err := NewDiskBackend(root, kv.MustNamespace("ns"))
	if err != nil {
		t.Fatalf("NewDiskBackend() error = %v", err)
	}
	defer b.Close()

	empty, err := b.IsEmpty(ctx)
	if err != nil {
		t.Fatalf("IsEmpty() error = %v", err)
	}
	if !empty {
		t.Error("a freshly created disk backend should be empty")
	}
}

func TestDiskBackend_Conformance(t *testing.T) {
	root := t.TempDir()
	storetest.Run(t, func(t *testing.T, namespace kv.Namespace) Backend {
		b, err := NewDiskBackend(root, namespace)
		if err != nil {
			t.Fatalf("NewDiskBackend() error = %v", err)
		}
		t.Cleanup(func() { b.Close() })
		return b
	})
}
