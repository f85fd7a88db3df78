// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"strings"
	"testing"
)

func TestRunMigrateNamespace(t *testing.T) {
	cmd := newTestCmd("memory://", "staging")
	if err := runPut(cmd, []string{"greeting", `"hello"`}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	cmd2 := newTestCmd("memory://", "staging")
	if err := runMigrateNamespace(cmd2, []string{"production"}); err != nil {
		t.Fatalf("migrate-namespace failed: %v", err)
	}
	if got := outputOf(cmd2); !strings.Contains(got, "staging -> production") {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestRunMigrateNamespaceInvalidTarget(t *testing.T) {
	cmd := newTestCmd("memory://", "staging")
	if err := runMigrateNamespace(cmd, []string{"has a space"}); err == nil {
		t.Fatal("expected an error for an invalid namespace")
	}
}
