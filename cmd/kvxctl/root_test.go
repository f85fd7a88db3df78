// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cmd := newTestCmd("", "")
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Store.URL != "memory://" {
		t.Errorf("expected default store URL memory://, got %q", cfg.Store.URL)
	}
	if cfg.Store.Namespace != "default" {
		t.Errorf("expected default namespace \"default\", got %q", cfg.Store.Namespace)
	}
}

func TestLoadConfigFlagOverride(t *testing.T) {
	cmd := newTestCmd("local:///tmp/kvx-test", "staging")
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Store.URL != "local:///tmp/kvx-test" {
		t.Errorf("expected flag-provided store URL, got %q", cfg.Store.URL)
	}
	if cfg.Store.Namespace != "staging" {
		t.Errorf("expected flag-provided namespace, got %q", cfg.Store.Namespace)
	}
}

func TestRootCmdHasAllSubcommands(t *testing.T) {
	want := []string{
		"get", "put", "delete", "list-keys", "list-scopes",
		"migrate-namespace", "queue", "serve", "version",
	}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected rootCmd to have subcommand %q", name)
		}
	}
}
