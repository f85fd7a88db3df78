// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"bytes"

	"github.com/spf13/cobra"
)

// newTestCmd builds a standalone command carrying its own persistent
// store-url/namespace flags, mirroring the flags rootCmd registers, so
// loadConfig and openBackendFromFlags work without requiring the real
// command tree to be wired up.
func newTestCmd(storeURL, namespace string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.PersistentFlags().String("config", "", "")
	cmd.PersistentFlags().String("store-url", "", "")
	cmd.PersistentFlags().String("namespace", "", "")

	if storeURL != "" {
		_ = cmd.PersistentFlags().Set("store-url", storeURL)
	}
	if namespace != "" {
		_ = cmd.PersistentFlags().Set("namespace", namespace)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	return cmd
}

func outputOf(cmd *cobra.Command) string {
	buf, ok := cmd.OutOrStdout().(*bytes.Buffer)
	if !ok {
		return ""
	}
	return buf.String()
}
