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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NLnetLabs/kvx/pkg/kv"
)

var migrateNamespaceCmd = &cobra.Command{
	Use:   "migrate-namespace <new-namespace>",
	Short: "Rename the current namespace",
	Long: `Atomically rename every row in the store's current namespace to
new-namespace. Fails if new-namespace already has content.

Example:
  kvxctl --namespace staging migrate-namespace production`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrateNamespace,
}

func runMigrateNamespace(cmd *cobra.Command, args []string) error {
	newNamespace, err := kv.ParseNamespace(args[0])
	if err != nil {
		return fmt.Errorf("invalid namespace: %w", err)
	}

	ctx := cmd.Context()
	backend, cfg, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.MigrateNamespace(ctx, newNamespace); err != nil {
		return fmt.Errorf("migrate-namespace failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrated namespace %s -> %s\n", cfg.Store.Namespace, newNamespace)
	return nil
}
