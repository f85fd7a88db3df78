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

var deleteScope bool

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key, or a whole scope with --scope",
	Long: `Remove the value stored at a key. Deleting an absent key succeeds.

With --scope, the argument is parsed as a scope instead of a key and
every key under it is removed.

Example:
  kvxctl delete greeting
  kvxctl delete --scope users/alice`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteScope, "scope", false, "treat the argument as a scope and delete every key under it")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	if deleteScope {
		scope, err := kv.ParseScope(args[0])
		if err != nil {
			return fmt.Errorf("invalid scope: %w", err)
		}
		if err := backend.DeleteScope(ctx, scope); err != nil {
			return fmt.Errorf("delete scope failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted scope %s\n", scope)
		return nil
	}

	key, err := kv.ParseKey(args[0])
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	if err := backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
	return nil
}
