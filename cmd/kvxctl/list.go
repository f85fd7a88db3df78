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

var listKeysCmd = &cobra.Command{
	Use:   "list-keys [scope]",
	Short: "List the direct keys under a scope",
	Long: `List every key whose scope equals the given scope exactly. With no
argument, lists keys in the global scope.

Example:
  kvxctl list-keys
  kvxctl list-keys users/alice`,
	Args: cobra.MaximumNArgs(1),
	RunE: runListKeys,
}

var listScopesCmd = &cobra.Command{
	Use:   "list-scopes",
	Short: "List every distinct non-empty scope",
	RunE:  runListScopes,
}

func runListKeys(cmd *cobra.Command, args []string) error {
	scope := kv.GlobalScope()
	if len(args) == 1 {
		parsed, err := kv.ParseScope(args[0])
		if err != nil {
			return fmt.Errorf("invalid scope: %w", err)
		}
		scope = parsed
	}

	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	keys, err := backend.ListKeys(ctx, scope)
	if err != nil {
		return fmt.Errorf("list-keys failed: %w", err)
	}
	for _, k := range keys {
		fmt.Fprintln(cmd.OutOrStdout(), k.String())
	}
	return nil
}

func runListScopes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	scopes, err := backend.ListScopes(ctx)
	if err != nil {
		return fmt.Errorf("list-scopes failed: %w", err)
	}
	for _, s := range scopes {
		fmt.Fprintln(cmd.OutOrStdout(), s.String())
	}
	return nil
}
