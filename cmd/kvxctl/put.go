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

var putCmd = &cobra.Command{
	Use:   "put <key> <json-value>",
	Short: "Store a JSON value at a key",
	Long: `Insert or overwrite the value at a key. The value argument must be
well-formed JSON.

Example:
  kvxctl put greeting '"hello"'
  kvxctl put users/alice/profile '{"name":"Alice","age":30}'`,
	Args: cobra.ExactArgs(2),
	RunE: runPut,
}

func runPut(cmd *cobra.Command, args []string) error {
	key, err := kv.ParseKey(args[0])
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	value, err := kv.ParseValue([]byte(args[1]))
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}

	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Store(ctx, key, value); err != nil {
		return fmt.Errorf("put failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
	return nil
}
