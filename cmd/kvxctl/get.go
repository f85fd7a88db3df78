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

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored at a key",
	Long: `Look up a key and print its JSON value to stdout.

Example:
  kvxctl get greeting
  kvxctl get users/alice/profile`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	key, err := kv.ParseKey(args[0])
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}

	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	value, ok, err := backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("key %q not found", key)
	}

	pretty, err := value.PrettyJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return nil
}
