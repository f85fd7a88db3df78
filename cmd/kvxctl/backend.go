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
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NLnetLabs/kvx/config"
	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/store"
)

// openBackendFromFlags loads the effective configuration for cmd and
// opens the backend it names. Callers must Close the returned backend.
func openBackendFromFlags(ctx context.Context, cmd *cobra.Command) (store.Backend, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	namespace, err := kv.ParseNamespace(cfg.Store.Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid namespace %q: %w", cfg.Store.Namespace, err)
	}

	backend, err := store.Open(ctx, cfg.Store.URL, namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store %q: %w", cfg.Store.URL, err)
	}
	return backend, cfg, nil
}
