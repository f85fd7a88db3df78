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

// Command kvxctl operates a kvx store and task queue from the command
// line: point it at a backend URL and it exposes the backend contract
// and queue operations as subcommands, or runs a long-lived server for
// a queue worker.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NLnetLabs/kvx/config"
)

var (
	cfgFile  string
	storeURL string
	storeNS  string
)

var rootCmd = &cobra.Command{
	Use:   "kvxctl",
	Short: "Operate a kvx store and task queue",
	Long: `kvxctl opens a kvx store and exposes its keys, scopes, and task
queue as subcommands.

Configuration can be provided via:
  - a YAML or JSON config file (--config)
  - environment variables (KVX_STORE_URL, KVX_STORE_NAMESPACE, ...)
  - command-line flags (highest priority)

Example:
  kvxctl --store-url memory:// put greeting '"hello"'
  kvxctl --store-url local:///var/lib/kvx get greeting
  kvxctl queue schedule send-email '{"to":"a@example.com"}'`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store-url", "", "backend URL (memory://, local://PATH, postgres://...)")
	rootCmd.PersistentFlags().StringVar(&storeNS, "namespace", "", "store namespace")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listKeysCmd)
	rootCmd.AddCommand(listScopesCmd)
	rootCmd.AddCommand(migrateNamespaceCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration from the config file,
// environment, and the persistent flags bound on cmd, in that order of
// increasing precedence, via viper.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := v.BindPFlag("store.url", cmd.Root().PersistentFlags().Lookup("store-url")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("store.namespace", cmd.Root().PersistentFlags().Lookup("namespace")); err != nil {
		return nil, err
	}
	return config.LoadWithViper(v, cfgFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
