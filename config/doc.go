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

// Package config provides configuration management for kvxctl and any
// process embedding the store and queue.
//
// The configuration system supports multiple sources with the following precedence:
//   1. Environment variables (prefixed with KVX_)
//   2. Configuration file (YAML or JSON)
//   3. Default values
//
// # Configuration Structure
//
// The configuration is organized into sections:
//   - Store: backend URL and namespace
//   - Queue: cleanup and polling tunables
//   - Server: HTTP server settings used by `kvxctl serve`
//   - Logging: logging level, format, and output
//   - Metrics: metrics endpoint configuration
//
// # Usage
//
// Loading configuration from a file, then applying environment overrides:
//
//	cfg, err := config.LoadFromFile("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Loading configuration the way kvxctl does, layering flags bound to a
// viper.Viper over the config file and environment:
//
//	cfg, err := config.LoadWithViper(v, configPath)
//
// Environment variable override:
//
//	export KVX_STORE_URL="postgres://localhost/kvx"
//	export KVX_STORE_NAMESPACE="prod"
//	export KVX_LOGGING_LEVEL="debug"
//
// # Validation
//
// All configuration is validated before use. Validation rules include:
//   - Store URL must use a supported scheme (memory://, local://, postgres://, postgresql://)
//   - Store namespace must not be empty
//   - Server port must be between 1 and 65535
//   - Logging level must be one of debug, info, warn, error
//
// See the Config.Validate() method for complete validation rules.
package config
