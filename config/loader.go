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

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a file (YAML or JSON).
// The file format is determined by the file extension (.yaml, .yml, or .json).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := cfg.LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadEnv loads configuration from environment variables.
// Environment variables take precedence over file-based configuration.
// Format: KVX_<SECTION>_<FIELD> (e.g., KVX_STORE_URL).
func (c *Config) LoadEnv() error {
	if v := os.Getenv("KVX_STORE_URL"); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv("KVX_STORE_NAMESPACE"); v != "" {
		c.Store.Namespace = v
	}

	if v := os.Getenv("KVX_SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("KVX_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("KVX_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KVX_METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = v == "true" || v == "1"
	}

	return nil
}

// LoadWithViper builds a Config by layering, in increasing precedence: a
// config file (if configPath is non-empty), environment variables under
// the KVX_ prefix, and any flags already bound to v by the caller. It is
// the loader kvxctl uses so cobra flag values participate in the same
// precedence chain as the file and environment.
func LoadWithViper(v *viper.Viper, configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetEnvPrefix("KVX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.url", cfg.Store.URL)
	v.SetDefault("store.namespace", cfg.Store.Namespace)
	v.SetDefault("queue.reschedule_after", cfg.Queue.RescheduleAfter)
	v.SetDefault("queue.remove_after", cfg.Queue.RemoveAfter)
	v.SetDefault("queue.poll_interval", cfg.Queue.PollInterval)
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.Store.URL = v.GetString("store.url")
	cfg.Store.Namespace = v.GetString("store.namespace")
	cfg.Queue.RescheduleAfter = v.GetDuration("queue.reschedule_after")
	cfg.Queue.RemoveAfter = v.GetDuration("queue.remove_after")
	cfg.Queue.PollInterval = v.GetDuration("queue.poll_interval")
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Metrics.Enabled = v.GetBool("metrics.enabled")
	cfg.Metrics.Port = v.GetInt("metrics.port")
	cfg.Metrics.Path = v.GetString("metrics.path")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
