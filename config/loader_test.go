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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
store:
  url: "local:///var/lib/kvx"
  namespace: "prod"

server:
  host: "localhost"
  port: 9000

logging:
  level: "debug"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Store.URL != "local:///var/lib/kvx" {
		t.Errorf("Store.URL = %s, want local:///var/lib/kvx", cfg.Store.URL)
	}
	if cfg.Store.Namespace != "prod" {
		t.Errorf("Store.Namespace = %s, want prod", cfg.Store.Namespace)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	jsonContent := `{
  "store": {
    "url": "postgres://localhost/kvx",
    "namespace": "json-ns"
  },
  "metrics": {
    "enabled": true,
    "port": 9091
  }
}`

	if err := os.WriteFile(configPath, []byte(jsonContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Store.Namespace != "json-ns" {
		t.Errorf("Store.Namespace = %s, want json-ns", cfg.Store.Namespace)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("Metrics.Port = %d, want 9091", cfg.Metrics.Port)
	}
}

func TestLoadFromFile_FileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestLoadFromFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
store:
  namespace: test
  invalid: [
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.txt")

	if err := os.WriteFile(configPath, []byte("test"), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected error for unsupported file extension, got nil")
	}
}

func TestLoadFromFile_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
store:
  url: "memory://"
  namespace: ""
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("Expected validation error for empty namespace, got nil")
	}
}

func TestDefaultConfigPreserved(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
store:
  namespace: "minimal"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Store.Namespace != "minimal" {
		t.Errorf("Store.Namespace = %s, want minimal", cfg.Store.Namespace)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s (default)", cfg.Server.ReadTimeout)
	}
	if cfg.Store.URL != "memory://" {
		t.Errorf("Store.URL = %s, want memory:// (default)", cfg.Store.URL)
	}
}

func TestLoadEnv(t *testing.T) {
	testEnv := map[string]string{
		"KVX_STORE_URL":       "local:///tmp/kvx",
		"KVX_STORE_NAMESPACE": "env-ns",
		"KVX_SERVER_HOST":     "env-host",
		"KVX_SERVER_PORT":     "9090",
		"KVX_LOGGING_LEVEL":   "warn",
		"KVX_METRICS_ENABLED": "true",
	}

	for k, v := range testEnv {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Store.URL", cfg.Store.URL, "local:///tmp/kvx"},
		{"Store.Namespace", cfg.Store.Namespace, "env-ns"},
		{"Server.Host", cfg.Server.Host, "env-host"},
		{"Server.Port", cfg.Server.Port, 9090},
		{"Logging.Level", cfg.Logging.Level, "warn"},
		{"Metrics.Enabled", cfg.Metrics.Enabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoadEnv_LeavesUnsetFieldsAlone(t *testing.T) {
	os.Unsetenv("KVX_STORE_URL")
	os.Unsetenv("KVX_STORE_NAMESPACE")

	cfg := DefaultConfig()
	cfg.Store.Namespace = "untouched"
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	if cfg.Store.Namespace != "untouched" {
		t.Errorf("Store.Namespace = %s, want untouched (no env var set)", cfg.Store.Namespace)
	}
}

func TestLoadWithViper_FileAndEnvPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
store:
  url: "local:///file/path"
  namespace: "file-ns"
server:
  port: 7000
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0600); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	os.Setenv("KVX_STORE_NAMESPACE", "env-ns")
	defer os.Unsetenv("KVX_STORE_NAMESPACE")

	v := viper.New()
	cfg, err := LoadWithViper(v, configPath)
	if err != nil {
		t.Fatalf("LoadWithViper failed: %v", err)
	}

	if cfg.Store.Namespace != "env-ns" {
		t.Errorf("Store.Namespace = %s, want env-ns (env should override file)", cfg.Store.Namespace)
	}
	if cfg.Store.URL != "local:///file/path" {
		t.Errorf("Store.URL = %s, want local:///file/path (file value should be preserved)", cfg.Store.URL)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 (file value should be preserved)", cfg.Server.Port)
	}
}

func TestLoadWithViper_DefaultsWithoutFile(t *testing.T) {
	v := viper.New()
	cfg, err := LoadWithViper(v, "")
	if err != nil {
		t.Fatalf("LoadWithViper failed: %v", err)
	}

	if cfg.Store.URL != "memory://" {
		t.Errorf("Store.URL = %s, want memory:// (default)", cfg.Store.URL)
	}
	if cfg.Store.Namespace != "default" {
		t.Errorf("Store.Namespace = %s, want default", cfg.Store.Namespace)
	}
}
