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
	"testing"
	"time"
)

func TestConfig_Validate_ServerTimeouts(t *testing.T) {
	tests := []struct {
		name    string
		server  ServerConfig
		wantErr bool
	}{
		{
			name: "negative read timeout",
			server: ServerConfig{
				Host:         "0.0.0.0",
				Port:         8080,
				ReadTimeout:  -1 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "zero read timeout",
			server: ServerConfig{
				Host:         "0.0.0.0",
				Port:         8080,
				ReadTimeout:  0,
				WriteTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "negative write timeout",
			server: ServerConfig{
				Host:         "0.0.0.0",
				Port:         8080,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: -1 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "zero write timeout",
			server: ServerConfig{
				Host:         "0.0.0.0",
				Port:         8080,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Server = tt.server

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_StoreSchemes(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "memory scheme", url: "memory://", wantErr: false},
		{name: "local scheme", url: "local:///var/lib/kvx", wantErr: false},
		{name: "postgres scheme", url: "postgres://localhost/kvx", wantErr: false},
		{name: "postgresql scheme", url: "postgresql://localhost/kvx", wantErr: false},
		{name: "unsupported scheme", url: "redis://localhost", wantErr: true},
		{name: "scheme-less path", url: "/var/lib/kvx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Store.URL = tt.url

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_QueueDurations(t *testing.T) {
	tests := []struct {
		name    string
		queue   QueueConfig
		wantErr bool
	}{
		{
			name:    "negative reschedule_after",
			queue:   QueueConfig{RescheduleAfter: -time.Minute, RemoveAfter: time.Hour, PollInterval: time.Second},
			wantErr: true,
		},
		{
			name:    "negative remove_after",
			queue:   QueueConfig{RescheduleAfter: time.Minute, RemoveAfter: -time.Hour, PollInterval: time.Second},
			wantErr: true,
		},
		{
			name:    "negative poll_interval",
			queue:   QueueConfig{RescheduleAfter: time.Minute, RemoveAfter: time.Hour, PollInterval: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Queue = tt.queue

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
