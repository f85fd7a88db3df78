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
	"fmt"
	"strings"
)

// Validate validates the entire configuration.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.URL == "" {
		return fmt.Errorf("store URL must not be empty")
	}
	validSchemes := []string{"memory://", "local://", "postgres://", "postgresql://"}
	ok := false
	for _, scheme := range validSchemes {
		if strings.HasPrefix(c.Store.URL, scheme) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("store URL must start with one of: %s", strings.Join(validSchemes, ", "))
	}
	if c.Store.Namespace == "" {
		return fmt.Errorf("store namespace must not be empty")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.RescheduleAfter <= 0 {
		return fmt.Errorf("queue reschedule_after must be positive")
	}
	if c.Queue.RemoveAfter <= 0 {
		return fmt.Errorf("queue remove_after must be positive")
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("queue poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging format must be one of: json, text")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535")
	}
	if c.Metrics.Path == "" {
		return fmt.Errorf("metrics path must not be empty")
	}
	return nil
}
