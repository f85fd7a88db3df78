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

// Package errors provides the structured error type shared by the kv
// identifier, store, and queue packages.
//
// The package defines a comprehensive error system with:
//
//   - Categorized errors for different failure domains
//   - Rich error context with details
//   - Standard Go error wrapping support
//   - Type-safe error checking
//
// # Error Categories
//
// Errors are organized into categories:
//
//   - Validation: malformed segments, scopes, or values
//   - Config: unsupported or malformed backend configuration
//   - NotFound: missing keys, scopes, or tasks
//   - Conflict: non-empty scope/namespace, serialization conflicts
//   - IO: disk backend filesystem failures
//   - DB: SQL backend driver failures
//   - Internal: internal invariant violations
//   - User: errors returned by caller-supplied closures
//
// # Creating Errors
//
// Use predefined errors:
//
//	err := errors.ErrUnknownKey.WithDetail("key", key.String())
//
// Or create custom errors:
//
//	err := errors.New(
//	    errors.CategoryValidation,
//	    "CUSTOM_ERROR",
//	    "custom error message",
//	)
//
// # Wrapping Errors
//
// Wrap errors to add context:
//
//	if _, err := kv.ParseSegment(s); err != nil {
//	    return errors.ErrInvalidSegment.
//	        WithMessage("segment validation failed").
//	        Wrap(err)
//	}
//
// # Error Checking
//
// Check error types using standard Go patterns:
//
//	// Check if error matches a specific type
//	if errors.Is(err, errors.ErrUnknownKey) {
//	    // handle not found
//	}
//
//	// Extract error details
//	var kvErr *errors.Error
//	if errors.As(err, &kvErr) {
//	    log.Printf("Code: %s, Details: %v", kvErr.Code, kvErr.Details)
//	}
package errors
