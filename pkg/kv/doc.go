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

// Package kv defines the addressing primitives shared by every store
// backend: Segment, Scope, Namespace, Key, and the opaque Value document.
//
// Segments are validated strings safe to use as filesystem path
// components. A Scope is a tree-structured sequence of segments; a Key
// pairs a Scope with a name segment. Values are self-describing JSON
// documents with a minimal typed accessor.
package kv
