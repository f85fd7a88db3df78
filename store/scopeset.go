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

package store

import "github.com/NLnetLabs/kvx/pkg/kv"

// expandAncestorScopes takes the canonical string form of every scope
// that directly holds at least one key and returns every scope that is
// a prefix of one of them (spec invariant I2: a scope exists iff at
// least one key has that scope as a prefix), each exactly once, never
// including the global scope.
func expandAncestorScopes(literalScopeStrings []string) []kv.Scope {
	seen := make(map[string]kv.Scope)
	for _, scopeStr := range literalScopeStrings {
		scope, err := kv.ParseScope(scopeStr)
		if err != nil {
			continue
		}
		for s := scope; !s.IsGlobal(); {
			seen[s.String()] = s
			parent, _ := s.Parent()
			s = parent
		}
	}
	out := make([]kv.Scope, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	return out
}
