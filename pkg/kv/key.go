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

package kv

import "strings"

// Key pairs a Scope with a name Segment. A key whose scope is the
// global scope is a "global key".
type Key struct {
	Scope Scope
	Name  Segment
}

// NewGlobalKey builds a key with the global scope.
func NewGlobalKey(name Segment) Key {
	return Key{Scope: GlobalScope(), Name: name}
}

// NewScopedKey builds a key addressed within scope.
func NewScopedKey(scope Scope, name Segment) Key {
	return Key{Scope: NewScope(scope...), Name: name}
}

// ParseKey parses a canonical "/"-joined key string, the last segment
// being the key name and any preceding segments forming the scope.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		name, err := ParseSegment(s)
		if err != nil {
			return Key{}, err
		}
		return NewGlobalKey(name), nil
	}
	scope, err := ParseScope(s[:idx])
	if err != nil {
		return Key{}, err
	}
	name, err := ParseSegment(s[idx+1:])
	if err != nil {
		return Key{}, err
	}
	return NewScopedKey(scope, name), nil
}

// String renders the key's canonical form: scope segments then name,
// joined by "/".
func (k Key) String() string {
	if k.Scope.IsGlobal() {
		return k.Name.String()
	}
	return k.Scope.String() + "/" + k.Name.String()
}

// Equal reports whether k and other address the same scope and name.
func (k Key) Equal(other Key) bool {
	return k.Scope.Equal(other.Scope) && k.Name == other.Name
}

// Less defines a total ordering over keys: by scope, then by name.
func (k Key) Less(other Key) bool {
	if k.Scope.Equal(other.Scope) {
		return k.Name < other.Name
	}
	return k.Scope.Less(other.Scope)
}
