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

// Namespace is the single Segment that scopes an entire store. Two
// stores opened against the same backend URL with different namespaces
// never observe each other's keys.
type Namespace Segment

// ParseNamespace validates s as a namespace segment.
func ParseNamespace(s string) (Namespace, error) {
	seg, err := ParseSegment(s)
	if err != nil {
		return "", err
	}
	return Namespace(seg), nil
}

// MustNamespace parses s and panics on failure.
func MustNamespace(s string) Namespace {
	ns, err := ParseNamespace(s)
	if err != nil {
		panic(err)
	}
	return ns
}

// String returns the namespace's canonical string form.
func (n Namespace) String() string {
	return string(n)
}

// Segment returns the namespace as a plain Segment.
func (n Namespace) Segment() Segment {
	return Segment(n)
}
