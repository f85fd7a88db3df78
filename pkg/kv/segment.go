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

import (
	"strings"
	"unicode"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
)

// Segment is a validated, non-empty string safe to use as a filesystem
// path component.
type Segment string

// ParseSegment validates s against the segment grammar: non-empty, no
// path separators, not "." or "..", no leading/trailing whitespace, and
// restricted to printable runes.
func ParseSegment(s string) (Segment, error) {
	if s == "" {
		return "", kverrors.ErrInvalidSegment.WithDetail("segment", s).WithMessage("segment must not be empty")
	}
	if s == "." || s == ".." {
		return "", kverrors.ErrInvalidSegment.WithDetail("segment", s).WithMessage("segment must not be \".\" or \"..\"")
	}
	if strings.ContainsAny(s, "/\\") {
		return "", kverrors.ErrInvalidSegment.WithDetail("segment", s).WithMessage("segment must not contain a path separator")
	}
	if strings.TrimSpace(s) != s {
		return "", kverrors.ErrInvalidSegment.WithDetail("segment", s).WithMessage("segment must not begin or end with whitespace")
	}
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return "", kverrors.ErrInvalidSegment.WithDetail("segment", s).WithMessage("segment must be printable")
		}
	}
	return Segment(s), nil
}

// MustSegment parses s and panics on failure. Intended for constant,
// known-good segments such as the queue's reserved scope names.
func MustSegment(s string) Segment {
	seg, err := ParseSegment(s)
	if err != nil {
		panic(err)
	}
	return seg
}

// String returns the segment's canonical string form.
func (s Segment) String() string {
	return string(s)
}
