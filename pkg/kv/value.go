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
	"bytes"
	"encoding/json"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
)

// Value is a self-describing, serialisable document, semantically
// equivalent to a JSON value. The store treats values opaquely; the
// only typed accessor it exposes is AsInteger.
type Value struct {
	raw json.RawMessage
}

// NewValue marshals v (any JSON-serialisable payload) into a Value.
func NewValue(v interface{}) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, kverrors.ErrInvalidValue.Wrap(err)
	}
	return Value{raw: data}, nil
}

// NewInteger constructs a Value holding an integer.
func NewInteger(n int64) Value {
	v, _ := NewValue(n)
	return v
}

// NewStringValue constructs a Value holding a string.
func NewStringValue(s string) Value {
	v, _ := NewValue(s)
	return v
}

// ParseValue interprets raw JSON bytes as a Value, validating that they
// are well-formed JSON.
func ParseValue(raw []byte) (Value, error) {
	if !json.Valid(raw) {
		return Value{}, kverrors.ErrInvalidValue.WithDetail("raw", string(raw))
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return Value{raw: cp}, nil
}

// IsZero reports whether v was never assigned a document.
func (v Value) IsZero() bool {
	return v.raw == nil
}

// Bytes returns the value's raw JSON encoding. The caller must not
// mutate the returned slice.
func (v Value) Bytes() []byte {
	return v.raw
}

// PrettyJSON returns the value's pretty-printed JSON encoding, as
// written to disk by the disk backend.
func (v Value) PrettyJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, v.raw, "", "  "); err != nil {
		return nil, kverrors.ErrInvalidValue.Wrap(err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the value's JSON document into target.
func (v Value) Unmarshal(target interface{}) error {
	if v.raw == nil {
		return kverrors.ErrInvalidValue.WithMessage("value has no document")
	}
	if err := json.Unmarshal(v.raw, target); err != nil {
		return kverrors.ErrInvalidValue.Wrap(err)
	}
	return nil
}

// AsInteger returns the value as an int64 and true if the document is a
// JSON number representable as an integer; otherwise it returns (0,
// false).
func (v Value) AsInteger() (int64, bool) {
	if v.raw == nil {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var num json.Number
	if err := dec.Decode(&num); err != nil {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return n, true
}

// Equal reports whether v and other encode byte-identical JSON
// documents.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v.raw, other.raw)
}

// MarshalJSON implements json.Marshaler by emitting the value's raw
// document, so Values embed transparently in larger JSON structures
// (queue task records, SQL JSONB columns).
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	cp := make(json.RawMessage, len(data))
	copy(cp, data)
	v.raw = cp
	return nil
}
