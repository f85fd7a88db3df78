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

import (
	"context"
	"strings"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
)

// Open instantiates a Backend for url and namespace. The scheme
// determines the backend: memory:// for the in-process store, local://
// for the on-disk store rooted at the remaining path, and postgres://
// for a SQL store addressed by the full DSN.
func Open(ctx context.Context, url string, namespace kv.Namespace) (Backend, error) {
	switch {
	case url == "memory://" || strings.HasPrefix(url, "memory://"):
		return NewMemoryBackend(namespace), nil

	case strings.HasPrefix(url, "local://"):
		root := strings.TrimPrefix(url, "local://")
		if root == "" {
			return nil, kverrors.ErrUnknownScheme.WithMessage("local:// requires a path").WithDetail("url", url)
		}
		return NewDiskBackend(root, namespace)

	case strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://"):
		return NewSQLBackend(ctx, url, namespace)

	default:
		return nil, kverrors.ErrUnknownScheme.WithDetail("url", url)
	}
}
