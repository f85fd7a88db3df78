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

package health

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) IsEmpty(ctx context.Context) (bool, error) {
	return false, p.err
}

func TestStoreHealthCheck_Healthy(t *testing.T) {
	check := NewStoreHealthCheck(&fakePinger{})

	result := check.Check(context.Background())
	if !result.IsHealthy() {
		t.Errorf("status = %v, want healthy", result.Status)
	}
}

func TestStoreHealthCheck_Unhealthy(t *testing.T) {
	check := NewStoreHealthCheck(&fakePinger{err: errors.New("connection refused")})

	result := check.Check(context.Background())
	if !result.IsUnhealthy() {
		t.Errorf("status = %v, want unhealthy", result.Status)
	}
	if result.Message == "" {
		t.Error("unhealthy result should include a message")
	}
}
