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

package queue

import (
	"encoding/json"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
)

// TaskState is the reserved scope a task currently lives in.
type TaskState string

const (
	StatePending  TaskState = "pending"
	StateRunning  TaskState = "running"
	StateFinished TaskState = "finished"
)

// Task is a scheduled unit of work addressed by name within one of the
// queue's three reserved scopes.
type Task struct {
	Name        kv.Segment
	Value       kv.Value
	State       TaskState
	ScheduledMs int64
	ClaimMs     *int64
	FinishedMs  *int64
}

// taskRecord is the on-the-wire shape stored at a task's key; it carries
// the user value alongside queue bookkeeping.
type taskRecord struct {
	Value              json.RawMessage `json:"value"`
	ScheduledMs        int64           `json:"scheduled_ms"`
	ClaimMs            *int64          `json:"claim_ms,omitempty"`
	FinishedMs         *int64          `json:"finished_ms,omitempty"`
	RescheduleOnFinish bool            `json:"reschedule_on_finish,omitempty"`
}

func encodeTask(rec taskRecord) (kv.Value, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return kv.Value{}, kverrors.ErrInvalidValue.Wrap(err)
	}
	return kv.ParseValue(raw)
}

func decodeTask(v kv.Value) (taskRecord, error) {
	var rec taskRecord
	if err := v.Unmarshal(&rec); err != nil {
		return taskRecord{}, err
	}
	return rec, nil
}

func (r taskRecord) toTask(name kv.Segment, state TaskState) (Task, error) {
	val, err := kv.ParseValue(r.Value)
	if err != nil {
		return Task{}, err
	}
	return Task{
		Name:        name,
		Value:       val,
		State:       state,
		ScheduledMs: r.ScheduledMs,
		ClaimMs:     r.ClaimMs,
		FinishedMs:  r.FinishedMs,
	}, nil
}
