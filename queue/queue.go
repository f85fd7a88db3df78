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
	"context"
	"time"

	kverrors "github.com/NLnetLabs/kvx/pkg/errors"
	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/store"
)

// ScheduleMode controls schedule_task's behavior toward a task that
// already exists somewhere in the queue.
type ScheduleMode int

const (
	// FinishOrReplaceExisting marks a running task to return to pending
	// on finish, or upserts directly into pending if not running.
	FinishOrReplaceExisting ScheduleMode = iota
	// ReplaceExisting unconditionally removes the task from running and
	// pending and inserts it fresh into pending. A copy in finished is
	// left in place.
	ReplaceExisting
	// IfMissing is a no-op if the task exists anywhere in the queue.
	IfMissing
)

var (
	pendingScope  = kv.NewScope(kv.MustSegment("pending"))
	runningScope  = kv.NewScope(kv.MustSegment("running"))
	finishedScope = kv.NewScope(kv.MustSegment("finished"))
)

const (
	defaultRescheduleAfter = 15 * time.Minute
	defaultRemoveAfter     = 7 * 24 * time.Hour
)

// Queue is a scheduled task queue layered on a store.Backend.
type Queue struct {
	backend store.Backend
}

// New wraps backend as a task queue. The backend's namespace is used
// exclusively for pending, running, and finished scopes; callers should
// not otherwise use keys under those scopes.
func New(backend store.Backend) *Queue {
	return &Queue{backend: backend}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// ScheduleTask creates or updates a task named name. whenMs is the time
// the task becomes eligible for claim; a nil whenMs means now.
func (q *Queue) ScheduleTask(ctx context.Context, name kv.Segment, value kv.Value, whenMs *int64, mode ScheduleMode) error {
	scheduled := nowMs()
	if whenMs != nil {
		scheduled = *whenMs
	}

	return store.Transaction(ctx, q.backend, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
		pendingKey := kv.NewScopedKey(pendingScope, name)
		runningKey := kv.NewScopedKey(runningScope, name)
		finishedKey := kv.NewScopedKey(finishedScope, name)

		switch mode {
		case IfMissing:
			for _, k := range []kv.Key{pendingKey, runningKey, finishedKey} {
				has, err := tx.Has(ctx, k)
				if err != nil {
					return err
				}
				if has {
					return nil
				}
			}
			return storeTaskRecord(ctx, tx, pendingKey, taskRecord{Value: value.Bytes(), ScheduledMs: scheduled})

		case ReplaceExisting:
			if err := tx.Delete(ctx, runningKey); err != nil {
				return err
			}
			if err := tx.Delete(ctx, pendingKey); err != nil {
				return err
			}
			return storeTaskRecord(ctx, tx, pendingKey, taskRecord{Value: value.Bytes(), ScheduledMs: scheduled})

		case FinishOrReplaceExisting:
			runningVal, ok, err := tx.Get(ctx, runningKey)
			if err != nil {
				return err
			}
			if ok {
				rec, decodeErr := decodeTask(runningVal)
				if decodeErr != nil {
					return decodeErr
				}
				rec.Value = value.Bytes()
				rec.ScheduledMs = scheduled
				rec.RescheduleOnFinish = true
				return storeTaskRecord(ctx, tx, runningKey, rec)
			}
			return storeTaskRecord(ctx, tx, pendingKey, taskRecord{Value: value.Bytes(), ScheduledMs: scheduled})

		default:
			return kverrors.ErrInvalidValue.WithMessage("unknown schedule mode")
		}
	})
}

func storeTaskRecord(ctx context.Context, tx store.Backend, key kv.Key, rec taskRecord) error {
	v, err := encodeTask(rec)
	if err != nil {
		return err
	}
	return tx.Store(ctx, key, v)
}

// ClaimScheduledPendingTask finds the pending task with the smallest
// scheduled_ms at or before now, moves it to running, and returns it.
// It returns ok=false if no task is currently eligible.
func (q *Queue) ClaimScheduledPendingTask(ctx context.Context) (task Task, ok bool, err error) {
	err = store.Transaction(ctx, q.backend, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
		keys, listErr := tx.ListKeys(ctx, pendingScope)
		if listErr != nil {
			return listErr
		}

		now := nowMs()
		var bestKey kv.Key
		var bestRec taskRecord
		found := false

		for _, k := range keys {
			v, has, getErr := tx.Get(ctx, k)
			if getErr != nil {
				return getErr
			}
			if !has {
				continue
			}
			rec, decodeErr := decodeTask(v)
			if decodeErr != nil {
				return decodeErr
			}
			if rec.ScheduledMs > now {
				continue
			}
			if !found || rec.ScheduledMs < bestRec.ScheduledMs {
				bestKey, bestRec, found = k, rec, true
			}
		}

		if !found {
			return nil
		}

		claimMs := now
		bestRec.ClaimMs = &claimMs
		runningKey := kv.NewScopedKey(runningScope, bestKey.Name)
		if storeErr := storeTaskRecord(ctx, tx, runningKey, bestRec); storeErr != nil {
			return storeErr
		}
		if delErr := tx.Delete(ctx, bestKey); delErr != nil {
			return delErr
		}

		t, convErr := bestRec.toTask(bestKey.Name, StateRunning)
		if convErr != nil {
			return convErr
		}
		task, ok = t, true
		return nil
	})
	return task, ok, err
}

// FinishRunningTask moves the named task from running to finished,
// unless it was scheduled for replacement while running, in which case
// it moves back to pending with its replacement value.
func (q *Queue) FinishRunningTask(ctx context.Context, name kv.Segment) error {
	return store.Transaction(ctx, q.backend, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
		runningKey := kv.NewScopedKey(runningScope, name)
		v, has, err := tx.Get(ctx, runningKey)
		if err != nil {
			return err
		}
		if !has {
			return kverrors.ErrUnknownTask.WithDetail("task", name.String())
		}
		rec, err := decodeTask(v)
		if err != nil {
			return err
		}

		if err := tx.Delete(ctx, runningKey); err != nil {
			return err
		}

		if rec.RescheduleOnFinish {
			rec.RescheduleOnFinish = false
			rec.ClaimMs = nil
			return storeTaskRecord(ctx, tx, kv.NewScopedKey(pendingScope, name), rec)
		}

		finishedMs := nowMs()
		rec.FinishedMs = &finishedMs
		return storeTaskRecord(ctx, tx, kv.NewScopedKey(finishedScope, name), rec)
	})
}

// RescheduleFinishedTask moves a finished task back to pending with a
// new scheduled time.
func (q *Queue) RescheduleFinishedTask(ctx context.Context, name kv.Segment, whenMs int64) error {
	return store.Transaction(ctx, q.backend, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) error {
		finishedKey := kv.NewScopedKey(finishedScope, name)
		v, has, err := tx.Get(ctx, finishedKey)
		if err != nil {
			return err
		}
		if !has {
			return kverrors.ErrUnknownTask.WithDetail("task", name.String())
		}
		rec, err := decodeTask(v)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, finishedKey); err != nil {
			return err
		}
		rec.ScheduledMs = whenMs
		rec.ClaimMs = nil
		rec.FinishedMs = nil
		return storeTaskRecord(ctx, tx, kv.NewScopedKey(pendingScope, name), rec)
	})
}

// CleanupResult reports the counts Cleanup moved or removed.
type CleanupResult struct {
	Rescheduled int
	Removed     int
}

// Cleanup reschedules running tasks claimed longer than rescheduleAfter
// ago back to pending, and deletes finished tasks older than
// removeAfter. Zero durations select the defaults (15 minutes, 7 days).
func (q *Queue) Cleanup(ctx context.Context, rescheduleAfter, removeAfter time.Duration) (CleanupResult, error) {
	if rescheduleAfter <= 0 {
		rescheduleAfter = defaultRescheduleAfter
	}
	if removeAfter <= 0 {
		removeAfter = defaultRemoveAfter
	}

	result, err := store.Execute(ctx, q.backend, kv.GlobalScope(), func(ctx context.Context, tx store.Backend) (CleanupResult, error) {
		var res CleanupResult
		now := nowMs()

		runningKeys, err := tx.ListKeys(ctx, runningScope)
		if err != nil {
			return res, err
		}
		rescheduleBefore := now - rescheduleAfter.Milliseconds()
		for _, k := range runningKeys {
			v, has, getErr := tx.Get(ctx, k)
			if getErr != nil {
				return res, getErr
			}
			if !has {
				continue
			}
			rec, decodeErr := decodeTask(v)
			if decodeErr != nil {
				return res, decodeErr
			}
			if rec.ClaimMs == nil || *rec.ClaimMs > rescheduleBefore {
				continue
			}
			rec.ClaimMs = nil
			if delErr := tx.Delete(ctx, k); delErr != nil {
				return res, delErr
			}
			if storeErr := storeTaskRecord(ctx, tx, kv.NewScopedKey(pendingScope, k.Name), rec); storeErr != nil {
				return res, storeErr
			}
			res.Rescheduled++
		}

		finishedKeys, err := tx.ListKeys(ctx, finishedScope)
		if err != nil {
			return res, err
		}
		removeBefore := now - removeAfter.Milliseconds()
		for _, k := range finishedKeys {
			v, has, getErr := tx.Get(ctx, k)
			if getErr != nil {
				return res, getErr
			}
			if !has {
				continue
			}
			rec, decodeErr := decodeTask(v)
			if decodeErr != nil {
				return res, decodeErr
			}
			if rec.FinishedMs == nil || *rec.FinishedMs > removeBefore {
				continue
			}
			if delErr := tx.Delete(ctx, k); delErr != nil {
				return res, delErr
			}
			res.Removed++
		}

		return res, nil
	})

	if err == nil && Collector != nil {
		Collector.SetGauge("kvx_queue_cleanup_rescheduled", float64(result.Rescheduled), metricsNoLabels())
		Collector.SetGauge("kvx_queue_cleanup_removed", float64(result.Removed), metricsNoLabels())
	}
	return result, err
}
