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

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/queue"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Operate the task queue layered on the store",
}

var (
	queueScheduleWhen int64
	queueScheduleMode string
)

var queueScheduleCmd = &cobra.Command{
	Use:   "schedule <name> <json-value>",
	Short: "Schedule a task for claim",
	Long: `Create or update a task. With no --when, the task becomes eligible
immediately.

--mode controls behavior toward a task that already exists somewhere in
the queue: finish-or-replace (default), replace, or if-missing.

Example:
  kvxctl queue schedule send-email '{"to":"a@example.com"}'
  kvxctl queue schedule nightly-report '{}' --when 1735689600000 --mode replace`,
	Args: cobra.ExactArgs(2),
	RunE: runQueueSchedule,
}

var queueClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the next eligible pending task",
	Long: `Find the pending task with the smallest scheduled time at or before
now, move it to running, and print it.`,
	RunE: runQueueClaim,
}

var (
	queueCleanupRescheduleAfter time.Duration
	queueCleanupRemoveAfter     time.Duration
)

var queueCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reschedule stale running tasks and remove old finished tasks",
	RunE:  runQueueCleanup,
}

func init() {
	queueScheduleCmd.Flags().Int64Var(&queueScheduleWhen, "when", 0, "unix milliseconds the task becomes eligible (default: now)")
	queueScheduleCmd.Flags().StringVar(&queueScheduleMode, "mode", "finish-or-replace", "finish-or-replace, replace, or if-missing")

	queueCleanupCmd.Flags().DurationVar(&queueCleanupRescheduleAfter, "reschedule-after", 0, "reschedule running tasks claimed longer ago than this (default: queue config)")
	queueCleanupCmd.Flags().DurationVar(&queueCleanupRemoveAfter, "remove-after", 0, "remove finished tasks older than this (default: queue config)")

	queueCmd.AddCommand(queueScheduleCmd)
	queueCmd.AddCommand(queueClaimCmd)
	queueCmd.AddCommand(queueCleanupCmd)
}

func parseScheduleMode(mode string) (queue.ScheduleMode, error) {
	switch mode {
	case "finish-or-replace", "":
		return queue.FinishOrReplaceExisting, nil
	case "replace":
		return queue.ReplaceExisting, nil
	case "if-missing":
		return queue.IfMissing, nil
	default:
		return 0, fmt.Errorf("unknown schedule mode %q (want finish-or-replace, replace, or if-missing)", mode)
	}
}

func runQueueSchedule(cmd *cobra.Command, args []string) error {
	name, err := kv.ParseSegment(args[0])
	if err != nil {
		return fmt.Errorf("invalid task name: %w", err)
	}
	value, err := kv.ParseValue([]byte(args[1]))
	if err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	mode, err := parseScheduleMode(queueScheduleMode)
	if err != nil {
		return err
	}

	var whenMs *int64
	if cmd.Flags().Changed("when") {
		whenMs = &queueScheduleWhen
	}

	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	q := queue.New(backend)
	if err := q.ScheduleTask(ctx, name, value, whenMs, mode); err != nil {
		return fmt.Errorf("schedule failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s\n", name)
	return nil
}

func runQueueClaim(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, _, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	q := queue.New(backend)
	task, ok, err := q.ClaimScheduledPendingTask(ctx)
	if err != nil {
		return fmt.Errorf("claim failed: %w", err)
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no eligible task")
		return nil
	}

	pretty, err := task.Value.PrettyJSON()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", task.Name, string(pretty))
	return nil
}

func runQueueCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, cfg, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	rescheduleAfter := queueCleanupRescheduleAfter
	if rescheduleAfter <= 0 {
		rescheduleAfter = cfg.Queue.RescheduleAfter
	}
	removeAfter := queueCleanupRemoveAfter
	if removeAfter <= 0 {
		removeAfter = cfg.Queue.RemoveAfter
	}

	q := queue.New(backend)
	result, err := q.Cleanup(ctx, rescheduleAfter, removeAfter)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rescheduled %d, removed %d\n", result.Rescheduled, result.Removed)
	return nil
}
