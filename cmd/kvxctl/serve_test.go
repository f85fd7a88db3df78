// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"testing"
	"time"

	"github.com/NLnetLabs/kvx/config"
	"github.com/NLnetLabs/kvx/observability"
	"github.com/NLnetLabs/kvx/observability/health"
	"github.com/NLnetLabs/kvx/pkg/kv"
	"github.com/NLnetLabs/kvx/queue"
	"github.com/NLnetLabs/kvx/store"
)

func TestServeCmdHasAddrFlag(t *testing.T) {
	if serveCmd.Flags().Lookup("addr") == nil {
		t.Fatal("expected serve command to have an addr flag")
	}
}

func TestRunQueueWorkerCleansUpUntilCancelled(t *testing.T) {
	backend := store.NewMemoryBackend(kv.MustNamespace("default"))
	defer backend.Close()

	manager, err := observability.NewManager(&observability.ManagerConfig{
		InstanceID:   "test-serve",
		Config:       observability.DefaultConfig(),
		StoreChecker: health.NewStoreHealthCheck(backend),
	})
	if err != nil {
		t.Fatalf("failed to build manager: %v", err)
	}
	defer manager.Shutdown(context.Background())

	q := queue.New(backend)
	cfg := config.DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runQueueWorker(ctx, manager, q, cfg, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runQueueWorker did not return after context cancellation")
	}
}
