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
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/NLnetLabs/kvx/config"
	"github.com/NLnetLabs/kvx/observability"
	"github.com/NLnetLabs/kvx/observability/health"
	"github.com/NLnetLabs/kvx/observability/logging"
	"github.com/NLnetLabs/kvx/queue"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a long-lived queue worker with a health/metrics HTTP server",
	Long: `Start an HTTP server exposing /healthz and /metrics, and poll the
task queue on the interval configured under queue.poll_interval,
reclaiming stale running tasks and removing old finished tasks.

Example:
  kvxctl serve
  kvxctl serve --addr :9090`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address for the health/metrics HTTP server (default: config server.host:server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	backend, cfg, err := openBackendFromFlags(ctx, cmd)
	if err != nil {
		return err
	}
	defer backend.Close()

	manager, err := observability.NewManager(&observability.ManagerConfig{
		InstanceID:   "kvxctl-serve",
		Config:       observability.DefaultConfig(),
		StoreChecker: health.NewStoreHealthCheck(backend),
	})
	if err != nil {
		return fmt.Errorf("failed to start observability: %w", err)
	}
	defer manager.Shutdown(context.Background())

	addr := serveAddr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	router := mux.NewRouter()
	router.Handle("/healthz", health.Handler(manager.ReadinessChecker()))
	router.Handle("/metrics", manager.Collector().Handler())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	q := queue.New(backend)
	pollInterval := cfg.Queue.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go runQueueWorker(workerCtx, manager, q, cfg, pollInterval)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("kvxctl serve listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	manager.MarkReady()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// runQueueWorker periodically reclaims stale running tasks and removes
// old finished tasks until ctx is cancelled.
func runQueueWorker(ctx context.Context, manager *observability.Manager, q *queue.Queue, cfg *config.Config, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := q.Cleanup(ctx, cfg.Queue.RescheduleAfter, cfg.Queue.RemoveAfter)
			if err != nil {
				manager.Logger().Error(ctx, "queue cleanup failed", logging.String("error", err.Error()))
				continue
			}
			if result.Rescheduled > 0 || result.Removed > 0 {
				manager.Logger().Info(ctx, "queue cleanup",
					logging.Int("rescheduled", result.Rescheduled),
					logging.Int("removed", result.Removed),
				)
			}
		}
	}
}
