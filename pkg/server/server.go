// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server assembles the full agent runtime: storage, scheduler,
// worker, task manager, push dispatcher and both protocol surfaces
// (JSON-RPC over HTTP and gRPC), with one graceful shutdown path.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/auth"
	"github.com/getbindu/bindu-go/pkg/config"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/manager"
	"github.com/getbindu/bindu-go/pkg/push"
	"github.com/getbindu/bindu-go/pkg/scheduler"
	"github.com/getbindu/bindu-go/pkg/storage"
	"github.com/getbindu/bindu-go/pkg/telemetry"
	"github.com/getbindu/bindu-go/pkg/transport"
	"github.com/getbindu/bindu-go/pkg/worker"
)

const shutdownGrace = 15 * time.Second

// Server owns the wired components for one agent process.
type Server struct {
	cfg      config.Settings
	manifest a2a.AgentManifest

	store      storage.Storage
	sched      scheduler.Scheduler
	mgr        *manager.TaskManager
	worker     *worker.Worker
	dispatcher *push.Dispatcher

	httpServer *http.Server
	grpcServer *grpc.Server

	telemetryShutdown telemetry.ShutdownFunc

	log *slog.Logger
}

// Option customizes optional server collaborators.
type Option func(*options)

type options struct {
	keyResolver auth.KeyResolver
}

// WithKeyResolver installs the lookup used to verify DID-signed requests
// from other agents. Without it, signature headers are not checked.
func WithKeyResolver(resolve auth.KeyResolver) Option {
	return func(o *options) { o.keyResolver = resolve }
}

// New wires every component from configuration. The handler is the agent's
// business logic; everything around it comes from cfg.
func New(cfg config.Settings, manifest a2a.AgentManifest, handler worker.Handler, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	store, err := storage.Open(cfg.Storage, manifest.DID)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	sched, err := scheduler.Open(cfg.Scheduler)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open scheduler: %w", err)
	}

	validator, err := auth.NewValidator(cfg.Auth)
	if err != nil {
		sched.Close()
		store.Close()
		return nil, fmt.Errorf("failed to configure auth: %w", err)
	}

	mgr := manager.New(store, sched, manifest)
	dispatcher := push.NewDispatcher(store, nil)
	w := worker.New(store, sched, handler, dispatcher)

	metrics := transport.NewMetrics()
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           transport.NewRouter(mgr, validator, o.keyResolver, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := &Server{
		cfg:        cfg,
		manifest:   manifest,
		store:      store,
		sched:      sched,
		mgr:        mgr,
		worker:     w,
		dispatcher: dispatcher,
		httpServer: httpServer,
		log:        logger.Component("server"),
	}

	if cfg.GRPC.Enabled {
		srv.grpcServer, err = transport.NewGRPCServer(cfg.GRPC, mgr, validator)
		if err != nil {
			sched.Close()
			store.Close()
			return nil, err
		}
	}

	return srv, nil
}

// Run blocks until ctx is canceled or a listener fails, then shuts the
// whole stack down in dependency order.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, s.cfg.Telemetry, s.manifest.Name, s.manifest.Version)
	if err != nil {
		return err
	}
	s.telemetryShutdown = shutdownTelemetry

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.worker.Start(groupCtx)
		return nil
	})

	group.Go(func() error {
		s.log.Info("http server listening",
			"addr", s.httpServer.Addr,
			"agent", s.manifest.Name,
			"did", s.manifest.DID)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if s.grpcServer != nil {
		addr := fmt.Sprintf("%s:%d", s.cfg.GRPC.Host, s.cfg.GRPC.Port)
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			cancel()
			group.Wait()
			return fmt.Errorf("grpc listen on %s: %w", addr, err)
		}
		group.Go(func() error {
			s.log.Info("grpc server listening", "addr", addr)
			if err := s.grpcServer.Serve(listener); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		s.shutdown()
		return nil
	})

	err = group.Wait()
	s.log.Info("server stopped")
	return err
}

// shutdown stops accepting requests, waits for in-flight deliveries and
// closes the backends.
func (s *Server) shutdown() {
	s.log.Info("shutting down")
	s.mgr.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn("http shutdown incomplete", "error", err)
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	s.dispatcher.Wait()

	if err := s.sched.Close(); err != nil {
		s.log.Warn("scheduler close failed", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.log.Warn("storage close failed", "error", err)
	}
	if s.telemetryShutdown != nil {
		if err := s.telemetryShutdown(ctx); err != nil {
			s.log.Warn("telemetry shutdown failed", "error", err)
		}
	}
}

// Manager exposes the task manager, mainly for embedding and tests.
func (s *Server) Manager() *manager.TaskManager { return s.mgr }
