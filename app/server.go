// Copyright 2025 The Rivaas Authors
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

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

// Run listens on the configured address and serves until ctx is canceled.
// Pass a context from signal.NotifyContext for graceful shutdown on
// SIGINT and SIGTERM.
func (a *App) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.settings.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.settings.Address, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the startup hooks and serves on ln until ctx is canceled or
// the server fails. Shutdown drains connections within
// Settings.ShutdownTimeout and then runs the shutdown hooks.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.openCache(ctx); err != nil {
		_ = ln.Close()
		return err
	}
	if err := a.Startup(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	addr := ln.Addr().String()
	a.printBanner(addr)
	a.logger.Info("server starting", "address", addr, "environment", a.settings.Environment)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("server shutting down", "reason", context.Cause(gctx))

		// ctx is already done; the drain gets its own deadline.
		sctx, cancel := context.WithTimeout(context.Background(), a.settings.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := srv.Shutdown(sctx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}
		if err := a.Shutdown(sctx); err != nil {
			errs = append(errs, err)
		}
		a.logger.Info("server exited")
		return errors.Join(errs...)
	})
	return g.Wait()
}

// openCache dials the configured remote cache when none was given.
func (a *App) openCache(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	store, err := a.settings.NewCache(ctx)
	if err != nil {
		return fmt.Errorf("open %s cache: %w", a.settings.Cache.Backend, err)
	}
	a.store = store
	if c, ok := store.(io.Closer); ok {
		a.OnShutdown(func(context.Context, *App) error { return c.Close() })
	}
	return nil
}
