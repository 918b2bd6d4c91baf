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
	"sync"
)

// LifecycleHook runs at startup or shutdown. The state is writable while
// hooks run.
type LifecycleHook func(ctx context.Context, a *App) error

type hooks struct {
	mu         sync.Mutex
	onStartup  []LifecycleHook // In order, stops on first error
	onShutdown []LifecycleHook // LIFO, all run
}

// OnStartup registers a hook run by [App.Startup] after the application is
// frozen and before it serves traffic.
//
//	a.OnStartup(func(ctx context.Context, a *app.App) error {
//	    db, err := sql.Open("pgx", dsn)
//	    if err != nil {
//	        return err
//	    }
//	    return a.State().Set("db", db)
//	})
func (a *App) OnStartup(fn LifecycleHook) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onStartup = append(a.hooks.onStartup, fn)
}

// OnShutdown registers a hook run by [App.Shutdown]. Hooks run in reverse
// registration order.
func (a *App) OnShutdown(fn LifecycleHook) {
	a.hooks.mu.Lock()
	defer a.hooks.mu.Unlock()
	a.hooks.onShutdown = append(a.hooks.onShutdown, fn)
}

// Startup freezes the application, runs the startup hooks and seals the
// state. A registration error aborts startup before any hook runs.
func (a *App) Startup(ctx context.Context) error {
	if err := a.Freeze(); err != nil {
		return err
	}

	a.hooks.mu.Lock()
	startup := append([]LifecycleHook(nil), a.hooks.onStartup...)
	a.hooks.mu.Unlock()

	for i, hook := range startup {
		if err := hook(ctx, a); err != nil {
			return fmt.Errorf("startup hook %d failed: %w", i, err)
		}
	}
	a.state.seal(true)
	a.logger.Info("application started", "routes", len(a.infos))
	return nil
}

// Shutdown waits for running after_response hooks and for abandoned
// blocking handlers to release their scopes, runs the shutdown hooks
// with a writable state and flushes metrics. It returns every hook error.
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.background.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown: background request work still running")
	}

	a.state.seal(false)

	a.hooks.mu.Lock()
	shutdown := append([]LifecycleHook(nil), a.hooks.onShutdown...)
	a.hooks.mu.Unlock()

	var errs []error
	for i := len(shutdown) - 1; i >= 0; i-- {
		if err := shutdown[i](ctx, a); err != nil {
			a.logger.Error("shutdown hook failed", "index", i, "error", err)
			errs = append(errs, err)
		}
	}
	if err := a.metrics.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
