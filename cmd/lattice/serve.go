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

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lattice.dev/lattice/app"
	"lattice.dev/lattice/metrics"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo notes service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := opts.settings(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				s.Address = addr
			}
			return serve(ctx, s)
		},
	}
	cmd.Flags().StringVarP(&addr, "address", "a", "", "listen address, overrides the settings")
	return cmd
}

func serve(ctx context.Context, s app.Settings) (err error) {
	logger, err := s.NewLogger(os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = errors.Join(err, logger.Shutdown(sctx))
	}()

	tp, err := s.NewTracing(ctx, os.Stderr)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if s.Metrics.Enabled {
		rec, err = metrics.New(
			metrics.WithServiceName(s.Name),
			metrics.WithServiceVersion(s.Version),
			metrics.WithLogger(logger.Logger()),
		)
		if err != nil {
			return err
		}
	}

	a, err := newNotesApp(s, logger, rec,
		app.WithTracerProvider(tp),
		app.WithBannerOutput(os.Stdout),
	)
	if err != nil {
		return err
	}
	a.OnShutdown(func(ctx context.Context, _ *app.App) error {
		return tp.Shutdown(ctx)
	})
	return a.Run(ctx)
}
