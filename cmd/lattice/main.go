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

// Command lattice runs a demo notes service built on the lattice
// framework and inspects its routes.
//
//	lattice serve --config lattice.yaml
//	lattice routes
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lattice.dev/lattice/app"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

const envPrefix = "LATTICE_"

type rootOptions struct {
	configPath string
	envPrefix  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "lattice",
		Short: "Layered routing, dependency injection and dispatch for Go services",
		Long: `lattice serves a demo notes service built from routers, controllers
and handlers whose dependencies are resolved per request.

Settings come from an optional YAML, TOML or JSON file and from
environment variables prefixed with LATTICE_. A double underscore
separates nested keys, so LATTICE_LOG__LEVEL=debug sets log.level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "settings file")
	cmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", envPrefix, "environment variable prefix")

	cmd.AddCommand(
		serveCmd(opts),
		routesCmd(opts),
		versionCmd(),
	)
	return cmd
}

// settings loads the settings selected by the global flags.
func (o *rootOptions) settings(ctx context.Context) (app.Settings, error) {
	s, err := app.LoadSettings(ctx, o.configPath, o.envPrefix)
	if err != nil {
		return app.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if s.Version == "dev" {
		s.Version = version
	}
	return s, nil
}
