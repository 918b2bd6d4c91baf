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
	"github.com/spf13/cobra"
)

func routesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of the demo service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.settings(cmd.Context())
			if err != nil {
				return err
			}
			a, err := newNotesApp(s, nil, nil)
			if err != nil {
				return err
			}
			return a.PrintRoutes(cmd.OutOrStdout())
		},
	}
}
