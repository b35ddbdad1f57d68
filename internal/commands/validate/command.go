// Copyright 2025 Tom Barlow
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

// Package validate implements the "venomqa validate" subcommand:
// construction-time invariant checking only, no network calls.
package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/venomqa/venomqa/internal/cli"
	venomconfig "github.com/venomqa/venomqa/internal/config"
	"github.com/venomqa/venomqa/internal/journeys"
)

// NewCommand returns the "validate" subcommand.
func NewCommand(flags *cli.GlobalFlags) *cobra.Command {
	var journeyName string

	cmd := &cobra.Command{
		Use:   "validate <base-url>",
		Short: "Check a journey's construction-time invariants without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.ConfigPath != "" {
				cfg, err := venomconfig.Load(flags.ConfigPath)
				if err != nil {
					return cli.NewConfigError("loading config", err)
				}
				if err := cfg.Validate(); err != nil {
					return cli.NewConfigError("config failed validation", err)
				}
			}

			switch journeyName {
			case "smoke", "":
				if _, _, err := journeys.Smoke(args[0]); err != nil {
					return cli.NewConfigError("journey failed construction-time validation", err)
				}
			default:
				return cli.NewConfigError("unknown journey", fmt.Errorf("%q", journeyName))
			}

			fmt.Fprintln(os.Stdout, "ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&journeyName, "journey", "smoke", "name of the built-in journey to validate")
	return cmd
}
