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

// Package cli assembles the venomqa root command: global flags, version
// reporting, and uniform exit-code handling shared by every subcommand.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion records build-time version info (set from main via ldflags).
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// Version returns the recorded build-time version info.
func Version() (string, string, string) {
	return version, commit, buildDate
}

// GlobalFlags are the flags every subcommand reads.
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	JSON       bool
}

// NewRootCommand builds the venomqa root command and its persistent
// flags. Subcommands are attached by the caller.
func NewRootCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venomqa",
		Short: "VenomQA — black-box API journey testing",
		Long: `venomqa drives journeys (ordered steps against an HTTP service, with
optional branching savepoints) against a target system, and can run the
same journey under concurrent load.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "",
		"path to the resilience-stack YAML config (retry/circuit_breakers/load_test)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "emit the JSON report to stdout")

	return cmd
}
