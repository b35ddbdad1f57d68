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

// Package run implements the "venomqa run" subcommand: execute one
// journey once against a target base URL.
package run

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/venomqa/venomqa/internal/cli"
	venomconfig "github.com/venomqa/venomqa/internal/config"
	"github.com/venomqa/venomqa/internal/journeys"
	"github.com/venomqa/venomqa/pkg/httpcap"
	"github.com/venomqa/venomqa/pkg/httpclient"
	"github.com/venomqa/venomqa/pkg/journey"
	reportjson "github.com/venomqa/venomqa/pkg/report/json"
	"github.com/venomqa/venomqa/pkg/resilience"
	"github.com/venomqa/venomqa/pkg/result"
	"github.com/venomqa/venomqa/pkg/runner"
)

// NewCommand returns the "run" subcommand.
func NewCommand(flags *cli.GlobalFlags) *cobra.Command {
	var (
		journeyName string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <base-url>",
		Short: "Execute one journey against a target base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := args[0]

			var retryCfg resilience.RetryConfig
			if flags.ConfigPath != "" {
				cfg, err := venomconfig.Load(flags.ConfigPath)
				if err != nil {
					return cli.NewConfigError("loading config", err)
				}
				retryCfg = cfg.ToRetryConfig()
			}

			j, resolver, err := resolveJourney(journeyName, baseURL)
			if err != nil {
				return cli.NewConfigError("building journey", err)
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			httpClient, err := httpclient.New(httpclient.DefaultConfig())
			if err != nil {
				return cli.NewConfigError("building http client", err)
			}
			capClient := httpcap.NewHTTPAdapter(ctx, httpClient)
			ctx = journeys.WithClient(ctx, capClient)

			var opts []runner.Option
			if retryCfg.MaxAttempts > 0 {
				opts = append(opts, runner.WithRetryPolicy("default", resilience.NewRetryPolicy(retryCfg)))
			}

			r := runner.New(resolver, runner.Config{FailFast: false}, opts...)
			jr, err := r.Run(ctx, j)
			if err != nil {
				return cli.NewJourneyFailedError(err.Error())
			}

			reporter := reportjson.New()
			out, err := reporter.Generate([]*result.JourneyResult{jr})
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))

			if !jr.Passed() {
				return cli.NewJourneyFailedError(fmt.Sprintf("journey %q failed", jr.JourneyName))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&journeyName, "journey", "smoke", "name of the built-in journey to run")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall run timeout")

	return cmd
}

// resolveJourney builds the named built-in journey. cmd/venomqa ships
// with exactly one today; a caller embedding this module as a library
// registers its own journeys under pkg/journey's Registry instead of
// extending this switch.
func resolveJourney(name, baseURL string) (*journey.Journey, journey.ActionResolver, error) {
	switch name {
	case "smoke", "":
		j, resolver, err := journeys.Smoke(baseURL)
		return j, resolver, err
	default:
		return nil, nil, fmt.Errorf("unknown journey %q", name)
	}
}
