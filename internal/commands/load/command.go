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

// Package load implements the "venomqa load" subcommand: drive the load
// engine against a target base URL using the load_test: section of the
// resilience-stack config.
package load

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/venomqa/venomqa/internal/cli"
	venomconfig "github.com/venomqa/venomqa/internal/config"
	"github.com/venomqa/venomqa/internal/journeys"
	"github.com/venomqa/venomqa/pkg/httpcap"
	"github.com/venomqa/venomqa/pkg/httpclient"
	"github.com/venomqa/venomqa/pkg/loadtest"
	"github.com/venomqa/venomqa/pkg/runner"
)

// NewCommand returns the "load" subcommand.
func NewCommand(flags *cli.GlobalFlags) *cobra.Command {
	var (
		users            int
		duration         time.Duration
		maxP99           time.Duration
		minThroughputRPS float64
		maxErrorRatePct  float64
	)

	cmd := &cobra.Command{
		Use:   "load <base-url>",
		Short: "Drive the load engine against a target base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := args[0]

			ltCfg := loadtest.Config{
				DurationSeconds: duration.Seconds(),
				ConcurrentUsers: users,
			}
			if flags.ConfigPath != "" {
				cfg, err := venomconfig.Load(flags.ConfigPath)
				if err != nil {
					return cli.NewConfigError("loading config", err)
				}
				ltCfg = cfg.ToLoadTestConfig()
				if cmd.Flags().Changed("users") {
					ltCfg.ConcurrentUsers = users
				}
				if cmd.Flags().Changed("duration") {
					ltCfg.DurationSeconds = duration.Seconds()
				}
			}

			tester, err := loadtest.New(ltCfg, nil)
			if err != nil {
				return cli.NewConfigError("load test config", err)
			}

			// Each worker gets its own httpcap.Client and its own Journey/
			// resolver pair, so building either inside the run also fails
			// construction-time validation the same way "validate" does.
			j, _, err := journeys.SmokeWithClient(baseURL, nil)
			if err != nil {
				return cli.NewConfigError("building journey", err)
			}

			httpClientCfg := httpclient.DefaultConfig()
			if _, err := httpclient.New(httpClientCfg); err != nil {
				return cli.NewConfigError("building http client", err)
			}

			factory := func() *runner.Runner {
				// httpClientCfg already passed validation above, so this
				// cannot fail.
				httpClient, _ := httpclient.New(httpClientCfg)
				client := httpcap.NewHTTPAdapter(cmd.Context(), httpClient)
				_, resolver, _ := journeys.SmokeWithClient(baseURL, client)
				return runner.New(resolver, runner.Config{})
			}

			res, err := tester.Run(cmd.Context(), j, factory)
			if err != nil {
				return cli.NewJourneyFailedError(err.Error())
			}

			assertions := loadtest.Assertions{}
			if maxP99 > 0 {
				v := float64(maxP99.Milliseconds())
				assertions.MaxP99Ms = &v
			}
			if minThroughputRPS > 0 {
				assertions.MinThroughputRPS = &minThroughputRPS
			}
			if maxErrorRatePct > 0 {
				assertions.MaxErrorRatePercent = &maxErrorRatePct
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(out))

			if passed, failures := assertions.Validate(res); !passed {
				return cli.NewJourneyFailedError(fmt.Sprintf("load test assertions failed: %v", failures))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&users, "users", 10, "concurrent users (overrides config's load_test.users)")
	cmd.Flags().DurationVar(&duration, "duration", 60*time.Second, "test duration (overrides config's load_test.duration)")
	cmd.Flags().DurationVar(&maxP99, "max-p99", 0, "fail if p99 latency exceeds this")
	cmd.Flags().Float64Var(&minThroughputRPS, "min-throughput", 0, "fail if throughput (req/s) falls below this")
	cmd.Flags().Float64Var(&maxErrorRatePct, "max-error-rate", 0, "fail if the error rate (percent) exceeds this")

	return cmd
}
