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

// Package journeys holds the journeys cmd/venomqa ships ready to run.
// Arbitrary user-authored journey files are out of scope for this core
// (actions are Go closures, not a data format); a caller embedding this
// module defines journeys the same way this package does and registers
// them under pkg/journey's process-singleton Registry.
package journeys

import (
	"context"
	"fmt"

	"github.com/venomqa/venomqa/pkg/httpcap"
	"github.com/venomqa/venomqa/pkg/journey"
)

// Smoke builds a minimal journey that checks a target service is alive:
// a GET against baseURL+"/health" must not return a 4xx/5xx. Its action
// pulls the HTTP client from the context each call, via WithClient, so
// it's well suited to a single ad hoc run.
func Smoke(baseURL string) (*journey.Journey, journey.MapResolver, error) {
	return buildSmoke(func(ctx context.Context) (httpcap.Client, error) {
		client, ok := ClientFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("smoke journey: no httpcap.Client in context")
		}
		return client, nil
	}, baseURL)
}

// SmokeWithClient builds the same journey as Smoke, but closes directly
// over client instead of reading it from the context. Use this from a
// RunnerFactory so each worker gets its own isolated httpcap.Client
// rather than sharing the one bound to a common run context.
func SmokeWithClient(baseURL string, client httpcap.Client) (*journey.Journey, journey.MapResolver, error) {
	return buildSmoke(func(context.Context) (httpcap.Client, error) {
		return client, nil
	}, baseURL)
}

func buildSmoke(resolveClient func(context.Context) (httpcap.Client, error), baseURL string) (*journey.Journey, journey.MapResolver, error) {
	resolver := journey.MapResolver{
		"health-check": healthCheckAction(baseURL, resolveClient),
	}
	j, err := journey.New("smoke", []journey.Item{
		journey.StepItem(journey.Step{Name: "health-check"}),
	})
	if err != nil {
		return nil, nil, err
	}
	return j, resolver, nil
}

// healthCheckAction closes over baseURL and a client resolver, so the
// same action body serves both Smoke (context lookup) and
// SmokeWithClient (closed-over client).
func healthCheckAction(baseURL string, resolveClient func(context.Context) (httpcap.Client, error)) journey.ActionFunc {
	return func(ctx context.Context, state journey.StepContext) (any, error) {
		client, err := resolveClient(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Get(baseURL+"/health", nil)
		if err != nil {
			return nil, err
		}
		if resp.IsFailure() {
			return nil, fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
}

type clientCtxKey struct{}

// WithClient attaches an httpcap.Client to ctx for actions in this
// package to retrieve.
func WithClient(ctx context.Context, client httpcap.Client) context.Context {
	return context.WithValue(ctx, clientCtxKey{}, client)
}

// ClientFromContext retrieves the httpcap.Client WithClient attached.
func ClientFromContext(ctx context.Context) (httpcap.Client, bool) {
	client, ok := ctx.Value(clientCtxKey{}).(httpcap.Client)
	return client, ok
}
