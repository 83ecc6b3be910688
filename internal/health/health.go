/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package health implements the health prober: per-instance health
// queries used as a readiness gate by the reboot-plan engine and as a
// standalone diagnostic.
package health

import (
	"context"

	"go.smartdc.io/fleetadm/internal/gateway"
)

// Query selects which instances to probe: by server, by instance uuid, or
// by instance type. All fields are optional; an empty Query probes
// everything cnapi is willing to report on.
type Query struct {
	Servers []string
	UUIDs   []string
	Type    string
}

// Checker is the health-probing surface the reboot-plan engine
// depends on, satisfied by *Prober. Abstracted out so the engine can be
// exercised in tests against a go.uber.org/mock double instead of a real
// cnapi round trip.
type Checker interface {
	Check(ctx context.Context, q Query) ([]gateway.InstanceHealth, error)
}

// Prober queries instance health via the compute-node manager.
type Prober struct {
	cnapi *gateway.CNAPI
}

// New builds a Prober.
func New(cnapi *gateway.CNAPI) *Prober {
	return &Prober{cnapi: cnapi}
}

// Check returns the health of every instance matched by q. The definition
// of "healthy" is entirely delegated to cnapi.
func (p *Prober) Check(ctx context.Context, q Query) ([]gateway.InstanceHealth, error) {
	return p.cnapi.CheckHealth(ctx, q.Servers, q.UUIDs, q.Type)
}

// AllHealthy reports whether every result in results is healthy. An empty
// result set is considered healthy (nothing unhealthy was observed), the
// same convention the reboot-plan engine's awaitHealthyServices relies on
// when a node briefly reports zero instances mid-reboot.
func AllHealthy(results []gateway.InstanceHealth) bool {
	for _, r := range results {
		if !r.Healthy {
			return false
		}
	}
	return true
}

// Unhealthy returns the subset of results that are unhealthy, for error
// reporting.
func Unhealthy(results []gateway.InstanceHealth) []gateway.InstanceHealth {
	var out []gateway.InstanceHealth
	for _, r := range results {
		if !r.Healthy {
			out = append(out, r)
		}
	}
	return out
}
