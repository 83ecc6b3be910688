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

// Package reboot implements the reboot-plan engine: node
// classification and batching at plan-creation time, and the per-reboot
// state machine that drives a created plan to completion.
package reboot

import (
	"context"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
)

// NodeClass is a node's role in reboot ordering: core nodes (those
// hosting at least one core VM) always reboot alone and before any
// non-core batch.
type NodeClass string

const (
	ClassCore    NodeClass = "core"
	ClassNonCore NodeClass = "non-core"
)

// ClassifyNodes partitions nodes by whether they host at least one VM
// instance, using the same core-VM identification the inventory already
// applies (owner uuid + smartdc_role tag, surfaced here simply as
// Instance.Kind == InstanceVM since inventory.Instances only emits VM
// instances for core VMs).
func ClassifyNodes(nodes []domain.Node, instances []domain.Instance) map[string]NodeClass {
	coreNodes := make(map[string]bool)
	for _, inst := range instances {
		if inst.Kind == domain.InstanceVM {
			coreNodes[inst.HostNodeID] = true
		}
	}
	out := make(map[string]NodeClass, len(nodes))
	for _, n := range nodes {
		if coreNodes[n.ID] {
			out[n.ID] = ClassCore
		} else {
			out[n.ID] = ClassNonCore
		}
	}
	return out
}

// PlatformWarning flags a plan-creation platform mismatch worth surfacing
// to the operator before confirmation.
type PlatformWarning string

const (
	WarnNone         PlatformWarning = ""
	WarnSamePlatform PlatformWarning = "same-platform"
	WarnDowngrade    PlatformWarning = "downgrade"
)

// CheckPlatform compares a node's current and boot platform. Platform
// versions are lexically ordered date-stamps, so string comparison is
// sufficient to detect a downgrade.
func CheckPlatform(n domain.Node) PlatformWarning {
	switch {
	case n.CurrentPlatform == n.BootPlatform:
		return WarnSamePlatform
	case n.CurrentPlatform > n.BootPlatform:
		return WarnDowngrade
	default:
		return WarnNone
	}
}

// NodeSummary is one line of the plan-creation preview.
type NodeSummary struct {
	Node    domain.Node
	Class   NodeClass
	Warning PlatformWarning
}

// Planner builds and submits reboot plans.
type Planner struct {
	gw *gateway.Gateway
}

// NewPlanner builds a Planner.
func NewPlanner(gw *gateway.Gateway) *Planner {
	return &Planner{gw: gw}
}

// Summarize produces the preview shown to an operator before confirmation.
// Nodes whose only warning is "same platform" are dropped when skipCurrent
// is set (the `--skip-current` flag).
func (p *Planner) Summarize(nodes []domain.Node, classes map[string]NodeClass, skipCurrent bool) []NodeSummary {
	var out []NodeSummary
	for _, n := range nodes {
		w := CheckPlatform(n)
		if w == WarnSamePlatform && skipCurrent {
			continue
		}
		out = append(out, NodeSummary{Node: n, Class: classes[n.ID], Warning: w})
	}
	return out
}

// Create submits a new reboot plan over the given node ids.
func (p *Planner) Create(ctx context.Context, nodeIDs []string, concurrency int, singleStep bool) (domain.RebootPlan, error) {
	return p.gw.CNAPI().CreateRebootPlan(ctx, nodeIDs, concurrency, singleStep)
}

// Batch is one group of reboots executed in parallel.
type Batch struct {
	Reboots []domain.Reboot
}

// BuildBatches partitions the remaining reboots of a plan: every core-node
// reboot gets its own singleton batch, ordered before any non-core batch;
// non-core reboots are chunked into batches of at most concurrency.
func BuildBatches(remaining []domain.Reboot, classes map[string]NodeClass, concurrency int) []Batch {
	if concurrency < 1 {
		concurrency = 1
	}

	var core, nonCore []domain.Reboot
	for _, r := range remaining {
		if classes[r.ServerID] == ClassCore {
			core = append(core, r)
		} else {
			nonCore = append(nonCore, r)
		}
	}

	batches := make([]Batch, 0, len(core)+(len(nonCore)+concurrency-1)/concurrency)
	for _, r := range core {
		batches = append(batches, Batch{Reboots: []domain.Reboot{r}})
	}
	for i := 0; i < len(nonCore); i += concurrency {
		end := i + concurrency
		if end > len(nonCore) {
			end = len(nonCore)
		}
		batches = append(batches, Batch{Reboots: nonCore[i:end]})
	}
	return batches
}
