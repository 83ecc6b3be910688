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

// Package procedure implements the procedure coordinator: mapping a
// resolved change set to an ordered pipeline of procedures, and the
// procedure taxonomy itself.
package procedure

import (
	"context"

	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
)

// ProgressSink receives one-line human progress updates as procedures run.
type ProgressSink interface {
	Progress(line string)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(string)

func (f ProgressFunc) Progress(line string) { f(line) }

// Context carries everything a procedure needs to execute: the gateway
// clients, logger, progress sink, the plan, and the work directory.
type Context struct {
	Ctx      context.Context
	Gateway  *gateway.Gateway
	Log      *zap.SugaredLogger
	Progress ProgressSink
	Plan     *domain.Plan
	WorkDir  string
}

// Procedure is one concrete step in a plan.
type Procedure interface {
	Kind() string
	Summarize() string
	Execute(pc Context) error
}

// Coordinator builds an ordered procedure pipeline from a resolved change
// set. For a given service, ImportImage precedes any consumer;
// UpdateServiceParams precedes per-instance reprovisions of that service;
// deletes follow creates of the same service within the plan; agent
// updates are independent across nodes.
type Coordinator struct{}

// New builds a Coordinator.
func New() *Coordinator { return &Coordinator{} }

// Build turns resolved changes into the ordered procedure pipeline.
func (co *Coordinator) Build(changes []domain.Change) []Procedure {
	var imports []Procedure
	var serviceParams []Procedure
	var creates []Procedure
	var reprovisions []Procedure
	var agentUpdates []Procedure
	var deletes []Procedure

	imported := make(map[string]bool)

	for _, c := range changes {
		if c.Resolved == nil {
			continue
		}

		if c.Resolved.Image != nil && !imported[c.Resolved.Image.ID] {
			imported[c.Resolved.Image.ID] = true
			imports = append(imports, &ImportImage{Image: *c.Resolved.Image})
		}

		switch c.Type {
		case domain.ChangeUpdateService:
			if c.Resolved.Service != nil && c.Resolved.Image != nil {
				serviceParams = append(serviceParams, &UpdateServiceParams{Service: *c.Resolved.Service, Image: *c.Resolved.Image})
			}
		case domain.ChangeUpdateInstance:
			if c.Resolved.Instance == nil || c.Resolved.Image == nil {
				continue
			}
			switch c.Resolved.Instance.Kind {
			case domain.InstanceVM:
				reprovisions = append(reprovisions, &ReprovisionVM{Instance: *c.Resolved.Instance, Image: *c.Resolved.Image})
			case domain.InstanceAgent:
				if c.Resolved.Node != nil {
					agentUpdates = append(agentUpdates, &UpdateAgentOnNode{Node: *c.Resolved.Node, Service: c.ServiceName(), Image: *c.Resolved.Image})
				}
			}
		case domain.ChangeCreateInstance:
			if c.Resolved.Service == nil || c.Resolved.Node == nil || c.Resolved.Image == nil {
				continue
			}
			creates = append(creates, &CreateVmInstance{Service: *c.Resolved.Service, Node: *c.Resolved.Node, Image: *c.Resolved.Image})
		case domain.ChangeDeleteInstance:
			if c.Resolved.Instance == nil {
				continue
			}
			switch c.Resolved.Instance.Kind {
			case domain.InstanceVM:
				deletes = append(deletes, &DeleteVmInstance{Instance: *c.Resolved.Instance})
			case domain.InstanceAgent:
				if c.Resolved.Node != nil {
					deletes = append(deletes, &DeleteAgentInstance{Node: *c.Resolved.Node, Service: c.ServiceName()})
				}
			}
		case domain.ChangeDeleteService:
			// A delete-service change carries no per-instance targets of
			// its own; callers are expected to have also emitted
			// DeleteInstance/DeleteAgentInstance changes for each of the
			// service's instances, ordered here via the `deletes` slice.
		}
	}

	out := make([]Procedure, 0, len(imports)+len(serviceParams)+len(creates)+len(reprovisions)+len(agentUpdates)+len(deletes))
	out = append(out, imports...)
	out = append(out, serviceParams...)
	out = append(out, creates...)
	out = append(out, reprovisions...)
	out = append(out, agentUpdates...)
	out = append(out, deletes...)
	return out
}

// Steps converts a built pipeline into its persisted plan.json shadow.
func Steps(procs []Procedure) []domain.ProcStep {
	out := make([]domain.ProcStep, len(procs))
	for i, p := range procs {
		out[i] = domain.ProcStep{Kind: p.Kind(), Summary: p.Summarize()}
	}
	return out
}
