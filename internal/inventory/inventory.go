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

// Package inventory implements enumeration of services, instances, and
// compute nodes, and name→id resolution for user-supplied tokens.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
)

// coreVMOwnerUUID is the fixed admin-owner id used, together with the
// smartdc_role tag, to identify core VMs.
const coreVMOwnerUUID = "00000000-0000-0000-0000-000000000000"

// knownAgentServices is the fixed list of agent-kind services that exist
// outside the services registry (every node implicitly runs them).
var knownAgentServices = []string{"fleetadm-agent", "config-agent", "amon-agent"}

// Inventory enumerates the fleet's current state.
type Inventory struct {
	gw        *gateway.Gateway
	localImgs *gateway.IMGAPI
}

// New builds an Inventory over the given gateway. localImgs is the image
// registry used to enrich instance records with their current image and
// version.
func New(gw *gateway.Gateway, localImgs *gateway.IMGAPI) *Inventory {
	return &Inventory{gw: gw, localImgs: localImgs}
}

// Services returns registry services unioned with the fixed list of
// known agent-kind services.
func (inv *Inventory) Services(ctx context.Context) ([]domain.Service, error) {
	services, err := inv.gw.SAPI().ListServices(ctx, "", "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(services))
	for _, s := range services {
		seen[s.Name] = true
	}
	for _, name := range knownAgentServices {
		if seen[name] {
			continue
		}
		services = append(services, domain.Service{Name: name, Kind: domain.KindAgentService})
	}
	return services, nil
}

// Instances returns, for every node, one entry per declared agent plus one
// per core VM, each enriched with its current image and version where
// known.
func (inv *Inventory) Instances(ctx context.Context) ([]domain.Instance, error) {
	nodes, err := inv.gw.CNAPI().ListNodes(ctx)
	if err != nil {
		return nil, err
	}

	coreVMs, err := inv.gw.VMAPI().ListVMs(ctx, map[string]string{"owner_uuid": coreVMOwnerUUID})
	if err != nil {
		return nil, err
	}
	vmsByNode := make(map[string][]domain.Instance, len(nodes))
	for _, vm := range coreVMs {
		if vm.Service == "" {
			continue // not smartdc_role-tagged; not a core VM
		}
		vmsByNode[vm.HostNodeID] = append(vmsByNode[vm.HostNodeID], vm)
	}

	var out []domain.Instance
	for _, node := range nodes {
		for _, agentSvc := range node.Agents {
			inst := domain.Instance{
				ID:         node.ID + "/" + agentSvc,
				Service:    agentSvc,
				Kind:       domain.InstanceAgent,
				HostNodeID: node.ID,
				Hostname:   node.Hostname,
			}
			out = append(out, inst)
		}
		out = append(out, vmsByNode[node.ID]...)
	}

	inv.enrich(ctx, out)
	return out, nil
}

// enrich fills in Version in place by looking up the image of each
// instance whose CurrentImage is already known; instances without one are
// skipped. Lookup failures are tolerated (Version stays empty) since an
// agent instance legitimately may not know its image yet.
func (inv *Inventory) enrich(ctx context.Context, instances []domain.Instance) {
	for i := range instances {
		if instances[i].CurrentImage == "" {
			continue
		}
		img, err := inv.localImgs.GetImage(ctx, instances[i].CurrentImage)
		if err != nil {
			continue
		}
		instances[i].Version = img.Version
	}
}

// Resolve answers a user-supplied token with a canonical UUID, trying in
// order: literal UUID, service name, VM alias, node hostname. Ambiguity
// (more than one match across categories) is fatal.
func (inv *Inventory) Resolve(ctx context.Context, token string) (string, error) {
	if _, err := uuid.Parse(token); err == nil {
		return token, nil
	}

	var matches []string

	services, err := inv.Services(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range services {
		if s.Name == token {
			matches = append(matches, s.ID)
		}
	}

	instances, err := inv.Instances(ctx)
	if err != nil {
		return "", err
	}
	for _, inst := range instances {
		if inst.Alias == token {
			matches = append(matches, inst.ID)
		}
	}

	nodes, err := inv.gw.CNAPI().ListNodes(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		if n.Hostname == token {
			matches = append(matches, n.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", errs.Update("inventory.Resolve", fmt.Errorf("no match for %q", token))
	case 1:
		return matches[0], nil
	default:
		return "", errs.Update("inventory.Resolve", fmt.Errorf("%w: %q has %d matches", ErrAmbiguous, token, len(matches)))
	}
}

// ErrAmbiguous is a sentinel usable with errors.Is against the cause
// wrapped by errs.Update, for callers that want to special-case ambiguity
// versus plain not-found.
var ErrAmbiguous = errors.New("ambiguous token")
