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

// Package resolve implements the change resolver: turning validated,
// but still identifier-shaped, changes into fully resolved changes with
// concrete service/instance/node/image objects substituted in, and
// applying the post-resolution filters.
package resolve

import (
	"context"
	"fmt"

	"go.smartdc.io/fleetadm/internal/catalog"
	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/inventory"
)

// DependencyResolver is a pluggable hook for reordering or annotating a
// change set before per-change image selection runs. The default
// LatestAvailable policy is a no-op pass that defers image choice
// entirely to per-change candidate selection.
type DependencyResolver func(ctx context.Context, changes []domain.Change) ([]domain.Change, error)

// LatestAvailable is the current, only implemented dependency policy: it
// does not alter the change set, leaving each change's image choice to
// Resolver.pickImage's "latest by (version, publish-time)" rule.
func LatestAvailable(_ context.Context, changes []domain.Change) ([]domain.Change, error) {
	return changes, nil
}

// Options configures filters applied after identifier/image resolution.
type Options struct {
	// Denylist names services whose changes are dropped from the resolved
	// set unless Override is set (e.g. the message broker). No error is
	// returned for a dropped change.
	Denylist []string
	// Override allows a change against a denylisted service through.
	Override bool
	// MinPlatform drops vm updates onto instances whose host node's
	// current platform sorts below this value lexically (platform
	// version stamps are date-based and sort correctly as strings). No
	// error is returned for a dropped change.
	MinPlatform string
	// AllowSameImage keeps a change whose resolved image matches the
	// instance's current image instead of dropping it as already
	// up-to-date (the `--force-same-image` flag's escape hatch).
	AllowSameImage bool
	// ResolveDependencies implements the placeholder hook; defaults to
	// LatestAvailable when nil.
	ResolveDependencies DependencyResolver
}

// Resolver is the change resolver.
type Resolver struct {
	inv     *inventory.Inventory
	cat     *catalog.Catalog
	sapi    *gateway.SAPI
	cnapi   *gateway.CNAPI
	opts    Options
}

// New builds a Resolver.
func New(inv *inventory.Inventory, cat *catalog.Catalog, sapi *gateway.SAPI, cnapi *gateway.CNAPI, opts Options) *Resolver {
	if opts.ResolveDependencies == nil {
		opts.ResolveDependencies = LatestAvailable
	}
	return &Resolver{inv: inv, cat: cat, sapi: sapi, cnapi: cnapi, opts: opts}
}

// Resolve resolves every change in cs, bounded-parallel by change-set
// size, then applies the dependency hook and post-resolution filters.
func (r *Resolver) Resolve(ctx context.Context, cs domain.ChangeSet, allInstances []domain.Instance, allServices []domain.Service) ([]domain.Change, error) {
	resolved := make([]domain.Change, len(cs.Changes))
	errCh := make(chan error, len(cs.Changes))

	for i, c := range cs.Changes {
		go func(i int, c domain.Change) {
			out, err := r.resolveOne(ctx, c, allInstances, allServices)
			resolved[i] = out
			errCh <- err
		}(i, c)
	}

	var violations []error
	for range cs.Changes {
		if err := <-errCh; err != nil {
			violations = append(violations, err)
		}
	}
	if err := errs.NewMultiError(violations); err != nil {
		return nil, err
	}

	withDeps, err := r.opts.ResolveDependencies(ctx, resolved)
	if err != nil {
		return nil, err
	}

	return r.applyFilters(withDeps), nil
}

func (r *Resolver) resolveOne(ctx context.Context, c domain.Change, allInstances []domain.Instance, allServices []domain.Service) (domain.Change, error) {
	svc := findService(allServices, c.Target.Service)
	if c.Target.Service != "" && svc == nil {
		return c, errs.Update("resolve.Change", fmt.Errorf("unknown service %q", c.Target.Service))
	}

	resolved := &domain.ResolvedChange{Service: svc}

	if c.Target.InstanceID != "" {
		inst := findInstance(allInstances, c.Target.InstanceID)
		if inst == nil {
			return c, errs.Update("resolve.Change", fmt.Errorf("unknown instance %q", c.Target.InstanceID))
		}
		resolved.Instance = inst
		if resolved.Service == nil {
			// The instance's own Service field is authoritative when the
			// change did not separately name a service: derive the
			// service from the instance record rather than failing or
			// prompting.
			resolved.Service = findService(allServices, inst.Service)
		}
	}

	if c.Target.HostNode != "" {
		node, err := r.cnapi.GetNode(ctx, c.Target.HostNode)
		if err != nil {
			return c, err
		}
		resolved.Node = &node
		if resolved.Instance == nil {
			for i := range allInstances {
				if allInstances[i].HostNodeID == node.ID && allInstances[i].Service == c.Target.Service {
					resolved.Instance = &allInstances[i]
					break
				}
			}
		}
	} else if resolved.Instance != nil && resolved.Instance.HostNodeID != "" {
		// Identified by instance id rather than host node directly: fetch
		// the owning node anyway so the MinPlatform filter can see it.
		node, err := r.cnapi.GetNode(ctx, resolved.Instance.HostNodeID)
		if err != nil {
			return c, err
		}
		resolved.Node = &node
	}

	c.Resolved = resolved

	if c.Type == domain.ChangeDeleteService || c.Type == domain.ChangeDeleteInstance {
		return c, nil
	}

	img, err := r.pickImage(ctx, c, allInstances)
	if err != nil {
		return c, err
	}
	c.Resolved.Image = img
	return c, nil
}

func (r *Resolver) pickImage(ctx context.Context, c domain.Change, allInstances []domain.Instance) (*domain.Image, error) {
	if c.Target.ImageID != "" {
		img, err := r.cat.GetImage(ctx, c.Target.ImageID)
		if err != nil {
			return nil, err
		}
		return &img, nil
	}

	svcName := c.ServiceName()
	var current []domain.Instance
	for _, inst := range allInstances {
		if inst.Service == svcName {
			current = append(current, inst)
		}
	}
	candidates, err := r.cat.Candidates(ctx, svcName, current)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	img, err := catalog.Latest(candidates)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// applyFilters drops changes whose chosen image is already in use
// everywhere, drops service-level changes with no candidates, drops
// changes against denylisted services without override, and drops vm
// updates onto under-platformed nodes. No error is returned for any
// dropped change.
func (r *Resolver) applyFilters(changes []domain.Change) []domain.Change {
	denylisted := make(map[string]bool, len(r.opts.Denylist))
	for _, s := range r.opts.Denylist {
		denylisted[s] = true
	}

	out := make([]domain.Change, 0, len(changes))
	for _, c := range changes {
		if c.Resolved == nil {
			out = append(out, c)
			continue
		}

		if !r.opts.AllowSameImage && c.Resolved.Image != nil && c.Resolved.Instance != nil && c.Resolved.Image.ID == c.Resolved.Instance.CurrentImage {
			continue
		}
		if c.IsServiceLevel() && c.Type != domain.ChangeDeleteService && c.Resolved.Image == nil {
			continue
		}
		if denylisted[c.ServiceName()] && !r.opts.Override {
			continue
		}
		if r.opts.MinPlatform != "" && c.Type == domain.ChangeUpdateInstance && c.Resolved.Node != nil {
			if c.Resolved.Node.CurrentPlatform < r.opts.MinPlatform {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func findService(services []domain.Service, name string) *domain.Service {
	for i := range services {
		if services[i].Name == name {
			return &services[i]
		}
	}
	return nil
}

func findInstance(instances []domain.Instance, idOrAlias string) *domain.Instance {
	for i := range instances {
		if instances[i].ID == idOrAlias || instances[i].Alias == idOrAlias {
			return &instances[i]
		}
	}
	return nil
}
