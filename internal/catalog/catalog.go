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

// Package catalog implements the image catalog: fetching a single
// image by id with local-then-remote fallback, and listing filtered,
// unsorted update candidates for a service.
package catalog

import (
	"context"
	"errors"
	"sort"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
)

// ServiceImageName maps a service name to the image name used to query the
// update registry. A service with no entry has no candidates.
type ServiceImageName func(serviceName string) (imageName string, ok bool)

// Catalog is the image catalog.
type Catalog struct {
	local   *gateway.IMGAPI
	remote  *gateway.IMGAPI
	imageName ServiceImageName
	// VersionPattern is the upstream version filter applied to candidate
	// queries; "~master" by convention.
	VersionPattern string
}

// New builds a Catalog. local is the control host's own image registry;
// remote is the update registry fallen through to on not-found.
func New(local, remote *gateway.IMGAPI, imageName ServiceImageName) *Catalog {
	return &Catalog{local: local, remote: remote, imageName: imageName, VersionPattern: "~master"}
}

// GetImage tries the local registry first, falling through to the update
// registry on not-found; any other error propagates immediately.
func (c *Catalog) GetImage(ctx context.Context, uuid string) (domain.Image, error) {
	img, err := c.local.GetImage(ctx, uuid)
	if err == nil {
		return img, nil
	}
	if !errors.Is(err, gateway.ErrNotFound) {
		return domain.Image{}, err
	}
	img, err = c.remote.GetImage(ctx, uuid)
	if err != nil {
		return domain.Image{}, err
	}
	return img, nil
}

// Candidates lists update candidates for a service given its currently
// in-use instances: collect in-use images, list registry candidates by
// name and version pattern, then drop anything at or before the oldest
// in-use image. The result is returned unsorted; callers sort and pick
// (domain.SortImages).
func (c *Catalog) Candidates(ctx context.Context, serviceName string, currentInstances []domain.Instance) ([]domain.Image, error) {
	imageName, ok := c.imageName(serviceName)
	if !ok {
		return nil, nil
	}

	inUse, err := c.inUseImages(ctx, currentInstances)
	if err != nil {
		return nil, err
	}
	if len(inUse) == 0 {
		// No in-use images to compare against; still list candidates,
		// the caller decides what "no current state" means for this
		// change (typically create-instance).
		return c.remote.ListImages(ctx, imageName, c.VersionPattern)
	}

	oldest := inUse[0]
	for _, img := range inUse[1:] {
		if domain.CompareImages(img, oldest) < 0 {
			oldest = img
		}
	}

	candidates, err := c.remote.ListImages(ctx, imageName, c.VersionPattern)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Image, 0, len(candidates))
	for _, cand := range candidates {
		if cand.PublishTime.Before(oldest.PublishTime) {
			continue
		}
		if cand.ID == oldest.ID {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// inUseImages resolves, via GetImage, the set of distinct images currently
// installed on the given instances. Missing current-image ids are skipped
// rather than treated as an error (an agent instance may not yet know its
// image).
func (c *Catalog) inUseImages(ctx context.Context, instances []domain.Instance) ([]domain.Image, error) {
	seen := make(map[string]bool)
	var out []domain.Image
	for _, inst := range instances {
		if inst.CurrentImage == "" || seen[inst.CurrentImage] {
			continue
		}
		seen[inst.CurrentImage] = true
		img, err := c.GetImage(ctx, inst.CurrentImage)
		if err != nil {
			return nil, errs.Internal("catalog.inUseImages", err).WithContext("image", inst.CurrentImage)
		}
		out = append(out, img)
	}
	return out, nil
}

// Latest returns the last image by domain.CompareImages ordering, or an
// error if candidates is empty. Used by the resolver's default "latest
// available" dependency-resolution policy.
func Latest(candidates []domain.Image) (domain.Image, error) {
	if len(candidates) == 0 {
		return domain.Image{}, errs.Update("catalog.Latest", errors.New("no candidate images"))
	}
	sorted := make([]domain.Image, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.CompareImages(sorted[i], sorted[j]) < 0
	})
	return sorted[len(sorted)-1], nil
}
