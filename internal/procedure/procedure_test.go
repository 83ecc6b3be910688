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

package procedure

import (
	"testing"

	"go.smartdc.io/fleetadm/internal/domain"
)

func TestBuildOrdersImportBeforeConsumersAndParamsBeforeReprovision(t *testing.T) {
	img := domain.Image{ID: "IMG-B", ServiceName: "vmapi"}
	svc := domain.Service{ID: "svc-vmapi", Name: "vmapi"}
	inst := domain.Instance{ID: "vm-1", Service: "vmapi", Kind: domain.InstanceVM, CurrentImage: "IMG-A"}

	changes := []domain.Change{
		{Type: domain.ChangeUpdateInstance, Resolved: &domain.ResolvedChange{Service: &svc, Instance: &inst, Image: &img}},
		{Type: domain.ChangeUpdateService, Resolved: &domain.ResolvedChange{Service: &svc, Image: &img}},
	}

	procs := New().Build(changes)

	kindOf := func(i int) string { return procs[i].Kind() }
	importIdx, paramsIdx, reprovisionIdx := -1, -1, -1
	for i := range procs {
		switch kindOf(i) {
		case "ImportImage":
			importIdx = i
		case "UpdateServiceParams":
			paramsIdx = i
		case "ReprovisionVm":
			reprovisionIdx = i
		}
	}
	if importIdx == -1 || paramsIdx == -1 || reprovisionIdx == -1 {
		t.Fatalf("expected all three procedure kinds, got %+v", procs)
	}
	if !(importIdx < paramsIdx && paramsIdx < reprovisionIdx) {
		t.Fatalf("expected ImportImage < UpdateServiceParams < ReprovisionVm, got order %v", procs)
	}
}

func TestBuildDedupesImportsAcrossChanges(t *testing.T) {
	img := domain.Image{ID: "IMG-B"}
	svc := domain.Service{Name: "vmapi"}
	changes := []domain.Change{
		{Type: domain.ChangeUpdateService, Resolved: &domain.ResolvedChange{Service: &svc, Image: &img}},
		{Type: domain.ChangeUpdateInstance, Resolved: &domain.ResolvedChange{
			Service: &svc, Image: &img,
			Instance: &domain.Instance{ID: "vm-2", Kind: domain.InstanceVM},
		}},
	}
	procs := New().Build(changes)
	count := 0
	for _, p := range procs {
		if p.Kind() == "ImportImage" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one ImportImage for a shared image, got %d", count)
	}
}
