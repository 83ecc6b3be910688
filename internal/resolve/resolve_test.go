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

package resolve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.smartdc.io/fleetadm/internal/catalog"
	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
)

func TestServiceDerivedFromInstanceWhenNotNamed(t *testing.T) {
	allServices := []domain.Service{{Name: "vmapi", ID: "svc-vmapi"}}
	allInstances := []domain.Instance{{ID: "vm-1", Service: "vmapi", CurrentImage: "IMG-A"}}

	r := &Resolver{opts: Options{ResolveDependencies: LatestAvailable}}
	c := domain.Change{Type: domain.ChangeDeleteInstance, Target: domain.Target{InstanceID: "vm-1"}}

	out, err := r.resolveOne(context.Background(), c, allInstances, allServices)
	if err != nil {
		t.Fatalf("resolveOne: %v", err)
	}
	if out.Resolved == nil || out.Resolved.Service == nil {
		t.Fatal("expected resolved service derived from instance record")
	}
	if out.Resolved.Service.Name != "vmapi" {
		t.Fatalf("resolved service = %q want vmapi", out.Resolved.Service.Name)
	}
}

func TestApplyFiltersDropsNoOpImageChange(t *testing.T) {
	r := &Resolver{opts: Options{}}
	img := domain.Image{ID: "IMG-A"}
	changes := []domain.Change{{
		Type: domain.ChangeUpdateInstance,
		Resolved: &domain.ResolvedChange{
			Instance: &domain.Instance{ID: "vm-1", CurrentImage: "IMG-A"},
			Image:    &img,
		},
	}}
	out := r.applyFilters(changes)
	if len(out) != 0 {
		t.Fatalf("expected no-op image change to be dropped, got %+v", out)
	}
}

// TestResolveOneFetchesOwningNodeForInstanceIdentifiedChange exercises the
// common update path (a change identified by instance id alone, not by an
// explicit host node) and confirms the MinPlatform filter can actually see
// the instance's host node rather than it staying permanently unpopulated.
func TestResolveOneFetchesOwningNodeForInstanceIdentifiedChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/servers/node-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"uuid":             "node-1",
				"hostname":         "node1",
				"current_platform": "20200101T000000Z",
			})
		case "/images/IMG-B":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"uuid": "IMG-B",
				"name": "vmapi",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"cnapi": srv.URL, "imgapi": srv.URL, "updates": srv.URL}, nil)
	cat := catalog.New(gw.IMGAPI(), gw.RemoteIMGAPI(), func(s string) (string, bool) { return s, true })
	r := &Resolver{
		cnapi: gw.CNAPI(),
		cat:   cat,
		opts:  Options{ResolveDependencies: LatestAvailable, MinPlatform: "20250101T000000Z"},
	}

	allServices := []domain.Service{{Name: "vmapi", ID: "svc-vmapi"}}
	allInstances := []domain.Instance{{ID: "vm-1", Service: "vmapi", HostNodeID: "node-1", CurrentImage: "IMG-A"}}
	c := domain.Change{Type: domain.ChangeUpdateInstance, Target: domain.Target{InstanceID: "vm-1", ImageID: "IMG-B"}}

	out, err := r.resolveOne(context.Background(), c, allInstances, allServices)
	if err != nil {
		t.Fatalf("resolveOne: %v", err)
	}
	if out.Resolved == nil || out.Resolved.Node == nil {
		t.Fatal("expected the owning node to be resolved for an instance-id-identified change")
	}
	if out.Resolved.Node.ID != "node-1" {
		t.Fatalf("resolved node = %q want node-1", out.Resolved.Node.ID)
	}

	filtered := r.applyFilters([]domain.Change{out})
	if len(filtered) != 0 {
		t.Fatalf("expected MinPlatform to reject an update onto an under-platformed node, got %+v", filtered)
	}
}

func TestApplyFiltersDenylist(t *testing.T) {
	r := &Resolver{opts: Options{Denylist: []string{"rabbitmq"}}}
	img := domain.Image{ID: "IMG-B"}
	changes := []domain.Change{{
		Type:   domain.ChangeUpdateService,
		Target: domain.Target{Service: "rabbitmq"},
		Resolved: &domain.ResolvedChange{
			Service: &domain.Service{Name: "rabbitmq"},
			Image:   &img,
		},
	}}
	out := r.applyFilters(changes)
	if len(out) != 0 {
		t.Fatalf("expected denylisted change to be dropped without override, got %+v", out)
	}

	r.opts.Override = true
	out = r.applyFilters(changes)
	if len(out) != 1 {
		t.Fatalf("expected override to keep the change, got %+v", out)
	}
}
