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

package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.smartdc.io/fleetadm/internal/gateway"
)

func newTestInventory(t *testing.T) *Inventory {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"uuid": "svc-vmapi", "name": "vmapi", "type": "vm"},
		})
	})
	mux.HandleFunc("/servers", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"uuid": "node-1", "hostname": "cn1", "agents": []string{"config-agent"}},
		})
	})
	mux.HandleFunc("/vms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"uuid": "vm-1", "alias": "vmapi0", "server_uuid": "node-1", "tags": map[string]string{"smartdc_role": "vmapi"}},
		})
	})
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gw := gateway.New(map[string]string{"sapi": srv.URL, "cnapi": srv.URL, "vmapi": srv.URL, "imgapi": srv.URL}, nil)
	return New(gw, gw.IMGAPI())
}

func TestInstancesIncludesAgentsAndCoreVMs(t *testing.T) {
	inv := newTestInventory(t)
	instances, err := inv.Instances(t.Context())
	if err != nil {
		t.Fatalf("Instances: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances (1 agent + 1 core VM), got %d: %+v", len(instances), instances)
	}
}

func TestResolveByHostnameAndAlias(t *testing.T) {
	inv := newTestInventory(t)
	id, err := inv.Resolve(t.Context(), "cn1")
	if err != nil {
		t.Fatalf("Resolve(cn1): %v", err)
	}
	if id != "node-1" {
		t.Fatalf("Resolve(cn1) = %q want node-1", id)
	}

	id, err = inv.Resolve(t.Context(), "vmapi0")
	if err != nil {
		t.Fatalf("Resolve(vmapi0): %v", err)
	}
	if id != "vm-1" {
		t.Fatalf("Resolve(vmapi0) = %q want vm-1", id)
	}
}

func TestResolveNotFound(t *testing.T) {
	inv := newTestInventory(t)
	if _, err := inv.Resolve(t.Context(), "nonexistent"); err == nil {
		t.Fatal("expected not-found error")
	}
}
