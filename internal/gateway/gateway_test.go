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

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSAPIListServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"uuid": "svc-1", "name": "vmapi", "type": "vm", "params": map[string]interface{}{"image_uuid": "img-1"}},
		})
	}))
	defer srv.Close()

	gw := New(map[string]string{"sapi": srv.URL}, nil)
	services, err := gw.SAPI().ListServices(t.Context(), "", "")
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 1 || services[0].Name != "vmapi" {
		t.Fatalf("unexpected services: %+v", services)
	}
}

func TestGatewayNotFoundMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := New(map[string]string{"imgapi": srv.URL}, nil)
	_, err := gw.IMGAPI().GetImage(t.Context(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCNAPIRebootPlanLifecycle(t *testing.T) {
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/reboot-plans":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"uuid":        "plan-1",
				"concurrency": 2,
				"state":       "created",
				"reboots":     []interface{}{},
			})
		case r.Method == "PUT" && r.URL.Path == "/reboot-plans/plan-1":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotAction, _ = body["action"].(string)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	gw := New(map[string]string{"cnapi": srv.URL}, nil)
	plan, err := gw.CNAPI().CreateRebootPlan(t.Context(), []string{"node-1"}, 2, false)
	if err != nil {
		t.Fatalf("CreateRebootPlan: %v", err)
	}
	if plan.ID != "plan-1" {
		t.Fatalf("plan ID = %q", plan.ID)
	}
	if err := gw.CNAPI().RebootPlanAction(t.Context(), plan.ID, "run"); err != nil {
		t.Fatalf("RebootPlanAction: %v", err)
	}
	if gotAction != "run" {
		t.Fatalf("action = %q want run", gotAction)
	}
}
