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

package reboot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/health"
)

// rebootServer is a minimal in-memory fake of cnapi's reboot-plan surface
// plus wfapi/health/data-store, enough to exercise one reboot end to end.
type rebootServer struct {
	mu          sync.Mutex
	planState   string
	operational bool
	headnode    bool
}

func newRebootServer() *rebootServer {
	return &rebootServer{planState: "running"}
}

func (s *rebootServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/reboot-plans/plan-1", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			reboot := map[string]interface{}{
				"server_uuid": "cn1",
				"hostname":    "cn1.example",
				"headnode":    s.headnode,
			}
			if s.operational {
				reboot["operational_at"] = "2026-01-01T00:00:00Z"
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"uuid":        "plan-1",
				"concurrency": 1,
				"state":       s.planState,
				"reboots":     []interface{}{reboot},
			})
		case http.MethodPut:
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			switch action, _ := body["action"].(string); action {
			case "finish":
				s.planState = "finished"
			case "run":
				s.planState = "running"
			}
			w.WriteHeader(http.StatusOK)
		}
	})
	mux.HandleFunc("/reboot-plans/plan-1/reboots/reboot-1", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["operational_at"]; ok {
			s.operational = true
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/servers/cn1/reboot", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"job_uuid": "job-1"})
	})
	mux.HandleFunc("/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"uuid":      "job-1",
			"execution": "succeeded",
			"params":    map[string]interface{}{"reboot_uuid": "reboot-1"},
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"service": "cn1", "instance": "cn1", "hostname": "cn1.example", "healthy": true},
		})
	})
	mux.HandleFunc("/shard/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"role": ""})
	})
	return mux
}

func TestEngineRunSingleNonCoreRebootToFinish(t *testing.T) {
	srv := newRebootServer()
	hs := httptest.NewServer(srv.handler())
	defer hs.Close()

	gw := gateway.New(map[string]string{"cnapi": hs.URL, "wfapi": hs.URL}, nil)
	eng := NewEngine(gw, health.New(gw.CNAPI()), nil)

	classes := map[string]NodeClass{"cn1": ClassNonCore}
	if err := eng.Run(t.Context(), "plan-1", classes, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.planState != "finished" {
		t.Fatalf("expected plan finished, got %s", srv.planState)
	}
	if !srv.operational {
		t.Fatal("expected reboot marked operational")
	}
}

func TestEngineRunStartsACreatedPlanBeforeDrivingIt(t *testing.T) {
	srv := newRebootServer()
	srv.planState = "created"
	hs := httptest.NewServer(srv.handler())
	defer hs.Close()

	gw := gateway.New(map[string]string{"cnapi": hs.URL, "wfapi": hs.URL}, nil)
	eng := NewEngine(gw, health.New(gw.CNAPI()), nil)

	classes := map[string]NodeClass{"cn1": ClassNonCore}
	if err := eng.Run(t.Context(), "plan-1", classes, 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.planState != "finished" {
		t.Fatalf("expected a created plan to be started and driven to finished, got %s", srv.planState)
	}
}

func TestEngineRunStopsWhenPlanNotRunning(t *testing.T) {
	srv := newRebootServer()
	srv.planState = "stopped"
	hs := httptest.NewServer(srv.handler())
	defer hs.Close()

	gw := gateway.New(map[string]string{"cnapi": hs.URL, "wfapi": hs.URL}, nil)
	eng := NewEngine(gw, health.New(gw.CNAPI()), nil)

	err := eng.Run(t.Context(), "plan-1", map[string]NodeClass{"cn1": ClassNonCore}, 1)
	if err == nil {
		t.Fatal("expected error for non-running plan")
	}
}
