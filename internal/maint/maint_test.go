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

package maint

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.smartdc.io/fleetadm/internal/gateway"
)

func TestStartThenStatusThenStop(t *testing.T) {
	var lastMetadata map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Metadata map[string]interface{} `json:"metadata"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastMetadata = body.Metadata
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"sapi": srv.URL}, nil)
	dir := t.TempDir()
	win := New(gw, "app-1", dir)

	st, err := win.Status()
	if err != nil {
		t.Fatalf("Status before Start: %v", err)
	}
	if st.Maint {
		t.Fatal("expected no maintenance window before Start")
	}

	if err := win.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if lastMetadata["readonly"] != true {
		t.Fatalf("expected readonly=true sent to sapi, got %v", lastMetadata)
	}

	st, err = win.Status()
	if err != nil {
		t.Fatalf("Status after Start: %v", err)
	}
	if !st.Maint {
		t.Fatal("expected maintenance window open after Start")
	}
	if st.StartedAt.IsZero() {
		t.Fatal("expected non-zero start time")
	}

	if err := win.Stop(t.Context()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if lastMetadata["readonly"] != false {
		t.Fatalf("expected readonly=false sent to sapi, got %v", lastMetadata)
	}

	st, err = win.Status()
	if err != nil {
		t.Fatalf("Status after Stop: %v", err)
	}
	if st.Maint {
		t.Fatal("expected no maintenance window after Stop")
	}
}

func TestStopIsIdempotentWhenMarkerAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"sapi": srv.URL}, nil)
	win := New(gw, "app-1", t.TempDir())

	if err := win.Stop(t.Context()); err != nil {
		t.Fatalf("Stop on absent marker should be idempotent, got: %v", err)
	}
}
