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

package catalog

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
)

func imageNameFor(service string) (string, bool) {
	if service == "vmapi" {
		return "vmapi", true
	}
	return "", false
}

func TestCandidatesMonotonicity(t *testing.T) {
	oldest := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"IMG-A","name":"vmapi","version":"1.0.0","published_at":"2024-01-01T00:00:00.000Z"}`))
	}))
	defer local.Close()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"uuid":"IMG-A","name":"vmapi","version":"1.0.0","published_at":"2024-01-01T00:00:00.000Z"},
			{"uuid":"IMG-OLDER","name":"vmapi","version":"0.9.0","published_at":"2023-06-01T00:00:00.000Z"},
			{"uuid":"IMG-B","name":"vmapi","version":"1.1.0","published_at":"2024-02-01T00:00:00.000Z"}
		]`))
	}))
	defer remote.Close()

	gwLocal := gateway.New(map[string]string{"imgapi": local.URL}, nil)
	gwRemote := gateway.New(map[string]string{"updates": remote.URL}, nil)
	c := New(gwLocal.IMGAPI(), gwRemote.RemoteIMGAPI(), imageNameFor)

	instances := []domain.Instance{{Service: "vmapi", CurrentImage: "IMG-A"}}
	candidates, err := c.Candidates(t.Context(), "vmapi", instances)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	for _, img := range candidates {
		if img.ID == "IMG-A" {
			t.Fatalf("candidates must not include the in-use image id")
		}
		if img.PublishTime.Before(oldest) {
			t.Fatalf("candidates must not precede the oldest in-use image's publish time: %+v", img)
		}
	}
	if len(candidates) != 1 || candidates[0].ID != "IMG-B" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestCandidatesNoMappingIsEmpty(t *testing.T) {
	c := New(nil, nil, imageNameFor)
	candidates, err := c.Candidates(t.Context(), "unknown-service", nil)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if candidates != nil {
		t.Fatalf("expected nil candidates for unmapped service, got %+v", candidates)
	}
}
