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

package selfupdate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.smartdc.io/fleetadm/internal/gateway"
)

func TestRunDryRunPicksNewestSurvivingCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]gateway.Release{
			{UUID: "r-old", Version: "1.0.0", BuildStamp: "master-20230101T000000Z-gaaa111"},
			{UUID: "r-same-build", Version: "1.1.0", BuildStamp: "master-20230115T000000Z-gbbb222"},
			{UUID: "r-new", Version: "1.2.0", BuildStamp: "master-20230201T000000Z-gccc333"},
			{UUID: "r-major", Version: "2.0.0", BuildStamp: "master-20230301T000000Z-gddd444"},
		})
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"updates": srv.URL}, nil)
	current := Current{
		Version:    "1.1.0",
		BuildStamp: BuildStamp{BuildTime: mustParse(t, "20230115T000000Z")},
	}
	u := New(gw, nil, current)

	res, err := u.Run(t.Context(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Installed {
		t.Fatal("dry-run must not install")
	}
	if res.Version != "1.2.0" {
		t.Fatalf("expected 1.2.0 chosen (major-version release excluded by default), got %s", res.Version)
	}
}

func TestRunAllowMajorUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]gateway.Release{
			{UUID: "r-major", Version: "2.0.0", BuildStamp: "master-20230301T000000Z-gddd444"},
		})
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"updates": srv.URL}, nil)
	current := Current{Version: "1.1.0", BuildStamp: BuildStamp{BuildTime: mustParse(t, "20230115T000000Z")}}
	u := New(gw, nil, current)

	res, err := u.Run(t.Context(), Options{DryRun: true, AllowMajorUpdate: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Version != "2.0.0" {
		t.Fatalf("expected major release chosen with AllowMajorUpdate, got %s", res.Version)
	}
}

func TestRunNoCandidatesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]gateway.Release{
			{UUID: "r-old", Version: "1.0.0", BuildStamp: "master-20230101T000000Z-gaaa111"},
		})
	}))
	defer srv.Close()

	gw := gateway.New(map[string]string{"updates": srv.URL}, nil)
	current := Current{Version: "1.1.0", BuildStamp: BuildStamp{BuildTime: mustParse(t, "20230115T000000Z")}}
	u := New(gw, nil, current)

	res, err := u.Run(t.Context(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Installed {
		t.Fatal("expected no install when nothing survives filtering")
	}
}

func TestReadCurrentBuildStamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buildstamp")
	if err := os.WriteFile(path, []byte("master-20230115T000000Z-gbbb222\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp, err := ReadCurrentBuildStamp(path)
	if err != nil {
		t.Fatalf("ReadCurrentBuildStamp: %v", err)
	}
	if stamp.GitSHA != "bbb222" {
		t.Fatalf("sha = %q, want bbb222", stamp.GitSHA)
	}
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	stamp, err := ParseBuildStamp("x-" + s + "-gdeadbee")
	if err != nil {
		t.Fatalf("parsing test timestamp: %v", err)
	}
	return stamp.BuildTime
}
