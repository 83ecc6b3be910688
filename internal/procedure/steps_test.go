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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
)

type noopProgress struct{}

func (noopProgress) Progress(string) {}

func TestImportImageSkipsWhenAlreadyLocal(t *testing.T) {
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"uuid": "IMG-B", "name": "vmapi"})
	}))
	defer local.Close()
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("remote registry should not be contacted when the image is already local, got %s", r.URL.Path)
	}))
	defer remote.Close()

	gw := gateway.New(map[string]string{"imgapi": local.URL, "updates": remote.URL}, nil)
	p := &ImportImage{Image: domain.Image{ID: "IMG-B", ServiceName: "vmapi"}}
	if err := p.Execute(Context{Ctx: context.Background(), Gateway: gw, Progress: noopProgress{}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestImportImagePullsFromRemoteWhenNotLocal(t *testing.T) {
	var mu sync.Mutex
	imported, fileAdded, activated := false, false, false

	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/images/IMG-B":
			if !imported {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"uuid": "IMG-B", "name": "vmapi"})
		case r.Method == http.MethodPost && r.URL.Path == "/images" && r.URL.Query().Get("action") == "import":
			imported = true
		case r.Method == http.MethodPut && r.URL.Path == "/images/IMG-B/file":
			data, _ := io.ReadAll(r.Body)
			if string(data) != "image-bytes" {
				t.Errorf("unexpected uploaded file content: %q", data)
			}
			fileAdded = true
		case r.Method == http.MethodPost && r.URL.Path == "/images/IMG-B" && r.URL.Query().Get("action") == "activate":
			activated = true
		default:
			http.NotFound(w, r)
		}
	}))
	defer local.Close()

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/IMG-B/file" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "image-bytes")
	}))
	defer remote.Close()

	gw := gateway.New(map[string]string{"imgapi": local.URL, "updates": remote.URL}, nil)
	p := &ImportImage{Image: domain.Image{ID: "IMG-B", ServiceName: "vmapi"}}
	if err := p.Execute(Context{Ctx: context.Background(), Gateway: gw, Progress: noopProgress{}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !imported || !fileAdded || !activated {
		t.Fatalf("expected import, add-file, and activate all to run; got imported=%v fileAdded=%v activated=%v", imported, fileAdded, activated)
	}
}
