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

// Package maint implements the DC maintenance window: flipping the
// API tier's readonly metadata flag and persisting a local marker file
// that is the sole source of truth for "is a window currently open".
package maint

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
)

const markerFileName = "dc-maint.json"

// marker is the persisted shape of the local maintenance marker file.
type marker struct {
	StartTime time.Time `json:"startTime"`
}

// Status is the result of a status query.
type Status struct {
	Maint     bool
	StartedAt time.Time
}

// Window manages the maintenance window for one SAPI application (the
// cloudapi/load-balancer tier whose readonly flag gates external traffic).
type Window struct {
	gw        *gateway.Gateway
	appID     string
	markerDir string
}

// New builds a Window. markerDir is the base directory the marker file is
// written under (typically the tool's work directory).
func New(gw *gateway.Gateway, appID, markerDir string) *Window {
	return &Window{gw: gw, appID: appID, markerDir: markerDir}
}

func (w *Window) markerPath() string {
	return filepath.Join(w.markerDir, markerFileName)
}

// Start sets the readonly flag and writes the marker file atomically.
func (w *Window) Start(ctx context.Context) error {
	if err := w.gw.SAPI().UpdateApplicationMetadata(ctx, w.appID, map[string]interface{}{"readonly": true}); err != nil {
		return err
	}
	return writeMarker(w.markerPath(), marker{StartTime: time.Now().UTC()})
}

// Stop clears the readonly flag and deletes the marker file, mirroring
// Start exactly. Deleting an already-absent marker is not an error.
func (w *Window) Stop(ctx context.Context) error {
	if err := w.gw.SAPI().UpdateApplicationMetadata(ctx, w.appID, map[string]interface{}{"readonly": false}); err != nil {
		return err
	}
	if err := os.Remove(w.markerPath()); err != nil && !os.IsNotExist(err) {
		return errs.Internal("maint.Stop", err)
	}
	return nil
}

// Status reports whether a window is open by checking the marker file
// alone; it never contacts the gateway, since the marker file is locally
// authoritative.
func (w *Window) Status() (Status, error) {
	data, err := os.ReadFile(w.markerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Status{Maint: false}, nil
		}
		return Status{}, errs.Internal("maint.Status", err)
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Status{}, errs.Internal("maint.Status", err)
	}
	return Status{Maint: true, StartedAt: m.StartTime}, nil
}

func writeMarker(path string, m marker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errs.Internal("maint.writeMarker", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Internal("maint.writeMarker", err)
	}
	t, err := renameio.TempFile("", path)
	if err != nil {
		return errs.Internal("maint.writeMarker", err)
	}
	defer t.Cleanup()
	if _, err := t.Write(data); err != nil {
		return errs.Internal("maint.writeMarker", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return errs.Internal("maint.writeMarker", err)
	}
	return nil
}
