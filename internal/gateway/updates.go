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
	"context"
	"io"
)

// Updates wraps the tool's own update registry: the self-updater's
// source of new releases, and (via IMGAPI semantics reused here for
// service images) one of the two registries the image catalog falls
// through to.
type Updates struct {
	client *client
}

// Release is one published build of the tool itself.
type Release struct {
	UUID       string `json:"uuid"`
	Version    string `json:"version"`
	BuildStamp string `json:"build_stamp"`
}

// ListReleases lists all published releases of the tool.
func (u *Updates) ListReleases(ctx context.Context) ([]Release, error) {
	var releases []Release
	if err := u.client.doJSON(ctx, "updates.ListReleases", "GET", "/images?name=fleetadm", nil, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// DownloadInstaller streams a release's installer file to w.
func (u *Updates) DownloadInstaller(ctx context.Context, uuid string, w io.Writer) error {
	return u.client.download(ctx, "updates.DownloadInstaller", "/images/"+uuid+"/file", w)
}
