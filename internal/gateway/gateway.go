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

// Package gateway implements the typed remote-API clients the core drives:
// the services registry (sapi), the VM manager (vmapi), the compute-node
// manager (cnapi), the image registry (imgapi), the workflow engine
// (wfapi), and the tool's own update registry (updates). One lazily-built
// client per upstream, sharing a user-agent string, an *http.Client, and a
// request logger, with a thin typed wrapper struct per upstream rather than
// one generic client shared across all of them.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/observability"
)

const userAgent = "fleetadm/1"

// Gateway holds one client per upstream service, built lazily on first use
// and reused for the life of the process.
type Gateway struct {
	httpClient *http.Client
	log        *zap.SugaredLogger
	baseURLs   map[string]string

	sapi         *SAPI
	vmapi        *VMAPI
	cnapi        *CNAPI
	imgapi       *IMGAPI
	remoteImgapi *IMGAPI
	wfapi        *WFAPI
	updates      *Updates
	datastore    *DataStore
}

// New builds a Gateway over the given per-upstream base URLs (see
// config.Config.Upstreams). The supplied logger is the process-wide
// logger; each JSON request is logged under it at debug level with the
// upstream, operation, method, and path before it is sent. Status and
// duration of every request, downloads and uploads included, go to the
// gateway request metrics rather than to the log.
func New(baseURLs map[string]string, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		baseURLs:   baseURLs,
	}
}

// SAPI returns the services-registry client, building it on first call.
func (g *Gateway) SAPI() *SAPI {
	if g.sapi == nil {
		g.sapi = &SAPI{client: g.client("sapi")}
	}
	return g.sapi
}

// VMAPI returns the VM-manager client, building it on first call.
func (g *Gateway) VMAPI() *VMAPI {
	if g.vmapi == nil {
		g.vmapi = &VMAPI{client: g.client("vmapi")}
	}
	return g.vmapi
}

// CNAPI returns the compute-node-manager client, building it on first call.
func (g *Gateway) CNAPI() *CNAPI {
	if g.cnapi == nil {
		g.cnapi = &CNAPI{client: g.client("cnapi")}
	}
	return g.cnapi
}

// IMGAPI returns the local image-registry client, building it on first call.
func (g *Gateway) IMGAPI() *IMGAPI {
	if g.imgapi == nil {
		g.imgapi = &IMGAPI{client: g.client("imgapi")}
	}
	return g.imgapi
}

// RemoteIMGAPI returns the update-registry client addressed as an image
// source, building it on first call. It shares the "updates" base URL with
// Updates but is wrapped as an IMGAPI since the catalog's local-then-remote
// fallback speaks the same GetImage/ListImages shape against either
// registry.
func (g *Gateway) RemoteIMGAPI() *IMGAPI {
	if g.remoteImgapi == nil {
		g.remoteImgapi = &IMGAPI{client: g.client("updates")}
	}
	return g.remoteImgapi
}

// WFAPI returns the workflow-engine client, building it on first call.
func (g *Gateway) WFAPI() *WFAPI {
	if g.wfapi == nil {
		g.wfapi = &WFAPI{client: g.client("wfapi")}
	}
	return g.wfapi
}

// Updates returns the update-registry client, building it on first call.
func (g *Gateway) Updates() *Updates {
	if g.updates == nil {
		g.updates = &Updates{client: g.client("updates")}
	}
	return g.updates
}

// DataStore returns the data-store shard admin client, building it on
// first call. It is addressed through cnapi's base URL since the shard
// admin tool is reached via the compute-node manager's proxy, not as a
// standalone upstream.
func (g *Gateway) DataStore() *DataStore {
	if g.datastore == nil {
		g.datastore = &DataStore{client: g.client("cnapi")}
	}
	return g.datastore
}

// client builds the shared low-level request executor for one upstream tag.
func (g *Gateway) client(upstream string) *client {
	return &client{
		upstream: upstream,
		baseURL:  g.baseURLs[upstream],
		http:     g.httpClient,
		log:      g.log,
	}
}

// client is the shared low-level request executor embedded by every
// per-upstream typed client. It owns uniform error-enveloping, logging,
// and metrics — the per-upstream types above own only request/response
// shapes and URL construction.
type client struct {
	upstream string
	baseURL  string
	http     *http.Client
	log      *zap.SugaredLogger
}

// doJSON issues an HTTP request with an optional JSON body and decodes a
// JSON response into out (which may be nil for no-content responses).
// Non-2xx responses become errs.Upstream; transport/decode failures become
// errs.Internal.
func (c *client) doJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	status := 0
	defer func() {
		observability.RecordGatewayRequest(c.upstream, op, status, time.Since(start))
	}()

	url := c.baseURL + path
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errs.Internal(op, fmt.Errorf("encoding request body: %w", err))
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errs.Internal(op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.log != nil {
		c.log.Debugw("gateway request", "upstream", c.upstream, "op", op, "method", method, "path", path)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Internal(op, fmt.Errorf("request to %s: %w", c.upstream, err))
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Internal(op, fmt.Errorf("reading %s response: %w", c.upstream, err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return errs.Upstream(c.upstream, op, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return errs.Upstream(c.upstream, op, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Internal(op, fmt.Errorf("decoding %s response: %w", c.upstream, err))
	}
	return nil
}

// download issues a GET and streams the raw response body to w, used by
// IMGAPI.Download and Updates.DownloadInstaller.
func (c *client) download(ctx context.Context, op, path string, w io.Writer) error {
	start := time.Now()
	status := 0
	defer func() {
		observability.RecordGatewayRequest(c.upstream, op, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errs.Internal(op, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Internal(op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode >= 300 {
		return errs.Upstream(c.upstream, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return errs.Internal(op, fmt.Errorf("streaming %s response: %w", c.upstream, err))
	}
	return nil
}

// upload issues a request with a raw streamed body (as opposed to doJSON's
// marshaled-struct body), used by IMGAPI.AddImageFile to push image bytes
// read from another registry's Download.
func (c *client) upload(ctx context.Context, op, method, path string, body io.Reader) error {
	start := time.Now()
	status := 0
	defer func() {
		observability.RecordGatewayRequest(c.upstream, op, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.Internal(op, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Internal(op, fmt.Errorf("request to %s: %w", c.upstream, err))
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return errs.Upstream(c.upstream, op, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw)))
	}
	return nil
}

// ErrNotFound is returned (wrapped in an errs.Error) when an upstream
// reports 404. Callers use errors.Is against this sentinel to implement
// local-then-remote fallback (Catalog.GetImage).
var ErrNotFound = fmt.Errorf("not found")
