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
	"errors"
	"fmt"
	"io"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/pollutil"
)

// ImportImage ensures the chosen image is present in the local image
// registry, importing it from the update registry if absent.
type ImportImage struct {
	Image domain.Image
}

func (p *ImportImage) Kind() string { return "ImportImage" }
func (p *ImportImage) Summarize() string {
	return fmt.Sprintf("import image %s (%s@%s)", p.Image.ID, p.Image.ServiceName, p.Image.Version)
}
func (p *ImportImage) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	_, err := pc.Gateway.IMGAPI().GetImage(pc.Ctx, p.Image.ID)
	if err == nil {
		return nil // already present, idempotent
	}
	if !errors.Is(err, gateway.ErrNotFound) {
		return err
	}
	return p.importFromRemote(pc)
}

// importFromRemote brings an image local via the same three-step sequence
// imgadm uses against a remote source: register a placeholder record,
// stream the file across, then activate it.
func (p *ImportImage) importFromRemote(pc Context) error {
	local := pc.Gateway.IMGAPI()
	if err := local.AdminImport(pc.Ctx, p.Image); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	downloadErrCh := make(chan error, 1)
	go func() {
		downloadErrCh <- pc.Gateway.RemoteIMGAPI().Download(pc.Ctx, p.Image.ID, pw)
		pw.Close()
	}()

	if err := local.AddImageFile(pc.Ctx, p.Image.ID, pr); err != nil {
		return err
	}
	if err := <-downloadErrCh; err != nil {
		return errs.Internal("procedure.ImportImage", fmt.Errorf("downloading image %s from remote registry: %w", p.Image.ID, err))
	}

	return local.Activate(pc.Ctx, p.Image.ID)
}

// UpdateServiceParams writes the new default image id to the services
// registry.
type UpdateServiceParams struct {
	Service domain.Service
	Image   domain.Image
}

func (p *UpdateServiceParams) Kind() string { return "UpdateServiceParams" }
func (p *UpdateServiceParams) Summarize() string {
	return fmt.Sprintf("update %s service params to image %s", p.Service.Name, p.Image.ID)
}
func (p *UpdateServiceParams) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	return pc.Gateway.SAPI().UpdateServiceParams(pc.Ctx, p.Service.ID, map[string]interface{}{"image_uuid": p.Image.ID}, nil)
}

// ReprovisionVM drives the VM manager through a reprovision of one core VM
// to the new image.
type ReprovisionVM struct {
	Instance domain.Instance
	Image    domain.Image
}

func (p *ReprovisionVM) Kind() string { return "ReprovisionVm" }
func (p *ReprovisionVM) Summarize() string {
	return fmt.Sprintf("reprovision %s (%s) to image %s", p.Instance.Alias, p.Instance.ID, p.Image.ID)
}
func (p *ReprovisionVM) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	jobID, err := pc.Gateway.VMAPI().ReprovisionVM(pc.Ctx, p.Instance.ID, p.Image.ID)
	if err != nil {
		return err
	}
	return awaitJob(pc, jobID)
}

// UpdateAgentOnNode runs the agent installer on a remote node.
type UpdateAgentOnNode struct {
	Node    domain.Node
	Service string
	Image   domain.Image
}

func (p *UpdateAgentOnNode) Kind() string { return "UpdateAgentOnNode" }
func (p *UpdateAgentOnNode) Summarize() string {
	return fmt.Sprintf("update agent %s on %s to image %s", p.Service, p.Node.Hostname, p.Image.ID)
}
func (p *UpdateAgentOnNode) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	return pc.Gateway.VMAPI().UpdateVM(pc.Ctx, p.Node.ID, "set", map[string]interface{}{
		"agent":      p.Service,
		"image_uuid": p.Image.ID,
	})
}

// CreateVmInstance instantiates a new core VM.
type CreateVmInstance struct {
	Service domain.Service
	Node    domain.Node
	Image   domain.Image
}

func (p *CreateVmInstance) Kind() string { return "CreateVmInstance" }
func (p *CreateVmInstance) Summarize() string {
	return fmt.Sprintf("create %s instance on %s from image %s", p.Service.Name, p.Node.Hostname, p.Image.ID)
}
func (p *CreateVmInstance) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	jobID, err := pc.Gateway.VMAPI().CreateVM(pc.Ctx, p.Service.Name, p.Node.ID, p.Image.ID)
	if err != nil {
		return err
	}
	return awaitJob(pc, jobID)
}

// DeleteVmInstance deletes a VM instance.
type DeleteVmInstance struct {
	Instance domain.Instance
}

func (p *DeleteVmInstance) Kind() string { return "DeleteVmInstance" }
func (p *DeleteVmInstance) Summarize() string {
	return fmt.Sprintf("delete instance %s (%s)", p.Instance.Alias, p.Instance.ID)
}
func (p *DeleteVmInstance) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	jobID, err := pc.Gateway.VMAPI().DeleteVM(pc.Ctx, p.Instance.ID)
	if err != nil {
		return err
	}
	return awaitJob(pc, jobID)
}

// DeleteAgentInstance removes an agent instance from a node.
type DeleteAgentInstance struct {
	Node    domain.Node
	Service string
}

func (p *DeleteAgentInstance) Kind() string { return "DeleteAgentInstance" }
func (p *DeleteAgentInstance) Summarize() string {
	return fmt.Sprintf("delete agent %s from %s", p.Service, p.Node.Hostname)
}
func (p *DeleteAgentInstance) Execute(pc Context) error {
	pc.Progress.Progress(p.Summarize())
	return pc.Gateway.VMAPI().UpdateVM(pc.Ctx, p.Node.ID, "delete", map[string]interface{}{"agent": p.Service})
}

// awaitJob polls a workflow job to completion under the standard budget,
// surfacing job failure verbatim rather than as a timeout.
func awaitJob(pc Context, jobID string) error {
	if jobID == "" {
		return nil
	}
	job, err := pollutil.Poll(pc.Ctx, "procedure.awaitJob", pollutil.Default5s720, func(ctx context.Context) (gateway.Job, bool, error) {
		job, err := pc.Gateway.WFAPI().GetJob(ctx, jobID)
		if err != nil {
			return gateway.Job{}, false, err
		}
		return job, job.Done(), nil
	})
	if err != nil {
		return err
	}
	if job.State != gateway.JobSucceeded {
		return errs.Upstream("wfapi", "procedure.awaitJob", fmt.Errorf("job %s ended in state %s", jobID, job.State))
	}
	return nil
}
