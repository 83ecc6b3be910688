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

	"go.smartdc.io/fleetadm/internal/domain"
)

// VMAPI wraps the VM manager.
type VMAPI struct {
	client *client
}

type vmRecord struct {
	UUID       string            `json:"uuid"`
	Alias      string            `json:"alias"`
	ServerUUID string            `json:"server_uuid"`
	Hostname   string            `json:"hostname"`
	ImageUUID  string            `json:"image_uuid"`
	Tags       map[string]string `json:"tags"`
	OwnerUUID  string            `json:"owner_uuid"`
}

// ListVMs lists VMs matching the given tag filter. Used by the inventory
// to discover core VMs (tagged smartdc_role, owned by the fixed admin
// user) and by the resolver to find a service's in-use instances.
func (v *VMAPI) ListVMs(ctx context.Context, filter map[string]string) ([]domain.Instance, error) {
	path := "/vms"
	sep := "?"
	for k, val := range filter {
		path += sep + k + "=" + val
		sep = "&"
	}
	var vms []vmRecord
	if err := v.client.doJSON(ctx, "vmapi.ListVMs", "GET", path, nil, &vms); err != nil {
		return nil, err
	}
	out := make([]domain.Instance, 0, len(vms))
	for _, vm := range vms {
		out = append(out, vm.toInstance())
	}
	return out, nil
}

func (vm vmRecord) toInstance() domain.Instance {
	return domain.Instance{
		ID:           vm.UUID,
		Service:      vm.Tags["smartdc_role"],
		Kind:         domain.InstanceVM,
		Alias:        vm.Alias,
		HostNodeID:   vm.ServerUUID,
		Hostname:     vm.Hostname,
		CurrentImage: vm.ImageUUID,
	}
}

// GetVM fetches a single VM by id.
func (v *VMAPI) GetVM(ctx context.Context, id string) (domain.Instance, error) {
	var vm vmRecord
	if err := v.client.doJSON(ctx, "vmapi.GetVM", "GET", "/vms/"+id, nil, &vm); err != nil {
		return domain.Instance{}, err
	}
	return vm.toInstance(), nil
}

// UpdateVM applies an action (delete|set) with the given metadata payload.
func (v *VMAPI) UpdateVM(ctx context.Context, id, action string, payload map[string]interface{}) error {
	body := map[string]interface{}{"action": action}
	for k, val := range payload {
		body[k] = val
	}
	return v.client.doJSON(ctx, "vmapi.UpdateVM."+action, "POST", "/vms/"+id, body, nil)
}

// ReprovisionVM drives a reprovision of a VM onto a new image.
func (v *VMAPI) ReprovisionVM(ctx context.Context, id, imageID string) (jobID string, err error) {
	var resp struct {
		JobUUID string `json:"job_uuid"`
	}
	body := map[string]interface{}{"image_uuid": imageID}
	if err := v.client.doJSON(ctx, "vmapi.ReprovisionVM", "POST", "/vms/"+id+"?action=reprovision", body, &resp); err != nil {
		return "", err
	}
	return resp.JobUUID, nil
}

// CreateVM instantiates a new VM for a service on a given node.
func (v *VMAPI) CreateVM(ctx context.Context, serviceName, nodeID, imageID string) (jobID string, err error) {
	var resp struct {
		JobUUID string `json:"job_uuid"`
	}
	body := map[string]interface{}{
		"server_uuid": nodeID,
		"image_uuid":  imageID,
		"tags":        map[string]string{"smartdc_role": serviceName},
	}
	if err := v.client.doJSON(ctx, "vmapi.CreateVM", "POST", "/vms", body, &resp); err != nil {
		return "", err
	}
	return resp.JobUUID, nil
}

// DeleteVM deletes a VM instance.
func (v *VMAPI) DeleteVM(ctx context.Context, id string) (jobID string, err error) {
	var resp struct {
		JobUUID string `json:"job_uuid"`
	}
	if err := v.client.doJSON(ctx, "vmapi.DeleteVM", "DELETE", "/vms/"+id, nil, &resp); err != nil {
		return "", err
	}
	return resp.JobUUID, nil
}
