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
	"fmt"

	"go.smartdc.io/fleetadm/internal/domain"
)

// CNAPI wraps the compute-node manager: node listing, reboot submission,
// health, and the reboot-plan API contract.
type CNAPI struct {
	client *client
}

type nodeRecord struct {
	UUID               string            `json:"uuid"`
	Hostname           string            `json:"hostname"`
	Status             string            `json:"status"`
	TransitionalStatus string            `json:"transitional_status"`
	CurrentPlatform    string            `json:"current_platform"`
	BootPlatform       string            `json:"boot_platform"`
	Headnode           bool              `json:"headnode"`
	SysinfoExtra       map[string]string `json:"sysinfo"`
	Agents             []string          `json:"agents"`
}

func (n nodeRecord) toDomain() domain.Node {
	return domain.Node{
		ID:                 n.UUID,
		Hostname:           n.Hostname,
		Status:             domain.NodeStatus(n.Status),
		TransitionalStatus: n.TransitionalStatus,
		CurrentPlatform:    n.CurrentPlatform,
		BootPlatform:       n.BootPlatform,
		Headnode:           n.Headnode,
		SystemInfo:         n.SysinfoExtra,
		Agents:             n.Agents,
	}
}

// ListNodes lists compute nodes, with system-info extra.
func (c *CNAPI) ListNodes(ctx context.Context) ([]domain.Node, error) {
	var nodes []nodeRecord
	if err := c.client.doJSON(ctx, "cnapi.ListNodes", "GET", "/servers?extras=sysinfo,agents", nil, &nodes); err != nil {
		return nil, err
	}
	out := make([]domain.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.toDomain())
	}
	return out, nil
}

// GetNode fetches a single node by id.
func (c *CNAPI) GetNode(ctx context.Context, id string) (domain.Node, error) {
	var n nodeRecord
	if err := c.client.doJSON(ctx, "cnapi.GetNode", "GET", "/servers/"+id, nil, &n); err != nil {
		return domain.Node{}, err
	}
	return n.toDomain(), nil
}

// SubmitReboot submits a reboot job for one node, optionally tied to a
// reboot plan.
func (c *CNAPI) SubmitReboot(ctx context.Context, nodeID string, drain bool, rebootPlanID string) (jobID string, err error) {
	body := map[string]interface{}{"drain": drain}
	if rebootPlanID != "" {
		body["reboot_plan"] = rebootPlanID
	}
	var resp struct {
		JobUUID string `json:"job_uuid"`
	}
	if err := c.client.doJSON(ctx, "cnapi.SubmitReboot", "POST", "/servers/"+nodeID+"/reboot", body, &resp); err != nil {
		return "", err
	}
	return resp.JobUUID, nil
}

// GetRebootPlan fetches one reboot plan by id.
func (c *CNAPI) GetRebootPlan(ctx context.Context, id string) (domain.RebootPlan, error) {
	var plan domain.RebootPlan
	if err := c.client.doJSON(ctx, "cnapi.GetRebootPlan", "GET", fmt.Sprintf("/reboot-plans/%s?include_reboots=true", id), nil, &plan); err != nil {
		return domain.RebootPlan{}, err
	}
	return plan, nil
}

// ListRebootPlans lists reboot plans filtered by state.
func (c *CNAPI) ListRebootPlans(ctx context.Context, state string) ([]domain.RebootPlan, error) {
	path := "/reboot-plans?include_reboots=true"
	if state != "" {
		path += "&state=" + state
	}
	var plans []domain.RebootPlan
	if err := c.client.doJSON(ctx, "cnapi.ListRebootPlans", "GET", path, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CreateRebootPlan creates a new reboot plan over the given servers.
func (c *CNAPI) CreateRebootPlan(ctx context.Context, serverIDs []string, concurrency int, singleStep bool) (domain.RebootPlan, error) {
	body := map[string]interface{}{
		"servers":     serverIDs,
		"concurrency": concurrency,
	}
	if singleStep {
		body["single_step"] = true
	}
	var plan domain.RebootPlan
	if err := c.client.doJSON(ctx, "cnapi.CreateRebootPlan", "POST", "/reboot-plans", body, &plan); err != nil {
		return domain.RebootPlan{}, err
	}
	return plan, nil
}

// RebootPlanAction drives a reboot plan's lifecycle: run, stop, cancel, finish.
func (c *CNAPI) RebootPlanAction(ctx context.Context, id, action string) error {
	body := map[string]interface{}{"action": action}
	return c.client.doJSON(ctx, "cnapi.RebootPlanAction."+action, "PUT", "/reboot-plans/"+id, body, nil)
}

// UpdateReboot writes operational_at or canceled_at on one reboot within a plan.
func (c *CNAPI) UpdateReboot(ctx context.Context, planID, rebootID string, fields map[string]string) error {
	body := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		body[k] = v
	}
	return c.client.doJSON(ctx, "cnapi.UpdateReboot", "PUT", fmt.Sprintf("/reboot-plans/%s/reboots/%s", planID, rebootID), body, nil)
}

// CheckHealth queries per-instance health for the servers/uuids/type
// filter. The definition of "healthy" is delegated entirely to cnapi;
// this is a pass-through.
func (c *CNAPI) CheckHealth(ctx context.Context, servers, uuids []string, typ string) ([]InstanceHealth, error) {
	body := map[string]interface{}{}
	if len(servers) > 0 {
		body["servers"] = servers
	}
	if len(uuids) > 0 {
		body["uuids"] = uuids
	}
	if typ != "" {
		body["type"] = typ
	}
	var out []InstanceHealth
	if err := c.client.doJSON(ctx, "cnapi.CheckHealth", "POST", "/health", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InstanceHealth is one instance's health report.
type InstanceHealth struct {
	Service      string   `json:"service"`
	Instance     string   `json:"instance"`
	Hostname     string   `json:"hostname"`
	Alias        string   `json:"alias,omitempty"`
	Healthy      bool     `json:"healthy"`
	HealthErrors []string `json:"health_errors,omitempty"`
}
