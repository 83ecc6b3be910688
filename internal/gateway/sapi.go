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

// SAPI wraps the services registry: applications, services, and its
// instances view.
type SAPI struct {
	client *client
}

// ListApplications lists applications by name; empty name lists all.
func (s *SAPI) ListApplications(ctx context.Context, name string) ([]Application, error) {
	path := "/applications"
	if name != "" {
		path += "?name=" + name
	}
	var apps []Application
	if err := s.client.doJSON(ctx, "sapi.ListApplications", "GET", path, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// Application is the sapi application record owning a set of services.
type Application struct {
	ID   string `json:"uuid"`
	Name string `json:"name"`
}

// UpdateApplicationMetadata merges md into the application's metadata.
func (s *SAPI) UpdateApplicationMetadata(ctx context.Context, appID string, md map[string]interface{}) error {
	body := map[string]interface{}{"metadata": md}
	return s.client.doJSON(ctx, "sapi.UpdateApplicationMetadata", "PUT", "/applications/"+appID, body, nil)
}

// ListServices lists services, optionally filtered by application id and name.
func (s *SAPI) ListServices(ctx context.Context, appID, name string) ([]domain.Service, error) {
	path := "/services"
	sep := "?"
	if appID != "" {
		path += sep + "application_uuid=" + appID
		sep = "&"
	}
	if name != "" {
		path += sep + "name=" + name
	}
	var services []sapiService
	if err := s.client.doJSON(ctx, "sapi.ListServices", "GET", path, nil, &services); err != nil {
		return nil, err
	}
	out := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc.toDomain())
	}
	return out, nil
}

type sapiService struct {
	UUID     string                 `json:"uuid"`
	Name     string                 `json:"name"`
	Type     string                 `json:"type"`
	Params   map[string]interface{} `json:"params"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s sapiService) toDomain() domain.Service {
	kind := domain.KindAgentService
	if s.Type == "vm" {
		kind = domain.KindVMService
	}
	params := make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		params[k] = fmt.Sprintf("%v", v)
	}
	meta := make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		meta[k] = fmt.Sprintf("%v", v)
	}
	return domain.Service{ID: s.UUID, Name: s.Name, Kind: kind, Params: params, Metadata: meta}
}

// UpdateServiceParams writes a new default image id (and any other
// params/metadata) to a service's record.
func (s *SAPI) UpdateServiceParams(ctx context.Context, serviceID string, params, metadata map[string]interface{}) error {
	body := map[string]interface{}{}
	if params != nil {
		body["params"] = params
	}
	if metadata != nil {
		body["metadata"] = metadata
	}
	return s.client.doJSON(ctx, "sapi.UpdateServiceParams", "PUT", "/services/"+serviceID, body, nil)
}

// SAPIInstance is the registry's lightweight instance record (as opposed to
// domain.Instance, which is the core's merged, image-enriched view).
type SAPIInstance struct {
	UUID      string `json:"uuid"`
	ServiceID string `json:"service_uuid"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// ListInstances lists the registry's instance records for one service.
func (s *SAPI) ListInstances(ctx context.Context, serviceID string) ([]SAPIInstance, error) {
	var out []SAPIInstance
	err := s.client.doJSON(ctx, "sapi.ListInstances", "GET", "/instances?service_uuid="+serviceID, nil, &out)
	return out, err
}
