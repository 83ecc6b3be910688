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

// Package domain holds the data model shared by every core component:
// services, instances, compute nodes, images, and the change/plan types
// built from them. Beyond (de)serialization these types carry only small
// helpers (identifiers, image ordering, settled/remaining checks); the
// components in the sibling packages own the logic.
package domain

import "time"

// ServiceKind distinguishes a VM-backed service from an agent-backed one.
type ServiceKind string

const (
	KindVMService    ServiceKind = "vm-service"
	KindAgentService ServiceKind = "agent-service"
)

// Service is the logical unit of software defined in the services registry.
// Never created or deleted by the core.
type Service struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Kind       ServiceKind       `json:"kind"`
	Params     map[string]string `json:"params,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// InstanceKind distinguishes a VM instance from an agent instance.
type InstanceKind string

const (
	InstanceVM    InstanceKind = "vm"
	InstanceAgent InstanceKind = "agent"
)

// Instance is a concrete running entity providing one service on one node.
// For a VM instance, ID is the VM uuid. For an agent instance, ID is the
// composite "<node-id>/<service-name>", stable for the life of the agent on
// that node.
type Instance struct {
	ID           string       `json:"id"`
	Service      string       `json:"service"`
	Kind         InstanceKind `json:"kind"`
	Alias        string       `json:"alias,omitempty"`
	HostNodeID   string       `json:"hostNodeId"`
	Hostname     string       `json:"hostname,omitempty"`
	CurrentImage string       `json:"currentImage,omitempty"`
	Version      string       `json:"version,omitempty"`
}

// CompositeID returns the agent composite identifier. Only meaningful when
// Kind == InstanceAgent.
func (i Instance) CompositeID() string {
	return i.HostNodeID + "/" + i.Service
}

// NodeStatus is the compute node's settled/transitional status.
type NodeStatus string

const (
	NodeRunning NodeStatus = "running"
)

// Node is a server in the fleet.
type Node struct {
	ID                 string            `json:"id"`
	Hostname           string            `json:"hostname"`
	Status             NodeStatus        `json:"status"`
	TransitionalStatus string            `json:"transitionalStatus,omitempty"`
	CurrentPlatform    string            `json:"currentPlatform"`
	BootPlatform       string            `json:"bootPlatform"`
	Headnode           bool              `json:"headnode"`
	SystemInfo         map[string]string `json:"systemInfo,omitempty"`
	Agents             []string          `json:"agents,omitempty"`
}

// Settled reports whether the node has no in-flight transition.
func (n Node) Settled() bool { return n.TransitionalStatus == "" }

// Image is a versioned artifact in a registry.
type Image struct {
	ID          string            `json:"id"`
	ServiceName string            `json:"serviceName"`
	Version     string            `json:"version"`
	PublishTime time.Time         `json:"publishTime"`
	FileSize    int64             `json:"fileSize"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// BuildTime returns the image's build-time tag, or the zero time if absent.
func (img Image) BuildTime() time.Time {
	raw, ok := img.Tags["buildtime"]
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse("20060102T150405Z", raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
