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

package domain

// ChangeType enumerates the five change variants a user may request.
type ChangeType string

const (
	ChangeCreateInstance ChangeType = "create-instance"
	ChangeDeleteInstance ChangeType = "delete-instance"
	ChangeDeleteService  ChangeType = "delete-service"
	ChangeUpdateInstance ChangeType = "update-instance"
	ChangeUpdateService  ChangeType = "update-service"
)

// Target identifies what a change applies to: exactly one of InstanceID or
// the (Service, HostNode) pair must be set, enforced by the validator, not
// by this type — the raw, unvalidated shape mirrors what a user actually
// supplies on the command line or in a JSON change-set file.
type Target struct {
	Service    string `json:"service,omitempty"`
	InstanceID string `json:"instanceId,omitempty"`
	HostNode   string `json:"hostNode,omitempty"`
	ImageID    string `json:"image,omitempty"`
}

// Change is a single user-supplied intent, as received, before resolution.
type Change struct {
	Type   ChangeType `json:"type"`
	Target Target     `json:"target"`

	// Resolved is populated by the resolver; nil until then.
	Resolved *ResolvedChange `json:"resolved,omitempty"`
}

// ResolvedChange carries the inventory and image objects substituted for
// the raw identifiers in Target, replacing the source's dynamic
// property-bag pattern (where change.instance could be either a string or
// an object depending on pipeline stage) with a distinct typed sibling.
type ResolvedChange struct {
	Service  *Service  `json:"service,omitempty"`
	Instance *Instance `json:"instance,omitempty"`
	Node     *Node     `json:"node,omitempty"`
	Image    *Image    `json:"image,omitempty"`
}

// ServiceName returns the service this change targets, preferring the
// resolved records when present: the resolved service, then the resolved
// instance's service, then the raw target's service name.
func (c Change) ServiceName() string {
	if c.Resolved != nil && c.Resolved.Service != nil {
		return c.Resolved.Service.Name
	}
	if c.Resolved != nil && c.Resolved.Instance != nil && c.Resolved.Instance.Service != "" {
		return c.Resolved.Instance.Service
	}
	return c.Target.Service
}

// InstanceKey returns an identifier for conflict detection: the resolved
// instance ID if known, else the raw target's InstanceID or HostNode/Service
// pair serialized as "<hostNode>/<service>".
func (c Change) InstanceKey() string {
	if c.Resolved != nil && c.Resolved.Instance != nil {
		return c.Resolved.Instance.ID
	}
	if c.Target.InstanceID != "" {
		return c.Target.InstanceID
	}
	if c.Target.HostNode != "" {
		return c.Target.HostNode + "/" + c.Target.Service
	}
	return ""
}

// IsServiceLevel reports whether this change targets a whole service rather
// than one instance.
func (c Change) IsServiceLevel() bool {
	return c.Type == ChangeDeleteService || c.Type == ChangeUpdateService
}

// ChangeSet is a user-supplied set of changes together with the invariants
// checked by the validator (no two changes touch the same service
// simultaneously, no two changes touch the same instance, a service-level
// change conflicts with any instance-level change on that service).
type ChangeSet struct {
	Changes []Change `json:"changes"`
}
