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

// Package validate implements the change-set validator: syntactic
// validation of each change plus conflict detection across the set. All
// violations are collected and reported as one aggregate error rather than
// stopping at the first.
package validate

import (
	"fmt"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
)

// ChangeSet validates every change's shape and the set's cross-change
// invariants, returning a *errs.MultiError (via errs.NewMultiError) if any
// rule fails, or nil if the set is valid.
func ChangeSet(cs domain.ChangeSet) error {
	var violations []error

	for i, c := range cs.Changes {
		if err := change(i, c); err != nil {
			violations = append(violations, err)
		}
	}

	violations = append(violations, conflicts(cs.Changes)...)

	return errs.NewMultiError(violations)
}

// change validates one change's shape: exactly one identifier form, image
// optional in all but delete-service (where it is rejected), and no
// instance id on a service-level or create-instance change. An
// instance-level change may name its instance's service alongside the
// instance id.
func change(index int, c domain.Change) error {
	t := c.Target
	hasInstance := t.InstanceID != ""
	hasServiceNode := t.Service != "" && t.HostNode != ""
	hasServiceOnly := t.Service != "" && t.HostNode == ""

	op := fmt.Sprintf("validate.Change[%d]", index)

	switch c.Type {
	case domain.ChangeDeleteService:
		if !hasServiceOnly || hasInstance {
			return errs.Validation(op, fmt.Errorf("delete-service requires exactly a service name, got %+v", t))
		}
		if t.ImageID != "" {
			return errs.Validation(op, fmt.Errorf("delete-service must not carry an image"))
		}
		return nil

	case domain.ChangeCreateInstance:
		if !hasServiceNode || hasInstance {
			return errs.Validation(op, fmt.Errorf("create-instance requires service and host-node, got %+v", t))
		}
		return nil

	case domain.ChangeUpdateService:
		if !hasServiceOnly || hasInstance {
			return errs.Validation(op, fmt.Errorf("update-service requires exactly a service name, got %+v", t))
		}
		return nil

	case domain.ChangeDeleteInstance, domain.ChangeUpdateInstance:
		identifierCount := 0
		if hasInstance {
			identifierCount++
		}
		if hasServiceNode {
			identifierCount++
		}
		if identifierCount != 1 {
			return errs.Validation(op, fmt.Errorf("%s requires exactly one identifier form (instance id, or service+host-node), got %+v", c.Type, t))
		}
		return nil

	default:
		return errs.Validation(op, fmt.Errorf("unknown change type %q", c.Type))
	}
}

// conflicts runs the two-pass scan: pass 1 populates {service→change} and
// {instance→change} maps flagging duplicates; pass 2 flags service/instance
// overlaps (a service-level change against any instance-level change on
// that service).
func conflicts(changes []domain.Change) []error {
	var violations []error

	serviceChanges := make(map[string]int) // service name -> count of service-level changes
	instanceChanges := make(map[string]int) // instance key -> count of instance-level changes
	servicesTouchedByInstance := make(map[string]bool)

	// pass 1
	for _, c := range changes {
		svc := c.ServiceName()
		if c.IsServiceLevel() {
			serviceChanges[svc]++
			if serviceChanges[svc] > 1 {
				violations = append(violations, errs.Validation("validate.conflicts",
					fmt.Errorf("service %q targeted by more than one service-level change", svc)))
			}
			continue
		}
		key := c.InstanceKey()
		if key == "" {
			continue
		}
		instanceChanges[key]++
		if instanceChanges[key] > 1 {
			violations = append(violations, errs.Validation("validate.conflicts",
				fmt.Errorf("instance %q targeted by more than one change", key)))
		}
		servicesTouchedByInstance[svc] = true
	}

	// pass 2
	for svc := range serviceChanges {
		if servicesTouchedByInstance[svc] {
			violations = append(violations, errs.Validation("validate.conflicts",
				fmt.Errorf("service %q has both a service-level and an instance-level change", svc)))
		}
	}

	return violations
}
