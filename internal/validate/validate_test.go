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

package validate

import (
	"testing"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
)

func TestChangeSetConflictServiceAndInstance(t *testing.T) {
	cs := domain.ChangeSet{Changes: []domain.Change{
		{Type: domain.ChangeUpdateService, Target: domain.Target{Service: "cnapi"}},
		{Type: domain.ChangeUpdateInstance, Target: domain.Target{InstanceID: "cnapi0"}, Resolved: &domain.ResolvedChange{
			Instance: &domain.Instance{ID: "cnapi0", Service: "cnapi"},
		}},
	}}
	err := ChangeSet(cs)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !errs.Is(err, errs.KindValidation) && !isMultiOfValidation(err) {
		t.Fatalf("expected a validation-kind error, got %v", err)
	}
}

func isMultiOfValidation(err error) bool {
	me, ok := err.(*errs.MultiError)
	if !ok {
		return false
	}
	for _, e := range me.Errors() {
		if errs.Is(e, errs.KindValidation) {
			return true
		}
	}
	return false
}

func TestChangeSetValidNoConflict(t *testing.T) {
	cs := domain.ChangeSet{Changes: []domain.Change{
		{Type: domain.ChangeUpdateService, Target: domain.Target{Service: "vmapi"}},
		{Type: domain.ChangeUpdateService, Target: domain.Target{Service: "cnapi"}},
	}}
	if err := ChangeSet(cs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChangeShapeRejectsExtraneousFields(t *testing.T) {
	cs := domain.ChangeSet{Changes: []domain.Change{
		{Type: domain.ChangeDeleteService, Target: domain.Target{Service: "cnapi", ImageID: "img-1"}},
	}}
	if err := ChangeSet(cs); err == nil {
		t.Fatal("expected validation error for delete-service carrying an image")
	}
}

func TestChangeShapeRejectsAmbiguousIdentifier(t *testing.T) {
	cs := domain.ChangeSet{Changes: []domain.Change{
		{Type: domain.ChangeUpdateInstance, Target: domain.Target{InstanceID: "vm-1", Service: "vmapi", HostNode: "node-1"}},
	}}
	if err := ChangeSet(cs); err == nil {
		t.Fatal("expected validation error for more than one identifier form")
	}
}
