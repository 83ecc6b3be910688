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

package reboot

import (
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/health"
	"go.smartdc.io/fleetadm/internal/mocks"
)

// TestEngineRunFailsFastOnUnhealthyHeadnode exercises checkHeadnodeServices
// (executeReboot's pre-reboot gate for headnodes) against a
// go.uber.org/mock double instead of a real health round trip, so the
// unhealthy branch can be asserted without modeling it in the httptest fake.
func TestEngineRunFailsFastOnUnhealthyHeadnode(t *testing.T) {
	srv := newRebootServer()
	srv.headnode = true
	hs := httptest.NewServer(srv.handler())
	defer hs.Close()

	ctrl := gomock.NewController(t)
	checker := mocks.NewMockChecker(ctrl)
	checker.EXPECT().
		Check(gomock.Any(), health.Query{Servers: []string{"cn1"}}).
		Return([]gateway.InstanceHealth{{Service: "cn1", Instance: "cn1", Healthy: false}}, nil)

	gw := gateway.New(map[string]string{"cnapi": hs.URL, "wfapi": hs.URL}, nil)
	eng := NewEngine(gw, checker, nil)

	err := eng.Run(t.Context(), "plan-1", map[string]NodeClass{"cn1": ClassCore}, 1)
	if err == nil {
		t.Fatal("expected error for unhealthy headnode")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.operational {
		t.Fatal("reboot must not be marked operational when the pre-reboot health gate fails")
	}
}
