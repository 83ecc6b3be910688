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

package health

import (
	"testing"

	"go.smartdc.io/fleetadm/internal/gateway"
)

func TestAllHealthy(t *testing.T) {
	healthy := []gateway.InstanceHealth{{Healthy: true}, {Healthy: true}}
	if !AllHealthy(healthy) {
		t.Fatal("expected all-healthy set to report healthy")
	}
	mixed := []gateway.InstanceHealth{{Healthy: true}, {Healthy: false, HealthErrors: []string{"down"}}}
	if AllHealthy(mixed) {
		t.Fatal("expected mixed set to report unhealthy")
	}
	if len(Unhealthy(mixed)) != 1 {
		t.Fatalf("expected exactly one unhealthy result, got %+v", Unhealthy(mixed))
	}
}

func TestAllHealthyEmptySetIsHealthy(t *testing.T) {
	if !AllHealthy(nil) {
		t.Fatal("expected empty result set to report healthy")
	}
}
