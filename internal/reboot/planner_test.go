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
	"testing"

	"go.smartdc.io/fleetadm/internal/domain"
)

func TestClassifyNodes(t *testing.T) {
	nodes := []domain.Node{{ID: "cn1"}, {ID: "cn2"}}
	instances := []domain.Instance{
		{Kind: domain.InstanceVM, HostNodeID: "cn1"},
		{Kind: domain.InstanceAgent, HostNodeID: "cn2"},
	}
	classes := ClassifyNodes(nodes, instances)
	if classes["cn1"] != ClassCore {
		t.Fatalf("expected cn1 classified core, got %s", classes["cn1"])
	}
	if classes["cn2"] != ClassNonCore {
		t.Fatalf("expected cn2 classified non-core, got %s", classes["cn2"])
	}
}

func TestCheckPlatform(t *testing.T) {
	cases := []struct {
		current, boot string
		want          PlatformWarning
	}{
		{"20230101T000000Z", "20230101T000000Z", WarnSamePlatform},
		{"20230201T000000Z", "20230101T000000Z", WarnDowngrade},
		{"20230101T000000Z", "20230201T000000Z", WarnNone},
	}
	for _, c := range cases {
		n := domain.Node{CurrentPlatform: c.current, BootPlatform: c.boot}
		if got := CheckPlatform(n); got != c.want {
			t.Errorf("CheckPlatform(%s, %s) = %s, want %s", c.current, c.boot, got, c.want)
		}
	}
}

// TestRebootOrderingInvariant covers invariant #5: every batch containing a
// core-node reboot has size 1 and precedes every batch containing only
// non-core reboots.
func TestRebootOrderingInvariant(t *testing.T) {
	classes := map[string]NodeClass{
		"core1": ClassCore,
		"n1":    ClassNonCore,
		"n2":    ClassNonCore,
		"n3":    ClassNonCore,
	}
	remaining := []domain.Reboot{
		{ServerID: "n1"},
		{ServerID: "core1"},
		{ServerID: "n2"},
		{ServerID: "n3"},
	}
	batches := BuildBatches(remaining, classes, 2)

	sawNonCore := false
	for _, b := range batches {
		hasCore := false
		for _, r := range b.Reboots {
			if classes[r.ServerID] == ClassCore {
				hasCore = true
			}
		}
		if hasCore {
			if len(b.Reboots) != 1 {
				t.Fatalf("core batch must be a singleton, got %d reboots", len(b.Reboots))
			}
			if sawNonCore {
				t.Fatal("core batch must precede non-core batches")
			}
		} else {
			sawNonCore = true
		}
	}

	nonCoreBatches := batches[1:]
	if len(nonCoreBatches) != 2 {
		t.Fatalf("expected 2 non-core batches chunked by concurrency 2, got %d", len(nonCoreBatches))
	}
	if len(nonCoreBatches[0].Reboots) != 2 || len(nonCoreBatches[1].Reboots) != 1 {
		t.Fatalf("unexpected non-core batch sizes: %d, %d", len(nonCoreBatches[0].Reboots), len(nonCoreBatches[1].Reboots))
	}
}

func TestBuildBatchesAllCore(t *testing.T) {
	classes := map[string]NodeClass{"a": ClassCore, "b": ClassCore}
	batches := BuildBatches([]domain.Reboot{{ServerID: "a"}, {ServerID: "b"}}, classes, 5)
	if len(batches) != 2 {
		t.Fatalf("expected 2 singleton batches, got %d", len(batches))
	}
}
