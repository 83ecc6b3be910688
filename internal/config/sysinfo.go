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

package config

import (
	"bytes"
	"encoding/json"
	"os/exec"

	"go.smartdc.io/fleetadm/internal/errs"
)

// SysinfoProvider derives DC identity by invoking the control host's
// sysinfo(1M)-style metadata script and parsing its JSON output. It is the
// production SystemInfoProvider; tests use a fixed in-memory stub instead.
type SysinfoProvider struct {
	// BinaryPath is the path to the sysinfo binary; defaults to "sysinfo".
	BinaryPath string
}

type sysinfoOutput struct {
	DatacenterName string `json:"Datacenter Name"`
	DNSDomain      string `json:"DNS Domain"`
	AdminUUID      string `json:"Admin UUID"`
}

func (p SysinfoProvider) run() (sysinfoOutput, error) {
	bin := p.BinaryPath
	if bin == "" {
		bin = "sysinfo"
	}
	var out sysinfoOutput
	cmd := exec.Command(bin)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return out, errs.Internal("sysinfo.run", err)
	}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return out, errs.Internal("sysinfo.parse", err)
	}
	return out, nil
}

// DCName implements SystemInfoProvider.
func (p SysinfoProvider) DCName() (string, error) {
	out, err := p.run()
	if err != nil {
		return "", err
	}
	return out.DatacenterName, nil
}

// DNSDomain implements SystemInfoProvider.
func (p SysinfoProvider) DNSDomain() (string, error) {
	out, err := p.run()
	if err != nil {
		return "", err
	}
	return out.DNSDomain, nil
}

// AdminUUID implements SystemInfoProvider.
func (p SysinfoProvider) AdminUUID() (string, error) {
	out, err := p.run()
	if err != nil {
		return "", err
	}
	return out.AdminUUID, nil
}

// StaticSystemInfo is a SystemInfoProvider backed by fixed values, used in
// tests and in --config-only dry runs where shelling out is undesirable.
type StaticSystemInfo struct {
	DC     string
	Domain string
	Admin  string
}

func (s StaticSystemInfo) DCName() (string, error)    { return s.DC, nil }
func (s StaticSystemInfo) DNSDomain() (string, error)  { return s.Domain, nil }
func (s StaticSystemInfo) AdminUUID() (string, error) { return s.Admin, nil }
