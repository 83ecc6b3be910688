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

// PlanFormatVersion is the stable schema version written as "v" in plan.json.
const PlanFormatVersion = 1

// Plan is the update plan: {format-version, current/target inventory
// snapshots, resolved change set, just-images flag, ordered procedure
// list}. Built by the procedure coordinator, written to the work directory
// on execution start, never mutated thereafter.
type Plan struct {
	V          int         `json:"v"`
	Current    []Instance  `json:"current,omitempty"`
	Target     []Instance  `json:"targ"`
	Changes    []Change    `json:"changes"`
	JustImages bool        `json:"justImages"`
	Procedures []ProcStep  `json:"procedures,omitempty"`
}

// ProcStep is the serializable summary of one procedure in the plan,
// written into plan.json alongside the resolved changes. The live
// procedure.Procedure values themselves are not serializable (they close
// over gateway clients); this is their persisted shadow.
type ProcStep struct {
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

// RebootPlanState enumerates the lifecycle of a remote-owned reboot plan.
type RebootPlanState string

const (
	RebootPlanCreated  RebootPlanState = "created"
	RebootPlanPending  RebootPlanState = "pending"
	RebootPlanRunning  RebootPlanState = "running"
	RebootPlanStopped  RebootPlanState = "stopped"
	RebootPlanCanceled RebootPlanState = "canceled"
	RebootPlanFinished RebootPlanState = "finished"
)

// Reboot is one server's entry within a RebootPlan.
type Reboot struct {
	ServerID        string `json:"server_uuid"`
	Hostname        string `json:"hostname"`
	CurrentPlatform string `json:"current_platform"`
	BootPlatform    string `json:"boot_platform"`
	JobID           string `json:"job_uuid,omitempty"`
	RebootID        string `json:"reboot_uuid,omitempty"`
	Headnode        bool   `json:"headnode"`

	StartedAt     string `json:"started_at,omitempty"`
	FinishedAt    string `json:"finished_at,omitempty"`
	OperationalAt string `json:"operational_at,omitempty"`
	CanceledAt    string `json:"canceled_at,omitempty"`
}

// Done reports whether this reboot has reached a terminal state (it is
// operational again, or it was canceled).
func (r Reboot) Done() bool {
	return r.OperationalAt != "" || r.CanceledAt != ""
}

// RebootPlan is the core's view of the remote-owned reboot plan record.
type RebootPlan struct {
	ID          string          `json:"uuid"`
	Concurrency int             `json:"concurrency"`
	SingleStep  bool            `json:"single_step,omitempty"`
	State       RebootPlanState `json:"state"`
	Reboots     []Reboot        `json:"reboots"`
}

// Remaining returns the reboots not yet done.
func (p RebootPlan) Remaining() []Reboot {
	var out []Reboot
	for _, r := range p.Reboots {
		if !r.Done() {
			out = append(out, r)
		}
	}
	return out
}
