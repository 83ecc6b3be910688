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

import "context"

// WFAPI wraps the workflow engine: the core only ever reads job status and
// params, it never submits jobs directly (jobs are created as a side
// effect of vmapi/cnapi operations).
type WFAPI struct {
	client *client
}

// JobState enumerates the workflow job lifecycle states the core polls for.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Job is the subset of a workflow job record the core needs.
type Job struct {
	UUID   string                 `json:"uuid"`
	State  JobState               `json:"execution"`
	Params map[string]interface{} `json:"params"`
}

// GetJob fetches a job by id.
func (w *WFAPI) GetJob(ctx context.Context, id string) (Job, error) {
	var job Job
	if err := w.client.doJSON(ctx, "wfapi.GetJob", "GET", "/jobs/"+id, nil, &job); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Done reports whether the job has reached a terminal state.
func (j Job) Done() bool {
	switch j.State {
	case JobSucceeded, JobFailed, JobCanceled:
		return true
	default:
		return false
	}
}

// RebootID extracts the reboot_uuid job param written by a reboot-submission
// workflow, or "" if absent.
func (j Job) RebootID() string {
	v, ok := j.Params["reboot_uuid"]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
