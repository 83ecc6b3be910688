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
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/health"
	"go.smartdc.io/fleetadm/internal/observability"
	"go.smartdc.io/fleetadm/internal/pollutil"
)

// nowRFC3339 is the timestamp format written to operational_at/canceled_at.
func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// Engine drives a created reboot plan to completion, batch by batch.
type Engine struct {
	gw     *gateway.Gateway
	health health.Checker
	log    *zap.SugaredLogger
}

// NewEngine builds an Engine. hp is typically a *health.Prober, but any
// health.Checker (including a test double) satisfies it.
func NewEngine(gw *gateway.Gateway, hp health.Checker, log *zap.SugaredLogger) *Engine {
	return &Engine{gw: gw, health: hp, log: log}
}

// ErrPlanNotRunning is wrapped into the returned error when the plan's
// remote state is no longer "running" (stopped or canceled externally).
var ErrPlanNotRunning = fmt.Errorf("reboot plan is not running")

// Run drives planID through successive batches until no reboots remain,
// at which point it marks the plan finished. classes locates each
// reboot's node classification, computed once by the caller via
// ClassifyNodes since node membership in "core" does not change mid-run.
// The plan's own remote state is re-read before every batch and before
// every individual reboot, so an external stop/cancel is honored promptly
// without the engine keeping any authoritative state of its own.
// Non-core batches are sized by the plan's own concurrency; the
// concurrency argument applies only when the plan reports none.
func (e *Engine) Run(ctx context.Context, planID string, classes map[string]NodeClass, concurrency int) error {
	for {
		plan, err := e.gw.CNAPI().GetRebootPlan(ctx, planID)
		if err != nil {
			return err
		}
		if plan.State == domain.RebootPlanCreated || plan.State == domain.RebootPlanPending {
			if err := e.gw.CNAPI().RebootPlanAction(ctx, planID, "run"); err != nil {
				return err
			}
			continue
		}
		if plan.State != domain.RebootPlanRunning {
			return errs.Internal("reboot.Run", fmt.Errorf("%w: plan %s state is %s", ErrPlanNotRunning, planID, plan.State))
		}

		remaining := plan.Remaining()
		if len(remaining) == 0 {
			return e.gw.CNAPI().RebootPlanAction(ctx, planID, "finish")
		}

		limit := concurrency
		if plan.Concurrency > 0 {
			limit = plan.Concurrency
		}
		batch := BuildBatches(remaining, classes, limit)[0]
		if err := e.runBatch(ctx, planID, batch); err != nil {
			if cancelErr := e.gw.CNAPI().RebootPlanAction(ctx, planID, "cancel"); cancelErr != nil && e.log != nil {
				e.log.Errorw("cancel reboot plan after batch failure", "plan", planID, "error", cancelErr)
			}
			return err
		}
	}
}

// runBatch executes every reboot in a batch concurrently and waits for all
// of them, per the fail-fast policy: in-flight siblings are allowed to
// finish, but the caller will not start the next batch on any failure.
func (e *Engine) runBatch(ctx context.Context, planID string, b Batch) error {
	observability.SetRebootsInFlight(len(b.Reboots))
	defer observability.SetRebootsInFlight(0)

	errCh := make(chan error, len(b.Reboots))
	for _, r := range b.Reboots {
		r := r
		go func() {
			errCh <- e.executeReboot(ctx, planID, r)
		}()
	}

	var firstErr error
	for range b.Reboots {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// executeReboot runs one reboot's state machine:
//
//	checkPlanStillRunning -> checkHeadnodeServices -> prepareDataStore ->
//	submitRebootJob -> discoverRebootId -> awaitRebootJob ->
//	awaitHealthyServices -> awaitDataStoreSync -> thawDataStore ->
//	markOperational
//
// Every step after a reboot_uuid is known writes canceled_at on failure
// before returning; a shard frozen by this reboot is always thawed before
// either operational_at is written or the error is returned.
func (e *Engine) executeReboot(ctx context.Context, planID string, r domain.Reboot) (err error) {
	started := time.Now()
	frozen := false
	thawed := false
	rebootID := r.RebootID
	thaw := func() {
		if frozen && !thawed {
			if thawErr := e.gw.DataStore().Thaw(ctx, r.ServerID); thawErr != nil && e.log != nil {
				e.log.Errorw("thaw data store after reboot", "server", r.ServerID, "error", thawErr)
			}
			thawed = true
		}
	}
	defer func() {
		thaw()
		if err != nil && rebootID != "" {
			if upErr := e.gw.CNAPI().UpdateReboot(ctx, planID, rebootID, map[string]string{"canceled_at": nowRFC3339()}); upErr != nil && e.log != nil {
				e.log.Errorw("mark reboot canceled", "reboot", rebootID, "error", upErr)
			}
		}
		observability.RecordRebootDuration(r.Hostname, time.Since(started))
	}()

	// checkPlanStillRunning
	plan, err := e.gw.CNAPI().GetRebootPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.State != domain.RebootPlanRunning {
		return errs.Internal("reboot.executeReboot", fmt.Errorf("%w: plan %s state is %s", ErrPlanNotRunning, planID, plan.State))
	}

	// checkHeadnodeServices
	if r.Headnode {
		results, herr := e.health.Check(ctx, health.Query{Servers: []string{r.ServerID}})
		if herr != nil {
			err = herr
			return err
		}
		if !health.AllHealthy(results) {
			err = errs.Internal("reboot.executeReboot", fmt.Errorf("headnode %s has unhealthy services before reboot", r.Hostname))
			return err
		}
	}

	// prepareDataStore
	role, derr := e.gw.DataStore().Role(ctx, r.ServerID)
	if derr != nil {
		err = derr
		return err
	}
	if role == gateway.RolePrimary {
		if ferr := e.gw.DataStore().Freeze(ctx, r.ServerID); ferr != nil {
			err = ferr
			return err
		}
		frozen = true
	}

	// submitRebootJob (idempotent: a plan resumed with job_uuid already set
	// on this reboot record does not resubmit)
	jobID := r.JobID
	if jobID == "" {
		jobID, err = e.gw.CNAPI().SubmitReboot(ctx, r.ServerID, true, planID)
		if err != nil {
			return err
		}
	}

	// discoverRebootId
	if rebootID == "" {
		job, jerr := e.gw.WFAPI().GetJob(ctx, jobID)
		if jerr != nil {
			err = jerr
			return err
		}
		rebootID = job.RebootID()
	}

	// awaitRebootJob
	job, perr := pollutil.Poll(ctx, "reboot.awaitRebootJob", pollutil.Default5s720, func(ctx context.Context) (gateway.Job, bool, error) {
		job, err := e.gw.WFAPI().GetJob(ctx, jobID)
		if err != nil {
			return gateway.Job{}, false, err
		}
		return job, job.Done(), nil
	})
	if perr != nil {
		err = perr
		return err
	}
	if job.State != gateway.JobSucceeded {
		err = errs.Upstream("wfapi", "reboot.awaitRebootJob", fmt.Errorf("reboot job %s for %s ended in state %s", jobID, r.Hostname, job.State))
		return err
	}

	// awaitHealthyServices
	_, err = pollutil.Poll(ctx, "reboot.awaitHealthyServices", pollutil.Default5s720, func(ctx context.Context) (struct{}, bool, error) {
		results, herr := e.health.Check(ctx, health.Query{Servers: []string{r.ServerID}})
		if herr != nil {
			return struct{}{}, false, herr
		}
		return struct{}{}, health.AllHealthy(results), nil
	})
	if err != nil {
		return err
	}

	// awaitDataStoreSync (only meaningful when this node hosts a replica)
	if role != gateway.RoleNone {
		_, err = pollutil.Poll(ctx, "reboot.awaitDataStoreSync", pollutil.Default5s720, func(ctx context.Context) (struct{}, bool, error) {
			synced, serr := e.gw.DataStore().SyncState(ctx, r.ServerID)
			if serr != nil {
				return struct{}{}, false, serr
			}
			return struct{}{}, synced, nil
		})
		if err != nil {
			return err
		}
	}

	// thawDataStore: explicit, ahead of markOperational, so a frozen shard
	// is never left frozen once the reboot record reports operational.
	thaw()
	if rebootID != "" {
		if uerr := e.gw.CNAPI().UpdateReboot(ctx, planID, rebootID, map[string]string{"operational_at": nowRFC3339()}); uerr != nil {
			err = uerr
			return err
		}
	}
	return nil
}
