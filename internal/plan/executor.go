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

// Package plan implements the plan executor: lock-protected execution
// of an ordered procedure pipeline, work-directory creation, plan.json
// serialization, and dry-run / just-images modes.
package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/lock"
	"go.smartdc.io/fleetadm/internal/observability"
	"go.smartdc.io/fleetadm/internal/procedure"
)

// Options configures one execution run.
type Options struct {
	WorkDirBase string
	DryRun      bool
	JustImages  bool
}

// Executor runs a built plan under the process-wide lock.
type Executor struct {
	lock *lock.Lock
	gw   *gateway.Gateway
	log  *zap.SugaredLogger
}

// New builds an Executor.
func New(l *lock.Lock, gw *gateway.Gateway, log *zap.SugaredLogger) *Executor {
	return &Executor{lock: l, gw: gw, log: log}
}

// Result is the outcome of one execution.
type Result struct {
	WorkDir string
	Ran     []string // summaries of procedures actually executed
}

// Run acquires the lock, creates the work directory (unless dry-run),
// serializes plan.json, and runs the pipeline in order, stopping at the
// first error. The lock is released on every exit path, including panics.
func (e *Executor) Run(ctx context.Context, p *domain.Plan, procs []procedure.Procedure, progress procedure.ProgressSink, opts Options) (res Result, err error) {
	tok, err := e.lock.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if relErr := tok.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		observability.RecordPlanExecution(outcome)
	}()

	if opts.DryRun {
		for _, proc := range procs {
			progress.Progress("[dry-run] " + proc.Summarize())
		}
		return Result{}, nil
	}

	workDir := filepath.Join(opts.WorkDirBase, "updates", time.Now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, errs.Internal("plan.Run", err)
	}

	p.Procedures = procedure.Steps(procs)
	if err := writePlanJSON(workDir, p); err != nil {
		return Result{}, err
	}

	toRun := procs
	if opts.JustImages {
		toRun = filterImportOnly(procs)
	}

	res = Result{WorkDir: workDir}
	pc := procedure.Context{
		Ctx:      ctx,
		Gateway:  e.gw,
		Log:      e.log,
		Progress: progress,
		Plan:     p,
		WorkDir:  workDir,
	}
	for _, proc := range toRun {
		start := time.Now()
		execErr := proc.Execute(pc)
		observability.RecordProcedureDuration(proc.Kind(), time.Since(start))
		if execErr != nil {
			return res, fmt.Errorf("procedure %q: %w", proc.Summarize(), execErr)
		}
		res.Ran = append(res.Ran, proc.Summarize())
	}
	return res, nil
}

func filterImportOnly(procs []procedure.Procedure) []procedure.Procedure {
	var out []procedure.Procedure
	for _, p := range procs {
		if p.Kind() == "ImportImage" {
			out = append(out, p)
		}
	}
	return out
}

// writePlanJSON serializes p to <workDir>/plan.json atomically, via a
// temp-file-then-rename.
func writePlanJSON(workDir string, p *domain.Plan) error {
	p.V = domain.PlanFormatVersion
	data, err := Serialize(p)
	if err != nil {
		return err
	}
	path := filepath.Join(workDir, "plan.json")
	t, err := renameio.TempFile("", path)
	if err != nil {
		return errs.Internal("plan.writePlanJSON", err)
	}
	defer t.Cleanup()
	if _, err := t.Write(data); err != nil {
		return errs.Internal("plan.writePlanJSON", err)
	}
	if err := t.Chmod(0o644); err != nil {
		return errs.Internal("plan.writePlanJSON", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return errs.Internal("plan.writePlanJSON", err)
	}
	return nil
}

// Serialize produces the plan's stable JSON form. serialize -> Parse ->
// serialize is a fixed point (encoding/json field order follows the
// struct's declared field order deterministically).
func Serialize(p *domain.Plan) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, errs.Internal("plan.Serialize", err)
	}
	return data, nil
}

// Parse is the inverse of Serialize.
func Parse(data []byte) (*domain.Plan, error) {
	var p domain.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errs.Internal("plan.Parse", err)
	}
	return &p, nil
}
