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

// Package main is the entry point for fleetadm-rebooter, the long-running
// process that waits for a pending or running reboot plan to appear in
// the compute-node manager and drives it to completion. It exits 0 if no
// such plan shows up within its startup budget, the normal case on a host
// where no reboot is underway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/config"
	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/health"
	"go.smartdc.io/fleetadm/internal/inventory"
	"go.smartdc.io/fleetadm/internal/observability"
	"go.smartdc.io/fleetadm/internal/reboot"
)

// discoveryBudget bounds how long the process waits, at startup, for a
// pending or running reboot plan to appear before exiting 0.
const (
	discoveryPeriod = 10 * time.Second
	discoveryBudget = 15 * time.Minute
)

func main() {
	var configPath string
	var concurrency int
	flag.StringVar(&configPath, "config", "", "path to the configuration override file")
	flag.IntVar(&concurrency, "concurrency", 2, "maximum non-core reboots in flight at once when the plan sets no concurrency")
	flag.Parse()

	preLog, preLogDone, err := observability.NewLogger(observability.LogOptions{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fleetadm-rebooter:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath, config.SysinfoProvider{})
	if err != nil {
		preLog.Errorw("load config", "error", err)
		preLogDone()
		os.Exit(1)
	}
	preLogDone()

	log, logDone, err := observability.NewLogger(observability.LogOptions{
		TraceFilePath: filepath.Join(cfg.WorkDirBase, "trace", "rebooter.log"),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fleetadm-rebooter:", err)
		os.Exit(1)
	}
	defer logDone()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(cfg.Upstreams, log)

	plan, found, err := discoverRebootPlan(ctx, gw, log)
	if err != nil {
		log.Errorw("discover reboot plan", "error", err)
		os.Exit(1)
	}
	if !found {
		log.Infow("no pending or running reboot plan found within startup budget, exiting")
		return
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warnw("sd_notify", "error", err)
	} else if ok {
		log.Infow("sd_notify readiness signaled")
	}

	if cfg.MetricsAddr != "" {
		observability.ServeMetrics(ctx, cfg.MetricsAddr, log)
	}

	inv := inventory.New(gw, gw.IMGAPI())
	instances, err := inv.Instances(ctx)
	if err != nil {
		log.Errorw("list instances", "error", err)
		os.Exit(1)
	}
	nodes, err := gw.CNAPI().ListNodes(ctx)
	if err != nil {
		log.Errorw("list nodes", "error", err)
		os.Exit(1)
	}
	classes := reboot.ClassifyNodes(nodes, instances)

	engine := reboot.NewEngine(gw, health.New(gw.CNAPI()), log)
	if err := engine.Run(ctx, plan.ID, classes, concurrency); err != nil {
		log.Errorw("run reboot plan", "plan", plan.ID, "error", err)
		os.Exit(1)
	}
	log.Infow("reboot plan finished", "plan", plan.ID)
}

// discoverRebootPlan polls for a pending or running reboot plan up to
// discoveryBudget; it returns found=false (not an error) when the budget
// is exhausted with nothing to do. A failed listing is logged and retried
// on the next period; it is returned only once the budget is exhausted.
func discoverRebootPlan(ctx context.Context, gw *gateway.Gateway, log *zap.SugaredLogger) (domain.RebootPlan, bool, error) {
	deadline := time.Now().Add(discoveryBudget)
	for {
		for _, state := range []string{"running", "pending"} {
			plans, err := gw.CNAPI().ListRebootPlans(ctx, state)
			if err != nil {
				if time.Now().After(deadline) {
					return domain.RebootPlan{}, false, err
				}
				log.Warnw("list reboot plans, will retry", "state", state, "error", err)
				break
			}
			if len(plans) > 0 {
				log.Debugw("found reboot plan", "plan", plans[0].ID, "state", state)
				return plans[0], true, nil
			}
		}
		if time.Now().After(deadline) {
			return domain.RebootPlan{}, false, nil
		}
		select {
		case <-ctx.Done():
			return domain.RebootPlan{}, false, ctx.Err()
		case <-time.After(discoveryPeriod):
		}
	}
}
