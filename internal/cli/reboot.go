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

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/health"
	"go.smartdc.io/fleetadm/internal/inventory"
	"go.smartdc.io/fleetadm/internal/reboot"
)

// instancesForClassification fetches the current instance inventory used
// to tell core nodes from non-core nodes (reboot.ClassifyNodes).
func instancesForClassification(ctx context.Context, a *app) ([]domain.Instance, error) {
	inv := inventory.New(a.gw, a.gw.IMGAPI())
	return inv.Instances(ctx)
}

func newRebootPlanCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "reboot-plan",
		Short: "Create, drive, and inspect rolling-reboot plans",
	}
	root.AddCommand(
		newRebootPlanCreateCommand(a),
		newRebootPlanRunCommand(a),
		newRebootPlanWatchCommand(a),
		newRebootPlanStatusCommand(a),
		newRebootPlanActionCommand(a, "stop"),
		newRebootPlanActionCommand(a, "cancel"),
	)
	return root
}

func newRebootPlanCreateCommand(a *app) *cobra.Command {
	var concurrency int
	var singleStep, skipCurrent bool

	cmd := &cobra.Command{
		Use:   "create [node...]",
		Short: "Preview and submit a new reboot plan over the given nodes (all settled nodes if none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nodes, err := a.gw.CNAPI().ListNodes(ctx)
			if err != nil {
				return err
			}
			instances, err := instancesForClassification(ctx, a)
			if err != nil {
				return err
			}

			selected := selectNodes(nodes, args)
			classes := reboot.ClassifyNodes(nodes, instances)

			planner := reboot.NewPlanner(a.gw)
			summary := planner.Summarize(selected, classes, skipCurrent)
			for _, s := range summary {
				if s.Warning == reboot.WarnDowngrade {
					fmt.Fprintf(cmd.OutOrStdout(), "WARNING: %s would downgrade platform (%s -> %s)\n", s.Node.Hostname, s.Node.CurrentPlatform, s.Node.BootPlatform)
				} else if s.Warning == reboot.WarnSamePlatform {
					fmt.Fprintf(cmd.OutOrStdout(), "WARNING: %s already runs its boot platform (%s)\n", s.Node.Hostname, s.Node.CurrentPlatform)
				}
			}

			ok, err := confirm(fmt.Sprintf("Reboot %d node(s)?", len(summary)), a.flags.yes)
			if err != nil {
				return err
			}
			if !ok {
				return errs.Usage("cli.rebootPlanCreate", fmt.Errorf("aborted"))
			}

			if a.flags.dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "[dry-run] would create plan over %d node(s)\n", len(summary))
				return nil
			}

			ids := make([]string, 0, len(summary))
			for _, s := range summary {
				ids = append(ids, s.Node.ID)
			}
			p, err := planner.Create(ctx, ids, concurrency, singleStep)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.flags.jsonOut, p, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "created reboot plan %s (%d node(s), concurrency %d)\n", p.ID, len(p.Reboots), p.Concurrency)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "maximum non-core reboots in flight at once")
	cmd.Flags().BoolVar(&singleStep, "single-step", false, "require manual confirmation between batches")
	cmd.Flags().BoolVar(&skipCurrent, "skip-current", false, "omit nodes already on the target platform")
	return cmd
}

func newRebootPlanRunCommand(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "run <plan-id>",
		Short: "Drive a created reboot plan to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nodes, err := a.gw.CNAPI().ListNodes(ctx)
			if err != nil {
				return err
			}
			instances, err := instancesForClassification(ctx, a)
			if err != nil {
				return err
			}
			classes := reboot.ClassifyNodes(nodes, instances)

			engine := reboot.NewEngine(a.gw, health.New(a.gw.CNAPI()), a.log)
			return engine.Run(ctx, args[0], classes, concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "maximum non-core reboots in flight at once when the plan sets no concurrency")
	return cmd
}

func newRebootPlanWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <plan-id>",
		Short: "Poll a reboot plan's progress until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for {
				p, err := a.gw.CNAPI().GetRebootPlan(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d reboots done\n", p.State, len(p.Reboots)-len(p.Remaining()), len(p.Reboots))
				if isTerminalRebootPlanState(p.State) {
					return render(cmd.OutOrStdout(), a.flags.jsonOut, p, func(io.Writer) error { return nil })
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(5 * time.Second):
				}
			}
		},
	}
}

func newRebootPlanStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <plan-id>",
		Short: "Print a reboot plan's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.gw.CNAPI().GetRebootPlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.flags.jsonOut, p, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s (%d reboot(s), %d remaining)\n", p.ID, p.State, len(p.Reboots), len(p.Remaining()))
				return err
			})
		},
	}
}

func newRebootPlanActionCommand(a *app, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <plan-id>",
		Short: fmt.Sprintf("%s a reboot plan", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.gw.CNAPI().RebootPlanAction(cmd.Context(), args[0], action); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "plan %s: %s requested\n", args[0], action)
			return nil
		},
	}
}

func isTerminalRebootPlanState(s domain.RebootPlanState) bool {
	switch s {
	case domain.RebootPlanFinished, domain.RebootPlanCanceled, domain.RebootPlanStopped:
		return true
	default:
		return false
	}
}

// selectNodes returns the nodes matching ids by hostname or uuid, or every
// settled node when ids is empty.
func selectNodes(nodes []domain.Node, ids []string) []domain.Node {
	if len(ids) == 0 {
		var out []domain.Node
		for _, n := range nodes {
			if n.Settled() {
				out = append(out, n)
			}
		}
		return out
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Node
	for _, n := range nodes {
		if want[n.ID] || want[n.Hostname] {
			out = append(out, n)
		}
	}
	return out
}
