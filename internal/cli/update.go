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
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go.smartdc.io/fleetadm/internal/catalog"
	"go.smartdc.io/fleetadm/internal/domain"
	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/inventory"
	"go.smartdc.io/fleetadm/internal/plan"
	"go.smartdc.io/fleetadm/internal/procedure"
	"go.smartdc.io/fleetadm/internal/resolve"
	"go.smartdc.io/fleetadm/internal/validate"
)

// denylistedServices names services whose changes are dropped, without
// an error, unless --force-rabbitmq is given (the message broker).
var denylistedServices = []string{"rabbitmq"}

type updateResult struct {
	UpToDate bool     `json:"upToDate"`
	WorkDir  string   `json:"workDir,omitempty"`
	Ran      []string `json:"ran,omitempty"`
}

func newUpdateCommand(a *app) *cobra.Command {
	var (
		all            bool
		justImages     bool
		forceRabbitMQ  bool
		forceSameImage bool
	)

	cmd := &cobra.Command{
		Use:   "update [service|instance...]",
		Short: "Update one or more services/instances to the latest candidate image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errs.Usage("cli.update", fmt.Errorf("specify a target or pass --all"))
			}

			ctx := cmd.Context()
			inv := inventory.New(a.gw, a.gw.IMGAPI())
			cat := catalog.New(a.gw.IMGAPI(), a.gw.RemoteIMGAPI(), identityImageName)
			res := resolve.New(inv, cat, a.gw.SAPI(), a.gw.CNAPI(), resolve.Options{
				Denylist:       denylistedServices,
				Override:       forceRabbitMQ,
				AllowSameImage: forceSameImage,
			})

			services, err := inv.Services(ctx)
			if err != nil {
				return err
			}
			instances, err := inv.Instances(ctx)
			if err != nil {
				return err
			}

			rawChanges, err := buildChanges(ctx, inv, all, args, services, instances)
			if err != nil {
				return err
			}
			cs := domain.ChangeSet{Changes: rawChanges}
			if err := validate.ChangeSet(cs); err != nil {
				return err
			}

			changes, err := res.Resolve(ctx, cs, instances, services)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				return render(cmd.OutOrStdout(), a.flags.jsonOut, updateResult{UpToDate: true}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Up-to-date.")
					return err
				})
			}

			coord := procedure.New()
			procs := coord.Build(changes)
			p := &domain.Plan{V: domain.PlanFormatVersion, Current: instances, Changes: changes, JustImages: justImages}

			exec := plan.New(a.lk, a.gw, a.log)
			progress := procedure.ProgressFunc(func(line string) { fmt.Fprintln(cmd.OutOrStdout(), line) })
			result, err := exec.Run(ctx, p, procs, progress, plan.Options{
				WorkDirBase: a.cfg.WorkDirBase,
				DryRun:      a.flags.dryRun,
				JustImages:  justImages,
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), a.flags.jsonOut, updateResult{WorkDir: result.WorkDir, Ran: result.Ran}, func(w io.Writer) error {
				for _, r := range result.Ran {
					fmt.Fprintln(w, r)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "update every non-denylisted service")
	cmd.Flags().BoolVar(&justImages, "just-images", false, "only import candidate images, do not reprovision")
	cmd.Flags().BoolVar(&forceRabbitMQ, "force-rabbitmq", false, "allow updating the denylisted message-broker service")
	cmd.Flags().BoolVar(&forceSameImage, "force-same-image", false, "reprovision even when already on the candidate image")
	return cmd
}

// buildChanges turns the CLI's target arguments into one change per known
// service when all is set, or classifies each argument as a service name or
// an instance token (resolved through inv) when explicit targets are given.
// A token that resolves to an instance becomes an update-instance change,
// carrying that instance's owning service name alongside its id so
// validate.ChangeSet's service/instance overlap check can see it (e.g.
// "update cnapi cnapi0" where cnapi0 is an instance of cnapi is rejected as
// a conflict rather than silently updating the service twice over).
// Everything else is taken at face value as a service name, so that an
// update against a nonexistent service still reaches the resolver and
// fails there as an unknown service rather than this command swallowing
// the error.
func buildChanges(ctx context.Context, inv *inventory.Inventory, all bool, args []string, services []domain.Service, instances []domain.Instance) ([]domain.Change, error) {
	if all {
		changes := make([]domain.Change, 0, len(services))
		for _, s := range services {
			changes = append(changes, domain.Change{Type: domain.ChangeUpdateService, Target: domain.Target{Service: s.Name}})
		}
		return changes, nil
	}

	serviceNames := make(map[string]bool, len(services))
	for _, s := range services {
		serviceNames[s.Name] = true
	}

	changes := make([]domain.Change, 0, len(args))
	for _, a := range args {
		if serviceNames[a] {
			changes = append(changes, domain.Change{Type: domain.ChangeUpdateService, Target: domain.Target{Service: a}})
			continue
		}

		id, err := inv.Resolve(ctx, a)
		if err != nil {
			if errors.Is(err, inventory.ErrAmbiguous) {
				return nil, err
			}
			// Not resolvable as an instance either; pass it through as a
			// service name so the resolver reports it as an unknown
			// service rather than this command swallowing the error.
			changes = append(changes, domain.Change{Type: domain.ChangeUpdateService, Target: domain.Target{Service: a}})
			continue
		}
		changes = append(changes, domain.Change{Type: domain.ChangeUpdateInstance, Target: domain.Target{InstanceID: id, Service: instanceService(instances, id)}})
	}
	return changes, nil
}

// instanceService returns the owning service name of the instance with the
// given id, or "" if id does not match any known instance.
func instanceService(instances []domain.Instance, id string) string {
	for _, inst := range instances {
		if inst.ID == id {
			return inst.Service
		}
	}
	return ""
}
