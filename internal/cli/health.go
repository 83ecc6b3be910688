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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"go.smartdc.io/fleetadm/internal/health"
)

func newCheckHealthCommand(a *app) *cobra.Command {
	var servers, uuids []string
	var typ string

	cmd := &cobra.Command{
		Use:   "check-health",
		Short: "Report instance health as seen by the compute-node manager",
		RunE: func(cmd *cobra.Command, args []string) error {
			prober := health.New(a.gw.CNAPI())
			results, err := prober.Check(cmd.Context(), health.Query{Servers: servers, UUIDs: uuids, Type: typ})
			if err != nil {
				return err
			}

			err = render(cmd.OutOrStdout(), a.flags.jsonOut, results, func(w io.Writer) error {
				for _, r := range results {
					status := "healthy"
					if !r.Healthy {
						status = "UNHEALTHY"
					}
					if _, err := fmt.Fprintf(w, "%-40s %s\n", r.Instance, status); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !health.AllHealthy(results) {
				return fmt.Errorf("%d instance(s) unhealthy", len(health.Unhealthy(results)))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&servers, "server", nil, "restrict to these compute node uuids")
	cmd.Flags().StringSliceVar(&uuids, "instance", nil, "restrict to these instance uuids")
	cmd.Flags().StringVar(&typ, "type", "", "restrict to instances of this type")
	return cmd
}
