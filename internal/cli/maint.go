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

	"go.smartdc.io/fleetadm/internal/maint"
)

func newDCMaintCommand(a *app) *cobra.Command {
	var appID string

	root := &cobra.Command{
		Use:   "dc-maint",
		Short: "Start, stop, or query the datacenter maintenance window",
	}
	root.PersistentFlags().StringVar(&appID, "app", "cloudapi", "SAPI application whose readonly flag gates the window")

	window := func(a *app) *maint.Window { return maint.New(a.gw, appID, a.cfg.WorkDirBase) }

	root.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Open the maintenance window",
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.flags.dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "[dry-run] would start maintenance window")
					return nil
				}
				return window(a).Start(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Close the maintenance window",
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.flags.dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), "[dry-run] would stop maintenance window")
					return nil
				}
				return window(a).Stop(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a maintenance window is currently open",
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := window(a).Status()
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.flags.jsonOut, st, func(w io.Writer) error {
					if !st.Maint {
						_, err := fmt.Fprintln(w, "no maintenance window open")
						return err
					}
					_, err := fmt.Fprintf(w, "maintenance window open since %s\n", st.StartedAt.Format("2006-01-02T15:04:05Z"))
					return err
				})
			},
		},
	)
	return root
}
