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
	"path/filepath"

	"github.com/spf13/cobra"

	"go.smartdc.io/fleetadm/internal/selfupdate"
)

func newSelfUpdateCommand(a *app) *cobra.Command {
	var allowMajor bool

	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Install a newer release of this tool itself",
		RunE: func(cmd *cobra.Command, args []string) error {
			stampPath := filepath.Join(a.cfg.WorkDirBase, "buildstamp")
			stamp, err := selfupdate.ReadCurrentBuildStamp(stampPath)
			if err != nil {
				return err
			}

			u := selfupdate.New(a.gw, a.log, selfupdate.Current{Version: cliVersion, BuildStamp: stamp})
			res, err := u.Run(cmd.Context(), selfupdate.Options{
				WorkDirBase:      a.cfg.WorkDirBase,
				AllowMajorUpdate: allowMajor,
				DryRun:           a.flags.dryRun,
			})
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), a.flags.jsonOut, res, func(w io.Writer) error {
				if !res.Installed {
					if res.Version == "" {
						_, err := fmt.Fprintln(w, "No available fleetadm updates.")
						return err
					}
					_, err := fmt.Fprintf(w, "[dry-run] would install %s (%s)\n", res.Version, res.BuildStamp)
					return err
				}
				_, err := fmt.Fprintf(w, "Installed %s (%s); log: %s\n", res.Version, res.BuildStamp, res.InstallLog)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&allowMajor, "allow-major-update", false, "allow crossing a major-version boundary")
	return cmd
}

// cliVersion is the semantic version compiled into this binary, stamped at
// build time via -ldflags; "0.0.0" only when built without the release
// pipeline (e.g. a developer's ad-hoc `go build`).
var cliVersion = "0.0.0"
