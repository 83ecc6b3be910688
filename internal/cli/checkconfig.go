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
)

// redactedConfig is the check-config rendering: DC name, DNS domain, admin
// uuid, upstream base URLs, and the broker as login@host:port. The broker
// password is never printed, even under --json; the work-dir, lock, poll
// and metrics settings are not shown.
type redactedConfig struct {
	DCName    string            `json:"dcName"`
	DNSDomain string            `json:"dnsDomain"`
	AdminUUID string            `json:"adminUuid"`
	Upstreams map[string]string `json:"upstreams"`
	Broker    string            `json:"broker,omitempty"`
}

func newCheckConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := redactedConfig{
				DCName:    a.cfg.DCName,
				DNSDomain: a.cfg.DNSDomain,
				AdminUUID: a.cfg.AdminUUID,
				Upstreams: a.cfg.Upstreams,
			}
			if a.cfg.Broker.Host != "" {
				out.Broker = fmt.Sprintf("%s@%s:%d", a.cfg.Broker.Login, a.cfg.Broker.Host, a.cfg.Broker.Port)
			}
			return render(cmd.OutOrStdout(), a.flags.jsonOut, out, func(w io.Writer) error {
				fmt.Fprintf(w, "dc:        %s\n", out.DCName)
				fmt.Fprintf(w, "dnsDomain: %s\n", out.DNSDomain)
				fmt.Fprintf(w, "adminUuid: %s\n", out.AdminUUID)
				if out.Broker != "" {
					fmt.Fprintf(w, "broker:    %s\n", out.Broker)
				}
				for _, svc := range []string{"sapi", "vmapi", "cnapi", "imgapi", "wfapi", "updates"} {
					fmt.Fprintf(w, "upstream %-8s %s\n", svc, out.Upstreams[svc])
				}
				return nil
			})
		},
	}
}
