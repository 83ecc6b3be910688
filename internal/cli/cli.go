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

// Package cli implements the command-line shell: a cobra command
// tree that does nothing but parse flags, build the core's collaborator
// structs, invoke the corresponding core entry point, and render the
// result. No business logic lives here.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/config"
	"go.smartdc.io/fleetadm/internal/gateway"
	"go.smartdc.io/fleetadm/internal/lock"
	"go.smartdc.io/fleetadm/internal/observability"
)

// globalFlags holds the root command's persistent flags, threaded into
// every subcommand's RunE via app.
type globalFlags struct {
	configPath string
	dryRun     bool
	yes        bool
	jsonOut    bool
	verbose    bool
}

// app holds the built collaborator structs shared by every subcommand,
// constructed once in the root command's PersistentPreRunE.
type app struct {
	flags globalFlags

	cfg     config.Config
	log     *zap.SugaredLogger
	logDone func()
	gw      *gateway.Gateway
	lk      *lock.Lock
}

// NewRootCommand builds the fleetadm command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "fleetadm",
		Short:         "Administer a datacenter's core service fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logDone != nil {
				a.logDone()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configPath, "config", "", "path to the configuration override file")
	root.PersistentFlags().BoolVar(&a.flags.dryRun, "dry-run", false, "compute and print the effect without executing it")
	root.PersistentFlags().BoolVarP(&a.flags.yes, "yes", "y", false, "skip the confirmation prompt")
	root.PersistentFlags().BoolVar(&a.flags.jsonOut, "json", false, "render machine-readable JSON output")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable verbose (debug) logging")

	root.AddCommand(
		newUpdateCommand(a),
		newSelfUpdateCommand(a),
		newCheckHealthCommand(a),
		newCheckConfigCommand(a),
		newDCMaintCommand(a),
		newRebootPlanCommand(a),
	)

	return root
}

// init builds the shared collaborators. Called once, before every
// subcommand's RunE, so each RunE can assume a.cfg/a.log/a.gw are ready.
// Config is loaded before the logger so mutating subcommands can route a
// trace copy of every log record under cfg.WorkDirBase.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath, config.SysinfoProvider{})
	if err != nil {
		return err
	}
	a.cfg = cfg

	logOpts := observability.LogOptions{Verbose: a.flags.verbose}
	if isMutatingCommand(cmd) {
		logOpts.TraceFilePath = filepath.Join(cfg.WorkDirBase, "trace", traceFileName(cmd))
	}
	log, done, err := observability.NewLogger(logOpts)
	if err != nil {
		return err
	}
	a.log = log
	a.logDone = done

	a.gw = gateway.New(cfg.Upstreams, log)
	a.lk = lock.New(cfg.LockPath, log)
	return nil
}

// mutatingCommandNames are the leaf subcommand names that change fleet
// state, the set NewRootCommand wires to a rotating trace-log sink.
var mutatingCommandNames = map[string]bool{
	"update":      true,
	"self-update": true,
	"start":       true, // dc-maint start
	"stop":        true, // dc-maint stop / reboot-plan stop
	"create":      true, // reboot-plan create
	"run":         true, // reboot-plan run
	"cancel":      true, // reboot-plan cancel
}

// isMutatingCommand reports whether cmd is one of the leaf subcommands
// that mutates fleet state.
func isMutatingCommand(cmd *cobra.Command) bool {
	return mutatingCommandNames[cmd.Name()]
}

// traceFileName derives a stable log file name from the full command path,
// e.g. "fleetadm reboot-plan create" -> "reboot-plan-create.log".
func traceFileName(cmd *cobra.Command) string {
	path := strings.TrimPrefix(cmd.CommandPath(), "fleetadm ")
	return strings.ReplaceAll(path, " ", "-") + ".log"
}

// identityImageName is the builtin ServiceImageName: a service's image
// name equals its own name, the convention every core service in this
// fleet follows. No service in the registry has ever needed an override.
func identityImageName(serviceName string) (string, bool) {
	if serviceName == "" {
		return "", false
	}
	return serviceName, true
}

// exitCode maps an error's errs.Kind to the process exit code:
// 0 success, 1 failure, 2 usage error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if isUsageErr(err) {
		return 2
	}
	return 1
}

// Execute runs the command tree and terminates the process with the
// mapped exit code, printing any error to stderr first.
func Execute() {
	root := NewRootCommand()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fleetadm:", err)
	}
	os.Exit(exitCode(err))
}
