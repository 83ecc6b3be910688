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

package selfupdate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/gateway"
)

// Current describes the running binary's version and build stamp.
type Current struct {
	Version    string
	BuildStamp BuildStamp
}

// ReadCurrentBuildStamp reads and parses the build-stamp file shipped
// alongside the binary.
func ReadCurrentBuildStamp(path string) (BuildStamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BuildStamp{}, errs.Internal("selfupdate.ReadCurrentBuildStamp", err)
	}
	return ParseBuildStamp(strings.TrimSpace(string(data)))
}

// Options configures one self-update run.
type Options struct {
	WorkDirBase      string
	AllowMajorUpdate bool
	DryRun           bool
}

// Result is the outcome of one self-update run.
type Result struct {
	Installed  bool
	Version    string
	BuildStamp string
	InstallLog string
}

// Updater finds and installs newer releases of the tool itself.
type Updater struct {
	gw      *gateway.Gateway
	log     *zap.SugaredLogger
	current Current
}

// New builds an Updater for the given current version/build stamp.
func New(gw *gateway.Gateway, log *zap.SugaredLogger, current Current) *Updater {
	return &Updater{gw: gw, log: log, current: current}
}

// Run lists releases, applies the two-stage filter, and installs the
// newest surviving candidate. It returns a zero Result (Installed=false)
// when no candidate survives filtering — that is success, not an error.
func (u *Updater) Run(ctx context.Context, opts Options) (Result, error) {
	releases, err := u.gw.Updates().ListReleases(ctx)
	if err != nil {
		return Result{}, err
	}

	candidates, err := filterBySemver(releases, u.current.Version, opts.AllowMajorUpdate)
	if err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}
	candidates = filterByBuildTime(candidates, u.current.BuildStamp.BuildTime)
	if len(candidates) == 0 {
		return Result{}, nil
	}
	sortReleases(candidates)
	chosen := candidates[len(candidates)-1]

	if opts.DryRun {
		if u.log != nil {
			u.log.Infof("[dry-run] would install %s (%s)", chosen.Version, chosen.BuildStamp)
		}
		return Result{Version: chosen.Version, BuildStamp: chosen.BuildStamp}, nil
	}

	workDir := filepath.Join(opts.WorkDirBase, "self-update", time.Now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}

	installerPath := filepath.Join(workDir, "installer")
	f, err := os.OpenFile(installerPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}
	if err := u.gw.Updates().DownloadInstaller(ctx, chosen.UUID, f); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}
	if err := os.Chmod(installerPath, 0o755); err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}

	logPath := filepath.Join(workDir, "install.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return Result{}, errs.Internal("selfupdate.Run", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, installerPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return Result{}, errs.Internal("selfupdate.Run", fmt.Errorf("installer failed, see %s: %w", logPath, err))
	}

	return Result{Installed: true, Version: chosen.Version, BuildStamp: chosen.BuildStamp, InstallLog: logPath}, nil
}

// filterBySemver is stage one: drop releases whose version is strictly
// below current, and (unless allowMajor) drop releases whose major
// version differs from current's.
func filterBySemver(releases []gateway.Release, current string, allowMajor bool) ([]gateway.Release, error) {
	cur, err := semver.ParseTolerant(current)
	if err != nil {
		return nil, fmt.Errorf("parsing current version %q: %w", current, err)
	}
	var out []gateway.Release
	for _, r := range releases {
		v, err := semver.ParseTolerant(r.Version)
		if err != nil {
			continue
		}
		if v.LT(cur) {
			continue
		}
		if !allowMajor && v.Major != cur.Major {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// filterByBuildTime is stage two, applied only to what survives stage
// one: drop releases whose build-time is not strictly after current's.
func filterByBuildTime(releases []gateway.Release, currentBuildTime time.Time) []gateway.Release {
	var out []gateway.Release
	for _, r := range releases {
		stamp, err := ParseBuildStamp(r.BuildStamp)
		if err != nil {
			continue
		}
		if !stamp.BuildTime.After(currentBuildTime) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortReleases sorts ascending by (semantic version, build-stamp time).
func sortReleases(releases []gateway.Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		vi, _ := semver.ParseTolerant(releases[i].Version)
		vj, _ := semver.ParseTolerant(releases[j].Version)
		if c := vi.Compare(vj); c != 0 {
			return c < 0
		}
		si, _ := ParseBuildStamp(releases[i].BuildStamp)
		sj, _ := ParseBuildStamp(releases[j].BuildStamp)
		return si.BuildTime.Before(sj.BuildTime)
	})
}
