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

// Package selfupdate implements the self-updater: build-stamp
// parsing, the two-stage semver + build-time release filter, and the
// download/run of a chosen installer.
package selfupdate

import (
	"fmt"
	"strings"
	"time"

	"go.smartdc.io/fleetadm/internal/errs"
)

// buildStampLayout is the timestamp component of a build stamp:
// "<branch>-<buildStampLayout>-g<sha>".
const buildStampLayout = "20060102T150405Z"

// BuildStamp is the decomposed form of a release's build-stamp string.
type BuildStamp struct {
	Branch    string
	BuildTime time.Time
	GitSHA    string
}

// ParseBuildStamp parses "<branch>-YYYYMMDDTHHMMSSZ-g<sha>". Branch names
// may themselves contain hyphens (e.g. "release-33"), so the timestamp and
// git-sha suffix are peeled off the right rather than the string being
// split on every hyphen.
func ParseBuildStamp(s string) (BuildStamp, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return BuildStamp{}, errs.Internal("selfupdate.ParseBuildStamp", fmt.Errorf("malformed build stamp %q", s))
	}
	shaPart := parts[len(parts)-1]
	tsPart := parts[len(parts)-2]
	branch := strings.Join(parts[:len(parts)-2], "-")

	t, err := time.Parse(buildStampLayout, tsPart)
	if err != nil {
		return BuildStamp{}, errs.Internal("selfupdate.ParseBuildStamp", fmt.Errorf("parsing build time in %q: %w", s, err))
	}
	sha := strings.TrimPrefix(shaPart, "g")
	if sha == shaPart {
		return BuildStamp{}, errs.Internal("selfupdate.ParseBuildStamp", fmt.Errorf("malformed git-sha suffix in %q", s))
	}

	return BuildStamp{Branch: branch, BuildTime: t, GitSHA: sha}, nil
}
