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

package domain

import (
	"sort"

	"github.com/blang/semver/v4"
)

// CompareImages orders two images first by semantic version, then by
// publish-time, then by build-time, all ascending. An image whose Version
// does not parse as semver sorts before every image whose Version does
// (even 0.0.0), and two such images are ordered by publish-time and
// build-time alone, rather than panicking on malformed upstream data.
func CompareImages(a, b Image) int {
	av, aerr := semver.ParseTolerant(a.Version)
	bv, berr := semver.ParseTolerant(b.Version)
	switch {
	case aerr != nil && berr != nil:
		// fall through to publish-time comparison below
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	default:
		if c := av.Compare(bv); c != 0 {
			return c
		}
	}

	if a.PublishTime.Before(b.PublishTime) {
		return -1
	}
	if a.PublishTime.After(b.PublishTime) {
		return 1
	}

	at, bt := a.BuildTime(), b.BuildTime()
	if at.Before(bt) {
		return -1
	}
	if at.After(bt) {
		return 1
	}
	return 0
}

// SortImages sorts images ascending by CompareImages, in place.
func SortImages(images []Image) {
	sort.SliceStable(images, func(i, j int) bool {
		return CompareImages(images[i], images[j]) < 0
	})
}
