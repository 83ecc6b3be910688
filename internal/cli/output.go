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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.smartdc.io/fleetadm/internal/errs"
)

func isUsageErr(err error) bool {
	return errs.Is(err, errs.KindUsage) || errs.Is(err, errs.KindValidation)
}

// render writes v as indented JSON when jsonOut is set, else calls plain to
// produce the human-readable rendering. Every subcommand funnels its
// result through this so --json is handled in exactly one place per
// command.
func render(w io.Writer, jsonOut bool, v interface{}, plain func(io.Writer) error) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return plain(w)
}

// confirm prompts on stdin for a y/N answer, skipped entirely when yes is
// set (the -y/--yes flag).
func confirm(prompt string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	fmt.Fprintf(os.Stdout, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
