// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Report renders r as text. It leaves out IDs, times and paths, so runs
// with the same behavior render identically.
func Report(r *ScenarioResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s: %s", r.Scenario, r.Status)
	if r.Status == FailedAt {
		fmt.Fprintf(&b, " %d", r.FailedIndex)
	}
	b.WriteString("\n")
	if r.Status == SetupFailed {
		fmt.Fprintf(&b, "  reason: %s\n", r.Reason)
	}
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %d %s: %s", s.Index, s.Step, s.Outcome)
		if s.Reason != "" {
			fmt.Fprintf(&b, " (%s)", s.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// CompareGolden compares actual with the golden file at path. With update
// set, it writes the file instead. A mismatch error carries a unified diff.
func CompareGolden(path, actual string, update bool) error {
	actual = strings.TrimSpace(actual)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(actual+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write golden file %s: %w", path, err)
		}
		return nil
	}

	expectedBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("golden file missing: %s: %w", path, err)
		}
		return fmt.Errorf("failed to read golden file %s: %w", path, err)
	}
	expected := strings.TrimSpace(string(expectedBytes))
	if actual == expected {
		return nil
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected + "\n"),
		B:        difflib.SplitLines(actual + "\n"),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	return fmt.Errorf("mismatch with %s:\n%s", path, diff)
}
