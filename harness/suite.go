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
	"context"

	"golang.org/x/sync/errgroup"
)

// RunSuite runs independent scenarios with at most limit in flight, each
// on its own session. Results are in the order of scenarios. A limit <= 0
// runs them one at a time.
func RunSuite(ctx context.Context, r *Runner, scenarios []Scenario, limit int) []*ScenarioResult {
	if limit <= 0 {
		limit = 1
	}
	results := make([]*ScenarioResult, len(scenarios))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = r.Run(ctx, sc)
			return nil
		})
	}
	g.Wait()
	return results
}
