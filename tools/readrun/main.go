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

// Command readrun prints stored scenario runs as JSON.
//
//	readrun --data-dir data                   # list scenarios with runs
//	readrun --data-dir data places-search     # all runs of a scenario
//	readrun --data-dir data places-search/ID  # one run
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ttbt-io/uiverify/harness"
)

var (
	dataDir = flag.String("data-dir", "data", "Directory for run history")
	failed  = flag.Bool("failed", false, "Only print runs that did not succeed")
)

func main() {
	flag.Parse()
	st, err := harness.OpenStorage(*dataDir, os.Getenv("UIVERIFY_MASTER_KEY"), nil)
	if err != nil {
		log.Fatalf("Failed to open data dir: %v", err)
	}
	store := harness.NewRunStore(*dataDir, st)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if flag.NArg() == 0 {
		names, err := store.Scenarios()
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	for _, arg := range flag.Args() {
		scenario, id, _ := strings.Cut(arg, "/")
		if id != "" {
			run, err := store.LoadRun(scenario, id)
			if err != nil {
				log.Printf("%s: %v", arg, err)
				continue
			}
			fmt.Printf("=========== %s ===========\n", arg)
			if err := enc.Encode(run); err != nil {
				log.Printf("JSON: %s: %v", arg, err)
			}
			continue
		}
		for run, err := range store.ListRuns(scenario) {
			if err != nil {
				log.Printf("%s: %v", scenario, err)
				continue
			}
			if *failed && run.Succeeded() {
				continue
			}
			fmt.Printf("=========== %s/%s ===========\n", scenario, run.ID)
			if err := enc.Encode(run); err != nil {
				log.Printf("JSON: %s: %v", run.ID, err)
			}
		}
	}
}
