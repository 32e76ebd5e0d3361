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
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
)

// OpenStorage opens the data directory. With a passphrase, data is
// encrypted under a master key kept in dataDir/master.key, created on
// first use. Without one, data is stored unencrypted, and an existing key
// file is an error.
func OpenStorage(dataDir, passphrase string, logger Logger) (*storage.Storage, error) {
	if logger == nil {
		logger = DefaultLogger
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	keyFile := filepath.Join(dataDir, "master.key")

	var masterKey crypto.MasterKey
	if passphrase != "" {
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read master key: %w", err)
			}
			logger.Logf("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("failed to create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("failed to save master key: %w", err)
			}
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s exists but no passphrase was given; refusing to use encrypted data unencrypted", keyFile)
		}
		logger.Logf("Warning: no master key passphrase provided. Run history will be stored UNENCRYPTED.")
	}

	store := storage.New(dataDir, masterKey)
	store.EnableCompression(true)
	return store, nil
}

// RunStore keeps scenario results on disk, one file per run.
type RunStore struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Map // scenario -> *sync.Mutex, serializes writes per scenario
}

// NewRunStore creates a RunStore.
func NewRunStore(dataDir string, s *storage.Storage) *RunStore {
	return &RunStore{
		DataDir: dataDir,
		storage: s,
	}
}

func runFile(scenario, id string) string {
	return filepath.Join("runs", url.PathEscape(scenario), fmt.Sprintf("%s.json", url.PathEscape(id)))
}

// SaveRun stores r under its scenario and ID.
func (rs *RunStore) SaveRun(r *ScenarioResult) error {
	if r.ID == "" || r.Scenario == "" {
		return fmt.Errorf("run is missing id or scenario")
	}
	m, _ := rs.mu.LoadOrStore(r.Scenario, &sync.Mutex{})
	mutex := m.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	if err := rs.storage.SaveDataFile(runFile(r.Scenario, r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// LoadRun loads one run. It returns os.ErrNotExist for unknown runs.
func (rs *RunStore) LoadRun(scenario, id string) (*ScenarioResult, error) {
	var r ScenarioResult
	if err := rs.storage.ReadDataFile(runFile(scenario, id), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &r, nil
}

// Scenarios returns the names of scenarios with stored runs, sorted.
func (rs *RunStore) Scenarios() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(rs.DataDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read runs directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name, err := url.PathUnescape(e.Name())
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListRuns yields the stored runs of a scenario, oldest first.
func (rs *RunStore) ListRuns(scenario string) iter.Seq2[*ScenarioResult, error] {
	return func(yield func(*ScenarioResult, error) bool) {
		dir := filepath.Join(rs.DataDir, "runs", url.PathEscape(scenario))
		files, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				yield(nil, fmt.Errorf("could not read runs directory: %w", err))
			}
			return
		}

		var runs []*ScenarioResult
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			id, err := url.PathUnescape(strings.TrimSuffix(file.Name(), ".json"))
			if err != nil {
				continue
			}
			r, err := rs.LoadRun(scenario, id)
			if err != nil {
				if !yield(nil, fmt.Errorf("run %s: %w", id, err)) {
					return
				}
				continue
			}
			runs = append(runs, r)
		}
		sort.SliceStable(runs, func(i, j int) bool {
			return runs[i].StartedAt.Before(runs[j].StartedAt)
		})
		for _, r := range runs {
			if !yield(r, nil) {
				return
			}
		}
	}
}
