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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout applies to waits in scenario files that set no timeout.
const DefaultTimeout = 5 * time.Second

// duration accepts "5s"-style strings or a plain number of milliseconds.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if ms, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = duration(v)
	return nil
}

type fileScenario struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	Defaults struct {
		Timeout *duration `yaml:"timeout"`
	} `yaml:"defaults"`
	Steps []fileStep `yaml:"steps"`
}

type fileStep struct {
	Navigate   string     `yaml:"navigate"`
	Fill       *fileFill  `yaml:"fill"`
	Press      *filePress `yaml:"press"`
	Click      string     `yaml:"click"`
	Screenshot string     `yaml:"screenshot"`
	Wait       *fileWait  `yaml:"wait"`
}

type fileFill struct {
	Selector string `yaml:"selector"`
	Text     string `yaml:"text"`
}

type filePress struct {
	Selector string `yaml:"selector"`
	Key      string `yaml:"key"`
}

type fileWait struct {
	Visible  string `yaml:"visible"`
	Contains *struct {
		Selector string `yaml:"selector"`
		Text     string `yaml:"text"`
	} `yaml:"contains"`
	Delay   *duration `yaml:"delay"`
	Timeout *duration `yaml:"timeout"`
}

// ParseScenario decodes a scenario document. Unknown fields are errors.
func ParseScenario(data []byte) (Scenario, error) {
	var fs fileScenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fs); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, fmt.Errorf("empty scenario document")
		}
		return Scenario{}, err
	}

	timeout := DefaultTimeout
	if fs.Defaults.Timeout != nil {
		timeout = time.Duration(*fs.Defaults.Timeout)
	}

	sc := Scenario{
		Name:    fs.Name,
		BaseURL: fs.BaseURL,
		Steps:   make([]Step, 0, len(fs.Steps)),
	}
	for i, f := range fs.Steps {
		step, err := f.toStep(timeout)
		if err != nil {
			return Scenario{}, fmt.Errorf("step %d: %w", i, err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

func (f fileStep) toStep(defaultTimeout time.Duration) (Step, error) {
	var steps []Step
	if f.Navigate != "" {
		steps = append(steps, Navigate(f.Navigate))
	}
	if f.Fill != nil {
		steps = append(steps, Fill(f.Fill.Selector, f.Fill.Text))
	}
	if f.Press != nil {
		steps = append(steps, Press(f.Press.Selector, f.Press.Key))
	}
	if f.Click != "" {
		steps = append(steps, Click(f.Click))
	}
	if f.Screenshot != "" {
		steps = append(steps, Screenshot(f.Screenshot))
	}
	if len(steps) > 1 {
		return Step{}, fmt.Errorf("more than one action")
	}

	var cond Condition
	timeout := defaultTimeout
	if f.Wait != nil {
		var err error
		if cond, err = f.Wait.condition(); err != nil {
			return Step{}, err
		}
		if f.Wait.Timeout != nil {
			timeout = time.Duration(*f.Wait.Timeout)
		}
	}

	switch {
	case len(steps) == 1 && cond.IsZero():
		return steps[0], nil
	case len(steps) == 1:
		return steps[0].Then(cond, timeout), nil
	case !cond.IsZero():
		return WaitFor(cond, timeout), nil
	}
	return Step{}, fmt.Errorf("no action")
}

func (w fileWait) condition() (Condition, error) {
	var conds []Condition
	if w.Visible != "" {
		conds = append(conds, Visible(w.Visible))
	}
	if w.Contains != nil {
		conds = append(conds, ContainsText(w.Contains.Selector, w.Contains.Text))
	}
	if w.Delay != nil {
		conds = append(conds, FixedDelay(time.Duration(*w.Delay)))
	}
	switch len(conds) {
	case 0:
		return Condition{}, fmt.Errorf("wait: no condition")
	case 1:
		return conds[0], nil
	}
	return Condition{}, fmt.Errorf("wait: more than one condition")
}

// LoadScenarioFile reads and validates a scenario file. A non-empty
// baseURL replaces the file's base_url. A scenario without a name is named
// after the file.
func LoadScenarioFile(path, baseURL string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if baseURL != "" {
		sc.BaseURL = baseURL
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
