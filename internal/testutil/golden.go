// Package testutil provides shared test helpers for MiniML Go tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ScenariosDir is the scenario root, relative to cmd/mml.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
type Scenario struct {
	Cmd   []string      `json:"cmd"`
	Stdin string        `json:"stdin,omitempty"`
	Meta  *ScenarioMeta `json:"meta,omitempty"`
	// Config, when set, is written as the project config file before the
	// command runs.
	Config json.RawMessage `json:"config,omitempty"`
	Expect ExpectedResult  `json:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutText       *string         `json:"stdoutText,omitempty"`
	StdoutContains   string          `json:"stdoutContains,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	return dirs, nil
}

// ResolveArgs returns the scenario command arguments (without the command
// name) with file operands joined to scenarioDir. Flag values and "-" are
// left alone.
func ResolveArgs(scenarioDir string, cmd []string) []string {
	if len(cmd) < 2 {
		return nil
	}
	args := make([]string, 0, len(cmd)-1)
	takesValue := false
	for _, arg := range cmd[1:] {
		switch {
		case takesValue:
			takesValue = false
		case arg == "--trace" || arg == "--log-level" || arg == "--addr":
			takesValue = true
		case arg != "-" && !strings.HasPrefix(arg, "-"):
			arg = filepath.Join(scenarioDir, arg)
		}
		args = append(args, arg)
	}
	return args
}
