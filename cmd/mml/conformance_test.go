package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/miniml/internal/testutil"
	"github.com/thomasrohde/miniml/pkg/config"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			home := t.TempDir()
			t.Setenv("HOME", home)
			if scenario.Config != nil {
				cfgDir := filepath.Join(home, config.UserDir)
				if err := os.MkdirAll(cfgDir, 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.WriteFile(filepath.Join(cfgDir, config.UserFile), scenario.Config, 0o644); err != nil {
					t.Fatal(err)
				}
			}

			args := testutil.ResolveArgs(dir, scenario.Cmd)
			stdin := strings.NewReader(scenario.Stdin)
			var stdout, stderr bytes.Buffer

			var code int
			switch scenario.Cmd[0] {
			case "run":
				code = cmdRun(args, stdin, &stdout, &stderr)
			case "check":
				code = cmdCheck(args, stdin, &stdout, &stderr)
			case "fmt":
				code = cmdFmt(args, stdin, &stdout, &stderr)
			default:
				t.Skipf("unsupported command: %s", scenario.Cmd[0])
			}

			checkScenario(t, scenario, code, stdout.String(), stderr.String())
		})
	}
}

func checkScenario(t *testing.T, scenario *testutil.Scenario, code int, stdout, stderr string) {
	t.Helper()
	expect := scenario.Expect

	if code != expect.ExitCode {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", code, expect.ExitCode, stderr)
	}
	if expect.StdoutText != nil && stdout != *expect.StdoutText {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", stdout, *expect.StdoutText)
	}
	if expect.StdoutContains != "" && !strings.Contains(stdout, expect.StdoutContains) {
		t.Errorf("stdout should contain %q, got: %s", expect.StdoutContains, stdout)
	}
	if expect.StderrContains != "" && !strings.Contains(stderr, expect.StderrContains) {
		t.Errorf("stderr should contain %q, got: %s", expect.StderrContains, stderr)
	}

	if expect.StderrJSONSubset != nil {
		var expectedSubset []map[string]any
		if err := json.Unmarshal(expect.StderrJSONSubset, &expectedSubset); err != nil {
			t.Fatalf("failed to parse expected stderr JSON subset: %v", err)
		}
		var actual []map[string]any
		if err := json.Unmarshal([]byte(stderr), &actual); err != nil {
			t.Fatalf("stderr is not a JSON diagnostic list: %v (stderr: %s)", err, stderr)
		}
		for _, expected := range expectedSubset {
			found := false
			for _, a := range actual {
				if isSubset(expected, a) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("stderr JSON subset not found: %v", expected)
			}
		}
	}
}

// isSubset checks if expected is a subset of actual (for JSON comparison).
func isSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !isSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !isSubset(ev, a[i]) {
				return false
			}
		}
		return true

	default:
		return expected == actual
	}
}
