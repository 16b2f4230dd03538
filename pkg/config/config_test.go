package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/thomasrohde/miniml/pkg/config"
	"github.com/thomasrohde/miniml/pkg/evaluator"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prompt != config.DefaultPrompt {
		t.Errorf("got prompt %q, want %q", cfg.Prompt, config.DefaultPrompt)
	}
	if cfg.ListenAddr != config.DefaultListenAddr {
		t.Errorf("got addr %q", cfg.ListenAddr)
	}
	if cfg.Source != "" {
		t.Errorf("got source %q, want empty", cfg.Source)
	}
	lvl, err := cfg.Level()
	if err != nil || lvl != logrus.WarnLevel {
		t.Errorf("got level %v, %v", lvl, err)
	}
}

func TestProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeFile(t, filepath.Join(home, ".mml", "config.json"), `{"prompt":"user> "}`)
	cfg, err := config.Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prompt != "user> " {
		t.Errorf("got prompt %q, want user config", cfg.Prompt)
	}

	writeFile(t, filepath.Join(project, ".mmlrc.json"), `{"prompt":"proj> ","log_level":"debug"}`)
	cfg, err = config.Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Prompt != "proj> " {
		t.Errorf("got prompt %q, want project config", cfg.Prompt)
	}
	if lvl, _ := cfg.Level(); lvl != logrus.DebugLevel {
		t.Errorf("got level %v, want debug", lvl)
	}
	if !strings.HasSuffix(cfg.Source, ".mmlrc.json") {
		t.Errorf("got source %q", cfg.Source)
	}
}

func TestMalformedConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()

	writeFile(t, filepath.Join(project, ".mmlrc.json"), `{"prompt":`)
	if _, err := config.Load(project); err == nil {
		t.Error("expected error for malformed JSON")
	}

	writeFile(t, filepath.Join(project, ".mmlrc.json"), `{"log_level":"loud"}`)
	if _, err := config.Load(project); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestEnvironmentFromBindings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	writeFile(t, path, `{"bindings":[
		{"name":"x","value":10},
		{"name":"flag","value":true},
		{"name":"x","value":11}
	]}`)
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	env, err := cfg.Environment()
	if err != nil {
		t.Fatal(err)
	}
	if env.Len() != 3 {
		t.Errorf("got %d bindings, want 3", env.Len())
	}
	x, err := env.Lookup("x")
	if err != nil {
		t.Fatal(err)
	}
	if x != evaluator.NewInt(11) {
		t.Errorf("got x = %v, want the later binding 11", x)
	}
	flag, _ := env.Lookup("flag")
	if flag != evaluator.NewBool(true) {
		t.Errorf("got flag = %v", flag)
	}
}

func TestEnvironmentRejectsBadBindings(t *testing.T) {
	tests := []string{
		`{"bindings":[{"value":1}]}`,
		`{"bindings":[{"name":"s","value":"str"}]}`,
		`{"bindings":[{"name":"f","value":1.5}]}`,
		`{"bindings":[{"name":"n"}]}`,
	}
	for _, src := range tests {
		path := filepath.Join(t.TempDir(), "cfg.json")
		writeFile(t, path, src)
		cfg, err := config.LoadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if _, err := cfg.Environment(); err == nil {
			t.Errorf("%s: expected error", src)
		}
	}
}
