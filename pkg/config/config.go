// Package config loads mml settings and the initial session bindings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/thomasrohde/miniml/pkg/environment"
	"github.com/thomasrohde/miniml/pkg/evaluator"
)

// File names searched by Load.
const (
	ProjectFile = ".mmlrc.json"
	UserDir     = ".mml"
	UserFile    = "config.json"
)

// Defaults.
const (
	DefaultPrompt     = "# "
	DefaultLogLevel   = "warn"
	DefaultListenAddr = "127.0.0.1:7420"
	DefaultHistory    = ".mml_history"
)

// Binding is one pre-bound name. Value must be a JSON integer or boolean.
type Binding struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// Config represents the JSON structure of a config file.
type Config struct {
	Prompt      string    `json:"prompt,omitempty"`
	HistoryFile string    `json:"history_file,omitempty"`
	LogLevel    string    `json:"log_level,omitempty"`
	ListenAddr  string    `json:"listen_addr,omitempty"`
	Bindings    []Binding `json:"bindings,omitempty"`

	// Source is the file the config was read from, empty for defaults.
	Source string `json:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from project and user config files.
// Precedence: project (.mmlrc.json) → user (~/.mml/config.json) → defaults.
// A missing file falls through to the next one; a malformed file is an error.
func Load(projectDir string) (*Config, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, UserDir, UserFile))
	}

	for _, path := range paths {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Default(), nil
}

// LoadFile reads a single config file and fills in defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Source = path
	cfg.applyDefaults()
	if _, err := cfg.Level(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.HistoryFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			c.HistoryFile = filepath.Join(homeDir, DefaultHistory)
		}
	}
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// Environment builds the initial environment from Bindings, in file order.
// A later entry for the same name shadows an earlier one.
func (c *Config) Environment() (evaluator.Env, error) {
	env := environment.Empty[evaluator.Value]()
	for i, b := range c.Bindings {
		if b.Name == "" {
			return env, fmt.Errorf("bindings[%d]: missing name", i)
		}
		v, err := evaluator.ParseJSONToValue(b.Value)
		if err != nil {
			return env, fmt.Errorf("bindings[%d] %q: %w", i, b.Name, err)
		}
		env = env.Extend(b.Name, v)
	}
	return env, nil
}
