// Package config loads tmlink settings from defaults, a YAML file, a .env
// file and the environment, in increasing order of precedence. Command-line
// flags are applied on top by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment variable tmlink reads.
const EnvPrefix = "TMLINK_"

// Defaults.
const (
	DefaultPass       = "tm-instrument"
	DefaultStmLib     = "libstm.a"
	DefaultStmSupport = "stmsupport.bc"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	// Pass is the pass run in the selectable pipeline slot.
	Pass string `yaml:"pass"`

	TempDir string `yaml:"temp_dir"`
	Output  string `yaml:"output"`

	// Graph is a CUE graph definition; empty uses the built-in graph.
	Graph string `yaml:"graph"`

	// Journal is a SQLite path; empty disables the journal.
	Journal string `yaml:"journal"`

	TargetLayout string   `yaml:"target_layout"`
	EntryPoints  []string `yaml:"entry_points"`

	// Flags gate graph edges.
	Flags map[string]bool `yaml:"flags"`

	// Params fill ${name} placeholders in tool arguments.
	Params map[string]string `yaml:"params"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pass:        DefaultPass,
		EntryPoints: []string{"main"},
		Flags:       map[string]bool{},
		Params: map[string]string{
			"stmlib":     DefaultStmLib,
			"stmsupport": DefaultStmSupport,
		},
	}
}

// Options select the sources Load reads.
type Options struct {
	// File is a YAML config file. Empty skips it.
	File string

	// DotEnv is a .env file. A missing file is not an error.
	DotEnv string

	// LookupEnv reads the process environment; nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration from opts.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.mergeFile(opts.File); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if opts.DotEnv != "" {
		env, err := godotenv.Read(opts.DotEnv)
		switch {
		case err == nil:
			dotenv = env
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", opts.DotEnv, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.applyEnv(func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.fillDefaults()
	return nil
}

// fillDefaults restores maps and params that an empty YAML key cleared.
func (c *Config) fillDefaults() {
	if c.Flags == nil {
		c.Flags = map[string]bool{}
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	for key, value := range Default().Params {
		if _, ok := c.Params[key]; !ok {
			c.Params[key] = value
		}
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PASS", &c.Pass)
	str("TEMP_DIR", &c.TempDir)
	str("OUTPUT", &c.Output)
	str("GRAPH", &c.Graph)
	str("JOURNAL", &c.Journal)
	str("TARGET_LAYOUT", &c.TargetLayout)

	if v, ok := lookup(EnvPrefix + "ENTRY_POINTS"); ok {
		c.EntryPoints = SplitList(v)
	}
	if v, ok := lookup(EnvPrefix + "FLAGS"); ok {
		for _, name := range SplitList(v) {
			c.SetFlag(name)
		}
	}
	for _, p := range []string{"stmlib", "stmsupport"} {
		if v, ok := lookup(EnvPrefix + strings.ToUpper(p)); ok {
			c.Params[p] = v
		}
	}
}

// SetFlag turns a flag on, or off when the name starts with "!".
func (c *Config) SetFlag(name string) {
	if c.Flags == nil {
		c.Flags = map[string]bool{}
	}
	if off, ok := strings.CutPrefix(name, "!"); ok {
		c.Flags[off] = false
		return
	}
	c.Flags[name] = true
}

// SetParam parses a key=value assignment.
func (c *Config) SetParam(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("param %q: want key=value", kv)
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	c.Params[key] = value
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Pass) == "" {
		return errors.New("pass name must not be empty")
	}
	if len(c.EntryPoints) == 0 {
		return errors.New("at least one entry point is required")
	}
	return nil
}

// GraphParams returns Params plus the pass, for graph population.
func (c *Config) GraphParams() map[string]string {
	out := make(map[string]string, len(c.Params)+1)
	for k, v := range c.Params {
		out[k] = v
	}
	out["pass"] = c.Pass
	return out
}

// SplitList splits a comma list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
