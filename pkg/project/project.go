// Package project loads warden.toml, the per-project configuration that
// decides where modules are found and which capabilities a program gets.
package project

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/vito/warden/pkg/check"
	"github.com/vito/warden/pkg/effects"
	"github.com/vito/warden/pkg/eval"
)

// FileName is the name Find looks for.
const FileName = "warden.toml"

// Config represents a warden.toml file.
type Config struct {
	// Paths are module search roots, relative to the config file.
	Paths []string `toml:"paths"`
	// StdRoot overrides the embedded standard library with a directory.
	StdRoot string `toml:"std_root,omitempty"`
	// Extensions are the AST document extensions to try, in order.
	Extensions []string `toml:"extensions,omitempty"`

	Capabilities Capabilities `toml:"capabilities"`
	Lint         Lint         `toml:"lint"`
	Test         Test         `toml:"test"`

	// Dir is the directory holding the config file. Relative paths are
	// resolved against it.
	Dir string `toml:"-"`
}

// Capabilities is the capability policy handed to programs.
type Capabilities struct {
	Deny   []string `toml:"deny,omitempty"`
	Seed   *uint64  `toml:"seed,omitempty"`
	Clock  *int64   `toml:"clock,omitempty"`
	Dotenv []string `toml:"dotenv,omitempty"`
	// FsRoot confines Fs beneath a directory. Supports ${ENV_VAR} expansion.
	FsRoot string   `toml:"fs_root,omitempty"`
	Args   []string `toml:"args,omitempty"`
}

type Lint struct {
	// UnusedMarker exempts prefixed bindings from unused warnings.
	UnusedMarker string `toml:"unused_marker,omitempty"`
}

type Test struct {
	PropertyRuns int `toml:"property_runs,omitempty"`
	MaxDepth     int `toml:"max_depth,omitempty"`
}

// Default is the configuration used when no warden.toml exists.
func Default(dir string) *Config {
	return &Config{Dir: dir}
}

// Load reads a warden.toml file from path.
func Load(path string) (*Config, error) {
	var config Config
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown key in project config", "path", path, "key", key.String())
	}
	for _, name := range config.Capabilities.Deny {
		if !effects.IsBuiltin(name) {
			return nil, errors.Errorf("%s: cannot deny %q: not a built-in effect", path, name)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	config.Dir = filepath.Dir(abs)
	return &config, nil
}

// Find searches for warden.toml starting from dir and walking up to parent
// directories, stopping at a .git boundary. Returns ("", nil, nil) if not
// found.
func Find(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return "", nil, err
			}
			slog.Debug("found project config", "path", path)
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// ForFile finds the config governing the AST document at file, falling back
// to Default rooted at the file's directory.
func ForFile(file string) (*Config, error) {
	dir := filepath.Dir(file)
	_, config, err := Find(dir)
	if err != nil {
		return nil, err
	}
	if config == nil {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		return Default(abs), nil
	}
	return config, nil
}

func (c *Config) resolve(path string) string {
	path = expandEnvVars(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// Loader builds a module loader over the configured search paths. The
// config directory itself is always searched last.
func (c *Config) Loader() *eval.Loader {
	var paths []string
	for _, p := range c.Paths {
		paths = append(paths, c.resolve(p))
	}
	paths = append(paths, c.Dir)
	l := eval.NewLoader(paths...)
	l.StdRoot = c.resolve(c.StdRoot)
	if len(c.Extensions) > 0 {
		l.Extensions = c.Extensions
	}
	return l
}

// EffectOptions turns the capability policy into effects.Options.
func (c *Config) EffectOptions() effects.Options {
	policy := c.Capabilities
	opts := effects.Options{
		Deny:       policy.Deny,
		Seed:       policy.Seed,
		FixedClock: policy.Clock,
		FsRoot:     c.resolve(policy.FsRoot),
		Args:       policy.Args,
	}
	for _, f := range policy.Dotenv {
		opts.Dotenv = append(opts.Dotenv, c.resolve(f))
	}
	return opts
}

// Checker returns a checker honoring the lint settings.
func (c *Config) Checker() *check.Checker {
	checker := check.New()
	if c.Lint.UnusedMarker != "" {
		checker.UnusedMarker = c.Lint.UnusedMarker
	}
	return checker
}

// EvalOptions combines the loader and test settings with caps.
func (c *Config) EvalOptions(caps *effects.Capabilities) eval.Options {
	return eval.Options{
		Capabilities: caps,
		Loader:       c.Loader(),
		MaxDepth:     c.Test.MaxDepth,
		PropertyRuns: c.Test.PropertyRuns,
	}
}

// expandEnvVars expands ${VAR} references in a string using os.Getenv.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}
