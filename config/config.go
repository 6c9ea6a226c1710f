// Package config handles trellis.toml interpreter configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "trellis.toml"

// Config represents a trellis.toml configuration.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	GC          GC          `toml:"gc"`
	Release     Release     `toml:"release"`

	// Dir is the directory containing the trellis.toml file (set at load time).
	Dir string `toml:"-"`
}

// Interpreter contains interpreter-wide settings.
type Interpreter struct {
	Name      string `toml:"name"`
	Verbosity int    `toml:"verbosity"`
}

// GC configures the collector and the arena stack.
type GC struct {
	// IncrementalStep is the number of heap slots one incremental pass sweeps.
	IncrementalStep int `toml:"incremental-step"`
	// ArenaWarnDepth is the root-stack depth at which a warning is logged.
	ArenaWarnDepth int `toml:"arena-warn-depth"`
	// CollectInterval enables the background collector when non-zero.
	CollectInterval Duration `toml:"collect-interval"`
}

// Release holds the metadata installed as TRELLIS_* constants.
// Patchlevel and Revision are kept as text and parsed at install time.
type Release struct {
	Copyright     string `toml:"copyright"`
	Description   string `toml:"description"`
	Engine        string `toml:"engine"`
	EngineVersion string `toml:"engine-version"`
	Patchlevel    string `toml:"patchlevel"`
	Platform      string `toml:"platform"`
	ReleaseDate   string `toml:"release-date"`
	Revision      string `toml:"revision"`
	Version       string `toml:"version"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults
const (
	DefaultName            = "trellis"
	DefaultIncrementalStep = 1024
	DefaultArenaWarnDepth  = 1 << 16
)

// Default returns the configuration used when no trellis.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Interpreter.Name == "" {
		c.Interpreter.Name = DefaultName
	}
	if c.GC.IncrementalStep <= 0 {
		c.GC.IncrementalStep = DefaultIncrementalStep
	}
	if c.GC.ArenaWarnDepth <= 0 {
		c.GC.ArenaWarnDepth = DefaultArenaWarnDepth
	}
	r := &c.Release
	if r.Engine == "" {
		r.Engine = "trellis"
	}
	if r.EngineVersion == "" {
		r.EngineVersion = "0.1.0"
	}
	if r.Version == "" {
		r.Version = "3.1.2"
	}
	if r.Patchlevel == "" {
		r.Patchlevel = "0"
	}
	if r.Revision == "" {
		r.Revision = "0"
	}
	if r.ReleaseDate == "" {
		r.ReleaseDate = "2026-01-01"
	}
	if r.Platform == "" {
		r.Platform = runtime.GOARCH + "-" + runtime.GOOS
	}
	if r.Copyright == "" {
		r.Copyright = "trellis - Copyright (c) 2026 The trellis authors"
	}
}

// Load parses a trellis.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a trellis.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Encode writes c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
