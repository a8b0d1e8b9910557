// Package config handles backtalker.toml configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "backtalker.toml"

//go:embed schema.cue
var schemaSource string

// Config is a backtalker.toml configuration.
type Config struct {
	Log    Log    `toml:"log"`
	Source Source `toml:"source"`
	REPL   REPL   `toml:"repl"`
	Server Server `toml:"server"`

	// Dir is the directory containing the backtalker.toml file (set at
	// load time). Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Source lists scripts evaluated into every session before use.
type Source struct {
	Preload []string `toml:"preload"`
}

// REPL configures the interactive prompt.
type REPL struct {
	Prompt       string `toml:"prompt"`
	Continuation string `toml:"continuation"`
	History      string `toml:"history"`
	HistorySize  int    `toml:"history-size"`
}

// Server configures the eval server.
type Server struct {
	Addr          string   `toml:"addr"`
	ResultTTL     Duration `toml:"result-ttl"`
	SweepInterval Duration `toml:"sweep-interval"`
}

// Duration is a time.Duration written as a string such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no backtalker.toml exists.
func Default() *Config {
	return &Config{
		REPL: REPL{
			Prompt:       "> ",
			Continuation: "... ",
			HistorySize:  1000,
		},
		Server: Server{
			Addr:          "localhost:7411",
			ResultTTL:     Duration{30 * time.Minute},
			SweepInterval: Duration{5 * time.Minute},
		},
	}
}

// Load parses and validates the backtalker.toml file in dir. Keys the
// file leaves out keep their Default values.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a backtalker.toml file,
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

// Validate checks decoded TOML against the embedded CUE schema. Unknown
// keys and out-of-range values are errors.
func Validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return errors.New(cueerrors.Details(err, nil))
	}
	return nil
}

// Path resolves p against the directory of the config file. Absolute
// paths and configs without a Dir are returned unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// PreloadPaths returns absolute paths for the preload scripts.
func (c *Config) PreloadPaths() []string {
	var paths []string
	for _, p := range c.Source.Preload {
		paths = append(paths, c.Path(p))
	}
	return paths
}

// HistoryPath returns where REPL history is stored, or "" when history
// is not persisted.
func (c *Config) HistoryPath() string {
	return c.Path(c.REPL.History)
}

// LogFile returns the log file path, or nil to log to stderr.
func (c *Config) LogFile() *string {
	if c.Log.File == "" {
		return nil
	}
	path := c.Path(c.Log.File)
	return &path
}
