// Package config provides centralized configuration defaults for hippocratic.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"hippocratic/internal/schema"
	"hippocratic/internal/similarity"
)

// ConfigFile represents the structure of config.toml
type ConfigFile struct {
	Index    Index    `toml:"index"`
	Defaults Defaults `toml:"defaults"`
}

// Index holds the similarity index options.
type Index struct {
	Metric           string   `toml:"metric"`
	DefaultThreshold int      `toml:"default_threshold"`
	Normalize        bool     `toml:"normalize"`
	Fields           []string `toml:"fields"`
}

// Defaults holds CLI default values
type Defaults struct {
	OutputDir string `toml:"output_dir"`
	Workers   int    `toml:"workers"`
	Parallel  bool   `toml:"parallel"`
	Limit     int    `toml:"limit"`
	Quiet     bool   `toml:"quiet"`
	Verbose   bool   `toml:"verbose"`
	Metrics   bool   `toml:"metrics"`
}

// Hardcoded fallback defaults (used if config.toml not found)
var fallback = ConfigFile{
	Index: Index{
		Metric:           "levenshtein",
		DefaultThreshold: 2,
		Normalize:        true,
		Fields:           []string{"name", "address", "tin"},
	},
	Defaults: Defaults{
		OutputDir: "output",
		Workers:   0,
		Parallel:  true,
		Limit:     10,
		Quiet:     false,
		Verbose:   false,
		Metrics:   true,
	},
}

// FileName is the configuration file looked up by Load.
const FileName = "config.toml"

// MaxWorkers is the cap for parallel workers
const MaxWorkers = 8

// loaded holds the parsed config (nil if not loaded yet)
var loaded *ConfigFile

// Fallback returns a copy of the built-in defaults.
func Fallback() *ConfigFile {
	cfg := fallback
	cfg.Index.Fields = append([]string(nil), fallback.Index.Fields...)
	return &cfg
}

// Load reads config.toml from the project root, falling back to the
// built-in defaults when none is found. The result is cached.
func Load() (*ConfigFile, error) {
	if loaded != nil {
		return loaded, nil
	}

	path := find()
	if path == "" {
		loaded = Fallback()
		return loaded, nil
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	loaded = cfg
	return loaded, nil
}

// LoadFile decodes path over the fallback defaults and validates the result.
func LoadFile(path string) (*ConfigFile, error) {
	cfg := Fallback()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// find walks up from the working directory and the executable location.
func find() string {
	paths := []string{
		FileName,
		filepath.Join("..", FileName),
		filepath.Join("..", "..", FileName),
	}

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(dir, FileName),
			filepath.Join(dir, "..", FileName),
			filepath.Join(dir, "..", "..", FileName),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the index options. Invalid values are never defaulted.
func (c *ConfigFile) Validate() error {
	var errs []error

	if _, err := similarity.MetricByName(c.Index.Metric); err != nil {
		errs = append(errs, fmt.Errorf("index.metric: %w", err))
	}
	if c.Index.DefaultThreshold < 0 {
		errs = append(errs, fmt.Errorf("index.default_threshold: %w: %d",
			similarity.ErrInvalidThreshold, c.Index.DefaultThreshold))
	}
	if len(c.Index.Fields) == 0 {
		errs = append(errs, errors.New("index.fields: at least one field is required"))
	}
	for _, f := range c.Index.Fields {
		if _, err := schema.ParseField(f); err != nil {
			errs = append(errs, fmt.Errorf("index.fields: %w", err))
		}
	}
	if c.Defaults.Workers < 0 {
		errs = append(errs, fmt.Errorf("defaults.workers: must be non-negative, got %d", c.Defaults.Workers))
	}

	return errors.Join(errs...)
}

// Metric resolves the configured metric.
func (c *ConfigFile) Metric() (similarity.Metric, error) {
	return similarity.MetricByName(c.Index.Metric)
}

// IndexFields parses the configured field names.
func (c *ConfigFile) IndexFields() ([]schema.Field, error) {
	fields := make([]schema.Field, 0, len(c.Index.Fields))
	for _, name := range c.Index.Fields {
		f, err := schema.ParseField(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// EffectiveWorkers resolves a worker count of 0 to the CPU count, capped at MaxWorkers.
func EffectiveWorkers(requested, numCPU int) int {
	if requested > 0 {
		return requested
	}
	if numCPU > MaxWorkers {
		return MaxWorkers
	}
	if numCPU < 1 {
		return 1
	}
	return numCPU
}

// MetricNames returns the accepted metric identifiers as a comma-separated string.
func MetricNames() string {
	return strings.Join(similarity.MetricNames(), ", ")
}
