// Package config loads the runtime configuration for dataset tooling: where
// the source datasets live and where preloaded working files go.
//
// Values resolve in three layers: struct defaults, then an optional YAML
// file, then AARDT_* environment variables, later layers winning.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the complete tooling configuration.
type Config struct {
	// WorkingDir is the root under which every dataset keeps its preloaded
	// working files.
	WorkingDir string `yaml:"working_dir" envconfig:"WORKING_DIR"`

	Datasets DatasetsConfig `yaml:"datasets" envconfig:"DATASETS"`

	Split SplitConfig `yaml:"split" envconfig:"SPLIT"`
}

// DatasetsConfig locates the source datasets on disk.
type DatasetsConfig struct {
	CUADSPath   string `yaml:"cuads_path" envconfig:"CUADS_PATH"`
	DreamerPath string `yaml:"dreamer_path" envconfig:"DREAMER_PATH"`
}

// SplitConfig carries the default train/validation/test proportions.
type SplitConfig struct {
	Proportions []float64 `yaml:"proportions" envconfig:"PROPORTIONS"`
	Seed        int64     `yaml:"seed" envconfig:"SEED"`
}

// Default returns the configuration used when no file or environment is
// present.
func Default() Config {
	return Config{
		WorkingDir: filepath.Join(os.TempDir(), "aardt"),
		Split:      SplitConfig{Proportions: []float64{0.7, 0.3}},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and environment variables apply; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process("AARDT", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to load environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WorkingDir == "" {
		return fmt.Errorf("config: working_dir must not be empty")
	}
	sum := 0.0
	for _, p := range c.Split.Proportions {
		if p <= 0 || p > 1 {
			return fmt.Errorf("config: split proportion %v out of range", p)
		}
		sum += p
	}
	if len(c.Split.Proportions) > 0 && math.Abs(1.0-sum) > 1e-4 {
		return fmt.Errorf("config: split proportions sum to %v, want 1.0", sum)
	}
	return nil
}
