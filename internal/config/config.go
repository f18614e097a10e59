// Package config handles configuration loading and management for taskaudit.
// It supports XDG config paths, project-level overrides, and environment
// variables. One immutable Config value is threaded through every component
// constructor; there is no ambient configuration state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskaudit.
type Config struct {
	Verify     VerifyConfig     `mapstructure:"verify" yaml:"verify"`
	Limits     LimitsConfig     `mapstructure:"limits" yaml:"limits"`
	Similarity SimilarityConfig `mapstructure:"similarity" yaml:"similarity"`
	Search     SearchConfig     `mapstructure:"search" yaml:"search"`
	History    HistoryConfig    `mapstructure:"history" yaml:"history"`
}

// VerifyConfig holds verification-run settings.
type VerifyConfig struct {
	// AllowMedium counts medium-confidence evidence as verified. This is a
	// single global gate; per-task or per-type scoping is not supported.
	AllowMedium bool `mapstructure:"allow_medium" yaml:"allow_medium"`
	// Workers is the size of the per-task probing worker pool.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// RunBudget is the wall-clock budget for one verification run. Tasks
	// not started when the budget expires are reported needs_manual.
	RunBudget time.Duration `mapstructure:"run_budget" yaml:"run_budget"`
}

// LimitsConfig bounds every repository probe.
type LimitsConfig struct {
	// MaxFiles caps the number of files one probe may open.
	MaxFiles int `mapstructure:"max_files" yaml:"max_files"`
	// MaxBytes caps the total bytes one probe may read.
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
	// MaxScanTime caps the wall-clock time of one probe.
	MaxScanTime time.Duration `mapstructure:"max_scan_time" yaml:"max_scan_time"`
	// MaxExcerpt caps the length of audit excerpts in reports.
	MaxExcerpt int `mapstructure:"max_excerpt" yaml:"max_excerpt"`
}

// SimilarityConfig holds the fuzzy-matching weights and band thresholds.
type SimilarityConfig struct {
	Weights WeightsConfig `mapstructure:"weights" yaml:"weights"`
	Bands   BandsConfig   `mapstructure:"bands" yaml:"bands"`
}

// WeightsConfig holds the linear-combination weights for path similarity.
type WeightsConfig struct {
	Filename float64 `mapstructure:"filename" yaml:"filename"`
	Keyword  float64 `mapstructure:"keyword" yaml:"keyword"`
	Dir      float64 `mapstructure:"dir" yaml:"dir"`
	Ext      float64 `mapstructure:"ext" yaml:"ext"`
}

// BandsConfig holds the lower score thresholds for each similarity band.
// Scores below Low fall into VERY_LOW.
type BandsConfig struct {
	VeryHigh float64 `mapstructure:"very_high" yaml:"very_high"`
	High     float64 `mapstructure:"high" yaml:"high"`
	Medium   float64 `mapstructure:"medium" yaml:"medium"`
	Low      float64 `mapstructure:"low" yaml:"low"`
}

// SearchConfig holds candidate-search settings.
type SearchConfig struct {
	// StageMaxFiles caps the files scanned per search stage.
	StageMaxFiles int `mapstructure:"stage_max_files" yaml:"stage_max_files"`
	// TieMargin is the score difference under which two remediation
	// candidates are considered ambiguous.
	TieMargin float64 `mapstructure:"tie_margin" yaml:"tie_margin"`
}

// HistoryConfig holds run-history journal settings.
type HistoryConfig struct {
	// Enabled turns on the SQLite run journal.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Path overrides the journal location. Empty means
	// <repo>/.taskaudit/history.db.
	Path string `mapstructure:"path" yaml:"path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (TASKAUDIT_*)
// 2. Project config (.taskaudit.yaml in start dir or a parent)
// 3. User config (~/.config/taskaudit/config.yaml)
// 4. Built-in defaults
func Load(startDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := FindProjectConfig(startDir); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKAUDIT")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Verify.Workers < 1 {
		return fmt.Errorf("verify.workers must be at least 1, got %d", c.Verify.Workers)
	}
	if c.Limits.MaxFiles < 1 {
		return fmt.Errorf("limits.max_files must be at least 1, got %d", c.Limits.MaxFiles)
	}
	if c.Limits.MaxBytes < 1 {
		return fmt.Errorf("limits.max_bytes must be at least 1, got %d", c.Limits.MaxBytes)
	}
	w := c.Similarity.Weights
	sum := w.Filename + w.Keyword + w.Dir + w.Ext
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("similarity weights must sum to 1.0, got %.3f", sum)
	}
	b := c.Similarity.Bands
	if !(b.VeryHigh >= b.High && b.High >= b.Medium && b.Medium >= b.Low) {
		return fmt.Errorf("similarity band thresholds must be non-increasing")
	}
	if c.Search.TieMargin < 0 {
		return fmt.Errorf("search.tie_margin must be non-negative, got %f", c.Search.TieMargin)
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verify.allow_medium", false)
	v.SetDefault("verify.workers", 4)
	v.SetDefault("verify.run_budget", "2m")

	v.SetDefault("limits.max_files", 2000)
	v.SetDefault("limits.max_bytes", 8*1024*1024)
	v.SetDefault("limits.max_scan_time", "10s")
	v.SetDefault("limits.max_excerpt", 160)

	v.SetDefault("similarity.weights.filename", 0.4)
	v.SetDefault("similarity.weights.keyword", 0.3)
	v.SetDefault("similarity.weights.dir", 0.2)
	v.SetDefault("similarity.weights.ext", 0.1)

	v.SetDefault("similarity.bands.very_high", 0.80)
	v.SetDefault("similarity.bands.high", 0.70)
	v.SetDefault("similarity.bands.medium", 0.60)
	v.SetDefault("similarity.bands.low", 0.50)

	v.SetDefault("search.stage_max_files", 500)
	v.SetDefault("search.tie_margin", 0.05)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "")
}

// getUserConfigDir returns the XDG config directory for taskaudit.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskaudit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskaudit")
	}
	return filepath.Join(home, ".config", "taskaudit")
}

// FindProjectConfig searches for .taskaudit.yaml in startDir and parents.
func FindProjectConfig(startDir string) string {
	dir := startDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ".taskaudit.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// Default returns a Config with built-in default values.
func Default() *Config {
	return &Config{
		Verify: VerifyConfig{
			AllowMedium: false,
			Workers:     4,
			RunBudget:   2 * time.Minute,
		},
		Limits: LimitsConfig{
			MaxFiles:    2000,
			MaxBytes:    8 * 1024 * 1024,
			MaxScanTime: 10 * time.Second,
			MaxExcerpt:  160,
		},
		Similarity: SimilarityConfig{
			Weights: WeightsConfig{Filename: 0.4, Keyword: 0.3, Dir: 0.2, Ext: 0.1},
			Bands:   BandsConfig{VeryHigh: 0.80, High: 0.70, Medium: 0.60, Low: 0.50},
		},
		Search: SearchConfig{
			StageMaxFiles: 500,
			TieMargin:     0.05,
		},
		History: HistoryConfig{
			Enabled: false,
		},
	}
}
