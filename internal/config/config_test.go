package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Verify.AllowMedium {
		t.Error("expected verify.allow_medium to default to false")
	}

	if cfg.Verify.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Verify.Workers)
	}

	if cfg.Verify.RunBudget != 2*time.Minute {
		t.Errorf("expected run budget 2m, got %v", cfg.Verify.RunBudget)
	}

	if cfg.Limits.MaxFiles != 2000 {
		t.Errorf("expected max_files 2000, got %d", cfg.Limits.MaxFiles)
	}

	if cfg.Similarity.Weights.Filename != 0.4 {
		t.Errorf("expected filename weight 0.4, got %f", cfg.Similarity.Weights.Filename)
	}

	if cfg.Similarity.Bands.Medium != 0.60 {
		t.Errorf("expected MEDIUM threshold 0.60, got %f", cfg.Similarity.Bands.Medium)
	}

	if cfg.Search.TieMargin != 0.05 {
		t.Errorf("expected tie margin 0.05, got %f", cfg.Search.TieMargin)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `verify:
  allow_medium: true
  workers: 8
limits:
  max_files: 100
similarity:
  bands:
    medium: 0.65
search:
  tie_margin: 0.03
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if !cfg.Verify.AllowMedium {
		t.Error("expected allow_medium true from file")
	}
	if cfg.Verify.Workers != 8 {
		t.Errorf("expected workers 8, got %d", cfg.Verify.Workers)
	}
	if cfg.Limits.MaxFiles != 100 {
		t.Errorf("expected max_files 100, got %d", cfg.Limits.MaxFiles)
	}
	if cfg.Similarity.Bands.Medium != 0.65 {
		t.Errorf("expected MEDIUM threshold 0.65, got %f", cfg.Similarity.Bands.Medium)
	}
	// Unset keys keep their defaults.
	if cfg.Similarity.Weights.Keyword != 0.3 {
		t.Errorf("expected keyword weight default 0.3, got %f", cfg.Similarity.Weights.Keyword)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero workers rejected", func(c *Config) { c.Verify.Workers = 0 }, true},
		{"zero max_files rejected", func(c *Config) { c.Limits.MaxFiles = 0 }, true},
		{"weights must sum to one", func(c *Config) { c.Similarity.Weights.Filename = 0.9 }, true},
		{"band thresholds must be ordered", func(c *Config) { c.Similarity.Bands.Medium = 0.95 }, true},
		{"negative tie margin rejected", func(c *Config) { c.Search.TieMargin = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfgPath := filepath.Join(root, ".taskaudit.yaml")
	if err := os.WriteFile(cfgPath, []byte("verify:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := FindProjectConfig(nested); got != cfgPath {
		t.Errorf("FindProjectConfig() = %q, want %q", got, cfgPath)
	}
}
