package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// TestLoadConfig tests configuration loading from the environment
func TestLoadConfig(t *testing.T) {
	t.Setenv("ATTRITION_CONFIG", writeConfig(t, ""))
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")
	t.Setenv("CV_FOLDS", "3")
	t.Setenv("TEST_FRACTION", "0.25")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected environment 'test', got '%s'", cfg.Environment)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.Training.CVFolds != 3 {
		t.Errorf("Expected CVFolds 3, got %d", cfg.Training.CVFolds)
	}
	if cfg.Training.TestFraction != 0.25 {
		t.Errorf("Expected TestFraction 0.25, got %v", cfg.Training.TestFraction)
	}
}

// TestLoadConfigDefaults tests default values
func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ATTRITION_CONFIG", writeConfig(t, ""))

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port '8000', got '%s'", cfg.Port)
	}
	if cfg.ArtifactsDir != "models" {
		t.Errorf("Expected default artifacts dir 'models', got '%s'", cfg.ArtifactsDir)
	}
	if cfg.Training.Seed != 42 {
		t.Errorf("Expected default seed 42, got %d", cfg.Training.Seed)
	}
	if cfg.Training.TestFraction != 0.2 {
		t.Errorf("Expected default test fraction 0.2, got %v", cfg.Training.TestFraction)
	}
	if cfg.Training.Grid != nil {
		t.Errorf("Expected no grid override, got %v", cfg.Training.Grid)
	}
}

// TestEnvOverridesFile tests that environment variables win over the YAML file
func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
port: "7000"
artifacts_dir: /srv/models
training:
  seed: 7
  workers: 2
  schedule: "0 3 * * *"
  grid:
    n_estimators: [20]
    max_depth: [2, 3]
`)
	t.Setenv("ATTRITION_CONFIG", path)
	t.Setenv("PORT", "7100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != "7100" {
		t.Errorf("Expected env port '7100', got '%s'", cfg.Port)
	}
	if cfg.ArtifactsDir != "/srv/models" {
		t.Errorf("Expected file artifacts dir, got '%s'", cfg.ArtifactsDir)
	}
	if cfg.Training.Seed != 7 {
		t.Errorf("Expected file seed 7, got %d", cfg.Training.Seed)
	}
	if cfg.Training.Schedule != "0 3 * * *" {
		t.Errorf("Expected file schedule, got '%s'", cfg.Training.Schedule)
	}
	if got := cfg.Training.Grid["max_depth"]; len(got) != 2 {
		t.Errorf("Expected two max_depth values, got %v", got)
	}
	// Keys absent from the file keep their defaults
	if cfg.Training.CVFolds != 5 {
		t.Errorf("Expected default CVFolds 5, got %d", cfg.Training.CVFolds)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		t.Setenv("ATTRITION_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := LoadConfig(); err == nil {
			t.Error("Expected error for missing explicit config file")
		}
	})

	t.Run("invalid fraction", func(t *testing.T) {
		t.Setenv("ATTRITION_CONFIG", writeConfig(t, "training:\n  test_fraction: 1.5\n"))
		if _, err := LoadConfig(); err == nil {
			t.Error("Expected error for test_fraction outside (0, 1)")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Setenv("ATTRITION_CONFIG", writeConfig(t, "port: [unterminated"))
		if _, err := LoadConfig(); err == nil {
			t.Error("Expected parse error")
		}
	})
}
