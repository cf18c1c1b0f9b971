package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when ATTRITION_CONFIG is unset and the file exists
const DefaultConfigPath = "config.yaml"

// Config holds the application configuration
type Config struct {
	Environment  string         `yaml:"environment"`
	LogLevel     string         `yaml:"log_level"`
	LogFormat    string         `yaml:"log_format"`
	Port         string         `yaml:"port"`
	DataPath     string         `yaml:"data_path"`
	ArtifactsDir string         `yaml:"artifacts_dir"`
	HistoryDB    string         `yaml:"history_db"`
	PlotsDir     string         `yaml:"plots_dir"`
	Training     TrainingConfig `yaml:"training"`
}

// TrainingConfig controls the split, search and retraining schedule
type TrainingConfig struct {
	TestFraction float64              `yaml:"test_fraction"`
	Seed         int64                `yaml:"seed"`
	CVFolds      int                  `yaml:"cv_folds"`
	Workers      int                  `yaml:"workers"`
	Schedule     string               `yaml:"schedule"`
	Grid         map[string][]float64 `yaml:"grid"`
}

// Defaults returns the configuration used when neither file nor env set a value
func Defaults() *Config {
	return &Config{
		Environment:  "development",
		LogLevel:     "info",
		LogFormat:    "json",
		Port:         "8000",
		DataPath:     "data/WA_Fn-UseC_-HR-Employee-Attrition.csv",
		ArtifactsDir: "models",
		HistoryDB:    "data/training_runs.db",
		PlotsDir:     "reports/plots",
		Training: TrainingConfig{
			TestFraction: 0.2,
			Seed:         42,
			CVFolds:      5,
			Workers:      4,
		},
	}
}

// LoadConfig loads the YAML file (if any) and then applies environment overrides
func LoadConfig() (*Config, error) {
	config := Defaults()

	path := os.Getenv("ATTRITION_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	if err := loadFile(config, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.Port = getEnv("PORT", config.Port)
	config.DataPath = getEnv("DATA_PATH", config.DataPath)
	config.ArtifactsDir = getEnv("ARTIFACTS_DIR", config.ArtifactsDir)
	config.HistoryDB = getEnv("HISTORY_DB", config.HistoryDB)
	config.PlotsDir = getEnv("PLOTS_DIR", config.PlotsDir)
	config.Training.TestFraction = getEnvAsFloat("TEST_FRACTION", config.Training.TestFraction)
	config.Training.Seed = int64(getEnvAsInt("SEED", int(config.Training.Seed)))
	config.Training.CVFolds = getEnvAsInt("CV_FOLDS", config.Training.CVFolds)
	config.Training.Workers = getEnvAsInt("TRAINING_WORKERS", config.Training.Workers)
	config.Training.Schedule = getEnv("RETRAIN_SCHEDULE", config.Training.Schedule)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", c.Training.TestFraction)
	}
	if c.Training.CVFolds < 2 {
		return fmt.Errorf("training.cv_folds must be at least 2, got %d", c.Training.CVFolds)
	}
	if c.Training.Workers < 1 {
		return fmt.Errorf("training.workers must be at least 1, got %d", c.Training.Workers)
	}
	if c.ArtifactsDir == "" {
		return fmt.Errorf("artifacts_dir is required")
	}
	return nil
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
