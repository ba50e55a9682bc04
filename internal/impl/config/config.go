package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rprigarin/test-driven-planner/internal/domain/errs"
)

const (
	// DefaultPath is where the planner looks for its configuration when
	// neither an explicit path nor PLANNER_CONFIG is given.
	DefaultPath = "config.json"

	// EnvPath names the environment variable that overrides DefaultPath.
	EnvPath = "PLANNER_CONFIG"
)

// Config holds the planner's database settings, read from a JSON file:
//
//	{"uri": "mongodb://localhost:27017/", "timeout_ms": 500}
type Config struct {
	URI       string `json:"uri"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// Timeout returns the server selection timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Load reads and validates the planner configuration. An empty path means
// resolve one: the PLANNER_CONFIG environment variable if set, otherwise
// config.json in the working directory. A .env file is loaded first so it
// can supply the variable.
//
// A missing file is reported as *errors.NotFoundError; anything else wrong
// with the file is *errors.ValidationError.
func Load(path string, logger *zap.Logger) (*Config, error) {
	if path == "" {
		if err := godotenv.Load(); err != nil {
			if os.IsNotExist(err) {
				logger.Debug("No .env file found; using system environment variables")
			} else {
				logger.Warn("Failed to load .env file", zap.Error(err))
			}
		}
		path = os.Getenv(EnvPath)
		if path == "" {
			path = DefaultPath
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundErrorf("configuration file %s not found", path)
		}
		return nil, errors.ValidationErrorf("failed to read configuration file %s: %v", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ValidationErrorf("configuration file %s is not valid JSON: %v", path, err)
	}
	if cfg.URI == "" {
		return nil, errors.ValidationErrorf("configuration file %s is missing the uri field", path)
	}
	if cfg.TimeoutMS <= 0 {
		return nil, errors.ValidationErrorf("configuration file %s needs a positive timeout_ms, got %d", path, cfg.TimeoutMS)
	}

	logger.Debug("Loaded configuration",
		zap.String("path", path),
		zap.Int64("timeout_ms", cfg.TimeoutMS))
	return &cfg, nil
}
