// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds the application configuration
type Config struct {
	// Input
	DataPath string `yaml:"data_path"`

	// Analysis settings
	Window         int           `yaml:"window" validate:"gte=2"`
	SigmaThreshold float64       `yaml:"sigma_threshold" validate:"gt=0"`
	Parallel       bool          `yaml:"parallel"`
	Workers        int           `yaml:"workers" validate:"gte=0"`
	TaskTimeout    time.Duration `yaml:"task_timeout" validate:"gte=0"`

	// OpenWeatherMap
	OpenWeatherAPIKey string        `yaml:"openweather_api_key"`
	WeatherRateLimit  float64       `yaml:"weather_rate_limit" validate:"gt=0"`
	WeatherBurst      int           `yaml:"weather_burst" validate:"gte=1"`
	WeatherCacheTTL   time.Duration `yaml:"weather_cache_ttl" validate:"gte=0"`

	// Storage
	CachePath string `yaml:"cache_path"`

	// Server
	ListenAddr      string        `yaml:"listen_addr" validate:"required"`
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`

	// Logging
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
	Debug     bool   `yaml:"debug"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Window:           DefaultWindow,
		SigmaThreshold:   DefaultSigmaThreshold,
		TaskTimeout:      DefaultTaskTimeout,
		WeatherRateLimit: 1.0,
		WeatherBurst:     5,
		WeatherCacheTTL:  10 * time.Minute,
		CachePath:        getDefaultCachePath(),
		ListenAddr:       ":8080",
		RefreshInterval:  15 * time.Minute,
		LogFormat:        "text",
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := DefaultConfig()

	// If no path provided, return defaults with env var overrides
	if path == "" {
		config.applyEnvironmentVariables()
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config.applyEnvironmentVariables()
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentVariables()

	return config, nil
}

// getDefaultCachePath returns the default cache directory
func getDefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".tempwatch"
	}
	return filepath.Join(dir, "tempwatch")
}

// applyEnvironmentVariables overrides config with environment variables
func (c *Config) applyEnvironmentVariables() {
	if val := os.Getenv("TEMPWATCH_DATA_PATH"); val != "" {
		c.DataPath = val
	}
	if val := os.Getenv("OPENWEATHER_API_KEY"); val != "" {
		c.OpenWeatherAPIKey = val
	}
	if val := os.Getenv("TEMPWATCH_WINDOW"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Window = n
		}
	}
	if val := os.Getenv("TEMPWATCH_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Workers = n
		}
	}
	if val := os.Getenv("TEMPWATCH_CACHE_PATH"); val != "" {
		c.CachePath = val
	}
	if val := os.Getenv("TEMPWATCH_LISTEN_ADDR"); val != "" {
		c.ListenAddr = val
	}
	if val := os.Getenv("TEMPWATCH_PARALLEL"); val == "true" || val == "1" {
		c.Parallel = true
	}
	if val := os.Getenv("TEMPWATCH_DEBUG"); val == "true" || val == "1" {
		c.Debug = true
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ConfigError{Field: "config", Message: err.Error()}
		}
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if c.CachePath == "" {
		c.CachePath = getDefaultCachePath()
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// describeFieldError renders a validator failure using the YAML key name
func describeFieldError(fe validator.FieldError) string {
	key := yamlKeys[fe.Field()]
	if key == "" {
		key = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", key, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", key, fe.Tag())
	}
}

var yamlKeys = map[string]string{
	"Window":           "window",
	"SigmaThreshold":   "sigma_threshold",
	"Workers":          "workers",
	"TaskTimeout":      "task_timeout",
	"WeatherRateLimit": "weather_rate_limit",
	"WeatherBurst":     "weather_burst",
	"WeatherCacheTTL":  "weather_cache_ttl",
	"ListenAddr":       "listen_addr",
	"RefreshInterval":  "refresh_interval",
	"LogFormat":        "log_format",
}
