// Package config loads the service configuration: environment variables for
// deployment-specific settings and an optional YAML file for the window
// parameters organizers tune per event.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/wonderelo/wonderelo/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the service binaries.
type Config struct {
	Port       string
	NatsURL    string
	AnonKey    string
	AdminKey   string
	ParamsFile string
}

// FromEnv reads configuration from environment variables (with defaults).
// Callers load .env beforehand if they want file-based overrides.
func FromEnv() Config {
	return Config{
		Port:       getEnv("PORT", "8080"),
		NatsURL:    getEnv("NATS_URL", "nats://localhost:4222"),
		AnonKey:    os.Getenv("ANON_API_KEY"),
		AdminKey:   os.Getenv("ADMIN_API_KEY"),
		ParamsFile: getEnv("PARAMS_FILE", ""),
	}
}

// paramsFile is the YAML shape of the window parameters file.
type paramsFile struct {
	Params models.SystemParams `yaml:"params"`
}

// LoadSystemParams returns the window parameters: the stock defaults overlaid
// with whatever the YAML file at path sets. An empty path means defaults.
func LoadSystemParams(path string) (models.SystemParams, error) {
	params := models.DefaultSystemParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read params file: %w", err)
	}

	file := paramsFile{Params: params}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return params, fmt.Errorf("failed to parse params file: %w", err)
	}
	return file.Params, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt reads an integer environment variable with a default.
func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
