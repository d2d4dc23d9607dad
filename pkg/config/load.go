package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The document is unmarshalled over a fully defaulted Config, so absent
// fields keep their defaults. The result is validated before returning.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention H2OGATE_SECTION_FIELD (e.g., H2OGATE_SERVER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies H2OGATE_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("H2OGATE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("H2OGATE_SERVER_API_KEY"); val != "" {
		cfg.Server.APIKey = val
	}
	if val := os.Getenv("H2OGATE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("H2OGATE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if val := os.Getenv("H2OGATE_BACKEND_BASE_URL"); val != "" {
		cfg.Backend.BaseURL = val
	}
	if val := os.Getenv("H2OGATE_BACKEND_WORKSPACE_ID"); val != "" {
		cfg.Backend.WorkspaceID = val
	}
	if val := os.Getenv("H2OGATE_BACKEND_PROMPT_TEMPLATE_ID"); val != "" {
		cfg.Backend.PromptTemplateID = val
	}

	if val := os.Getenv("H2OGATE_CREDENTIALS_GUEST_MODE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Credentials.GuestMode = b
		}
	}
	if val := os.Getenv("H2OGATE_CREDENTIALS_SESSION"); val != "" {
		cfg.Credentials.Session = val
	}
	if val := os.Getenv("H2OGATE_CREDENTIALS_CSRF_TOKEN"); val != "" {
		cfg.Credentials.CSRFToken = val
	}
	if val := os.Getenv("H2OGATE_CREDENTIALS_FILE_PATH"); val != "" {
		cfg.Credentials.FilePath = val
	}

	if val := os.Getenv("H2OGATE_POOL_TARGET_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Pool.TargetSize = i
		}
	}

	if val := os.Getenv("H2OGATE_USAGE_PATH"); val != "" {
		cfg.Usage.Path = val
	}

	if val := os.Getenv("H2OGATE_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("H2OGATE_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
