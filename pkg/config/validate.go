package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for errors and returns a descriptive
// error for the first problem found.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validateBackend(&cfg.Backend); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := validateCredentials(&cfg.Credentials); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	if err := validatePool(&cfg.Pool); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if err := validateUsage(&cfg.Usage); err != nil {
		return fmt.Errorf("usage: %w", err)
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen_address %q: %w", cfg.ListenAddress, err)
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative")
	}
	return nil
}

func validateBackend(cfg *BackendConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", u.Scheme)
	}
	if cfg.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is required")
	}
	if cfg.RPCTimeout <= 0 {
		return fmt.Errorf("rpc_timeout must be positive")
	}
	if cfg.StreamReceiveTimeout <= 0 {
		return fmt.Errorf("stream_receive_timeout must be positive")
	}
	return nil
}

func validateCredentials(cfg *CredentialsConfig) error {
	if !cfg.GuestMode {
		if cfg.Session == "" || cfg.CSRFToken == "" {
			return fmt.Errorf("session and csrf_token are required when guest_mode is disabled")
		}
	}
	if cfg.FilePath == "" {
		return fmt.Errorf("file_path is required")
	}
	if cfg.RenewSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RenewSchedule); err != nil {
			return fmt.Errorf("invalid renew_schedule %q: %w", cfg.RenewSchedule, err)
		}
	}
	return nil
}

func validatePool(cfg *PoolConfig) error {
	if cfg.TargetSize < 0 {
		return fmt.Errorf("target_size must not be negative")
	}
	if cfg.ReplenishInterval <= 0 {
		return fmt.Errorf("replenish_interval must be positive")
	}
	return nil
}

func validateUsage(cfg *UsageConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Path == "" {
		return fmt.Errorf("path is required when usage recording is enabled")
	}
	if cfg.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune_schedule %q: %w", cfg.PruneSchedule, err)
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q (expected debug, info, warn, or error)", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format %q (expected json or text)", cfg.Logging.Format)
	}
	return nil
}
