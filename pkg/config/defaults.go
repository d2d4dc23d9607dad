package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:2156"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 300 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Backend defaults
	DefaultBackendBaseURL       = "https://h2ogpte.genai.h2o.ai"
	DefaultWorkspaceID          = "workspaces/h2ogpte-guest"
	DefaultRPCTimeout           = 60 * time.Second
	DefaultStreamReceiveTimeout = 120 * time.Second

	// Credential defaults
	DefaultGuestMode          = true
	DefaultCredentialFilePath = "guest_credentials.json"
	DefaultCredentialWatch    = true
	DefaultBootstrapTimeout   = 30 * time.Second

	// Pool defaults
	DefaultPoolTargetSize        = 3
	DefaultPoolReplenishInterval = 2 * time.Second

	// Usage defaults
	DefaultUsageEnabled       = true
	DefaultUsagePath          = "./usage.db"
	DefaultUsageRetentionDays = 30
	DefaultUsagePruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "h2ogate"
)

// Default returns a Config populated with every default value.
// LoadConfig unmarshals the YAML document over this struct, so fields absent
// from the file keep their defaults while explicit false/zero values stick.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   DefaultListenAddress,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORS: CORSConfig{
				Enabled:        DefaultCORSEnabled,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
				MaxAge:         DefaultCORSMaxAge,
			},
		},
		Backend: BackendConfig{
			BaseURL:              DefaultBackendBaseURL,
			WorkspaceID:          DefaultWorkspaceID,
			RPCTimeout:           DefaultRPCTimeout,
			StreamReceiveTimeout: DefaultStreamReceiveTimeout,
		},
		Credentials: CredentialsConfig{
			GuestMode:        DefaultGuestMode,
			FilePath:         DefaultCredentialFilePath,
			WatchFile:        DefaultCredentialWatch,
			BootstrapTimeout: DefaultBootstrapTimeout,
		},
		Pool: PoolConfig{
			TargetSize:        DefaultPoolTargetSize,
			ReplenishInterval: DefaultPoolReplenishInterval,
		},
		Usage: UsageConfig{
			Enabled:       DefaultUsageEnabled,
			Path:          DefaultUsagePath,
			RetentionDays: DefaultUsageRetentionDays,
			PruneSchedule: DefaultUsagePruneSchedule,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
			Metrics: MetricsConfig{
				Enabled:   DefaultMetricsEnabled,
				Namespace: DefaultMetricsNamespace,
			},
		},
	}
}

// ApplyDefaults fills zero-valued fields of cfg with defaults. It is used for
// configurations constructed programmatically rather than through LoadConfig.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendBaseURL
	}
	if cfg.Backend.WorkspaceID == "" {
		cfg.Backend.WorkspaceID = DefaultWorkspaceID
	}
	if cfg.Backend.RPCTimeout == 0 {
		cfg.Backend.RPCTimeout = DefaultRPCTimeout
	}
	if cfg.Backend.StreamReceiveTimeout == 0 {
		cfg.Backend.StreamReceiveTimeout = DefaultStreamReceiveTimeout
	}
	if cfg.Credentials.FilePath == "" {
		cfg.Credentials.FilePath = DefaultCredentialFilePath
	}
	if cfg.Credentials.BootstrapTimeout == 0 {
		cfg.Credentials.BootstrapTimeout = DefaultBootstrapTimeout
	}
	if cfg.Pool.TargetSize == 0 {
		cfg.Pool.TargetSize = DefaultPoolTargetSize
	}
	if cfg.Pool.ReplenishInterval == 0 {
		cfg.Pool.ReplenishInterval = DefaultPoolReplenishInterval
	}
	if cfg.Usage.Path == "" {
		cfg.Usage.Path = DefaultUsagePath
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}
