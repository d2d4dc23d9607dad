package config

import "time"

// Config is the root configuration structure for H2Ogate.
// It contains all configuration sections for the HTTP gateway, the H2OGPTE
// backend connection, credential handling, the session pool, usage recording,
// and telemetry.
type Config struct {
	// Server contains HTTP gateway server configuration including listen
	// address, timeouts, and the inbound API key.
	Server ServerConfig `yaml:"server"`

	// Backend contains configuration for the H2OGPTE backend connection.
	Backend BackendConfig `yaml:"backend"`

	// Credentials contains configuration for guest credential handling.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Pool contains configuration for the pre-warmed chat session pool.
	Pool PoolConfig `yaml:"pool"`

	// Usage contains configuration for turn usage recording.
	Usage UsageConfig `yaml:"usage"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP gateway server.
type ServerConfig struct {
	// ListenAddress is the address and port for the gateway to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:2156", "0.0.0.0:2156").
	// Default: "127.0.0.1:2156"
	ListenAddress string `yaml:"listen_address"`

	// APIKey is the static bearer token required on inbound requests.
	// An empty value disables inbound authentication.
	APIKey string `yaml:"api_key"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Streaming completions hold the response open, so this must
	// comfortably exceed the backend receive timeout.
	// Default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// BackendConfig contains configuration for the H2OGPTE backend.
type BackendConfig struct {
	// BaseURL is the base URL of the H2OGPTE deployment.
	// Default: "https://h2ogpte.genai.h2o.ai"
	BaseURL string `yaml:"base_url"`

	// WorkspaceID is the workspace chat sessions are created in.
	// Guest accounts use the shared guest workspace; logged-in accounts
	// should set "workspaces/<uuid>".
	// Default: "workspaces/h2ogpte-guest"
	WorkspaceID string `yaml:"workspace_id"`

	// PromptTemplateID is an optional fixed prompt template UUID attached to
	// every chat turn. Empty means no template.
	PromptTemplateID string `yaml:"prompt_template_id"`

	// RPCTimeout is the maximum duration for one RPC call to the backend.
	// Default: 60s
	RPCTimeout time.Duration `yaml:"rpc_timeout"`

	// StreamReceiveTimeout is the per-message receive deadline on the chat
	// WebSocket. Hitting it ends the stream normally rather than erroring.
	// Default: 120s
	StreamReceiveTimeout time.Duration `yaml:"stream_receive_timeout"`
}

// CredentialsConfig contains configuration for backend credential handling.
type CredentialsConfig struct {
	// GuestMode controls whether the gateway provisions and auto-renews an
	// anonymous guest identity. When false, Session and CSRFToken must be
	// supplied by the operator and are never overwritten on disk.
	// Default: true
	GuestMode bool `yaml:"guest_mode"`

	// Session is the static session token for non-guest mode.
	Session string `yaml:"session"`

	// CSRFToken is the static anti-forgery token for non-guest mode.
	CSRFToken string `yaml:"csrf_token"`

	// FilePath is the path of the persisted guest credential record.
	// Default: "guest_credentials.json"
	FilePath string `yaml:"file_path"`

	// WatchFile controls whether the credential file is watched for external
	// edits and hot-reloaded.
	// Default: true
	WatchFile bool `yaml:"watch_file"`

	// RenewSchedule is an optional cron expression for proactive session
	// keep-alive renewal (e.g., "0 */6 * * *" for every 6 hours).
	// Empty disables scheduled renewal; expired credentials are then only
	// recovered on demand after an authentication failure.
	RenewSchedule string `yaml:"renew_schedule"`

	// BootstrapTimeout is the maximum duration for one bootstrap page fetch.
	// Default: 30s
	BootstrapTimeout time.Duration `yaml:"bootstrap_timeout"`
}

// PoolConfig contains configuration for the chat session pool.
type PoolConfig struct {
	// TargetSize is the number of pre-warmed chat sessions kept ready.
	// Default: 3
	TargetSize int `yaml:"target_size"`

	// ReplenishInterval is how often the replenisher tops the pool back up
	// to TargetSize.
	// Default: 2s
	ReplenishInterval time.Duration `yaml:"replenish_interval"`
}

// UsageConfig contains configuration for turn usage recording.
type UsageConfig struct {
	// Enabled controls whether completed turns are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file for usage records.
	// Default: "./usage.db"
	Path string `yaml:"path"`

	// RetentionDays is how long usage records are kept before pruning.
	// Zero disables age-based pruning.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for logging and metrics.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "h2ogate"
	Namespace string `yaml:"namespace"`
}
