package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/h2ogate/h2ogate/pkg/backend"
	"github.com/h2ogate/h2ogate/pkg/cli"
	"github.com/h2ogate/h2ogate/pkg/config"
	"github.com/h2ogate/h2ogate/pkg/credential"
	"github.com/h2ogate/h2ogate/pkg/gateway/handlers"
	"github.com/h2ogate/h2ogate/pkg/server"
	"github.com/h2ogate/h2ogate/pkg/sessionpool"
	"github.com/h2ogate/h2ogate/pkg/telemetry/logging"
	"github.com/h2ogate/h2ogate/pkg/telemetry/metrics"
	"github.com/h2ogate/h2ogate/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the h2ogate gateway server",
	Long: `Start the gateway with the specified configuration.

The server listens on the configured address and serves the OpenAI chat
completions API, translating requests onto the H2OGPTE backend.

Examples:
  # Start with default config
  h2ogate run

  # Start with custom config
  h2ogate run --config /etc/h2ogate/config.yaml

  # Override listen address
  h2ogate run --listen 0.0.0.0:2156

  # Validate config without starting the server
  h2ogate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	// Canceled on the first SIGINT/SIGTERM; every subsystem hangs off it.
	ctx := cli.SetupSignalHandler()

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics.Namespace)
	}

	store := credential.NewStore(credential.StoreConfig{
		Path:      cfg.Credentials.FilePath,
		BaseURL:   cfg.Backend.BaseURL,
		GuestMode: cfg.Credentials.GuestMode,
		Timeout:   cfg.Credentials.BootstrapTimeout,
	})
	static := &credential.Credential{
		Session:   cfg.Credentials.Session,
		CSRFToken: cfg.Credentials.CSRFToken,
	}
	manager := credential.NewManager(store, cfg.Credentials.GuestMode, static, collector)

	if cfg.Credentials.WatchFile {
		watcher := credential.NewWatcher(store, manager)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Warn("credential file watcher stopped", "error", err)
			}
		}()
	}

	if cfg.Credentials.RenewSchedule != "" {
		keepalive := credential.NewKeepalive(manager, cfg.Credentials.RenewSchedule)
		if err := keepalive.Start(ctx); err != nil {
			slog.Warn("failed to start credential keepalive", "error", err)
		} else {
			defer keepalive.Stop()
		}
	}

	client := backend.NewClient(backend.Config{
		BaseURL:              cfg.Backend.BaseURL,
		WorkspaceID:          cfg.Backend.WorkspaceID,
		PromptTemplateID:     cfg.Backend.PromptTemplateID,
		GuestMode:            cfg.Credentials.GuestMode,
		RPCTimeout:           cfg.Backend.RPCTimeout,
		StreamReceiveTimeout: cfg.Backend.StreamReceiveTimeout,
	}, manager, collector)

	pool := sessionpool.New(client, sessionpool.Config{
		TargetSize:        cfg.Pool.TargetSize,
		ReplenishInterval: cfg.Pool.ReplenishInterval,
	}, collector)
	pool.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		pool.Stop(stopCtx)
	}()
	fmt.Printf("✓ Session pool started (target %d)\n", cfg.Pool.TargetSize)

	var recorder handlers.UsageRecorder
	if cfg.Usage.Enabled {
		usageStore, err := usage.NewStore(usage.StoreConfig{Path: cfg.Usage.Path})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open usage store: %w", err))
		}
		defer usageStore.Close()
		recorder = usageStore

		if cfg.Usage.PruneSchedule != "" {
			pruner := usage.NewPruner(usageStore, usage.PrunerConfig{
				RetentionDays: cfg.Usage.RetentionDays,
				Schedule:      cfg.Usage.PruneSchedule,
			})
			if err := pruner.Start(ctx); err != nil {
				slog.Warn("failed to start usage pruner", "error", err)
			} else {
				defer pruner.Stop()
			}
		}
		fmt.Println("✓ Usage store initialized")
	}

	chat := handlers.NewChatHandler(pool, client, recorder, collector)

	var metricsHandler http.Handler
	if collector != nil {
		metricsHandler = collector.Handler()
	}

	srv := server.NewServer(cfg.Server, server.Deps{
		Chat:       chat,
		Pool:       pool,
		Credential: manager,
		Metrics:    metricsHandler,
	})

	fmt.Println()
	fmt.Printf("✓ Listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Chat endpoint: http://%s/v1/chat/completions\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if metricsHandler != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func printBanner(cfg *config.Config) {
	fmt.Printf("H2Ogate v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("backend configured",
		"base_url", cfg.Backend.BaseURL,
		"workspace", cfg.Backend.WorkspaceID,
		"guest_mode", cfg.Credentials.GuestMode,
	)
}
