package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/h2ogate/h2ogate/pkg/cli"
	"github.com/h2ogate/h2ogate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, including environment
variable overrides, without starting the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}

		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  backend: %s\n", cfg.Backend.BaseURL)
		fmt.Printf("  guest mode: %t\n", cfg.Credentials.GuestMode)
		fmt.Printf("  pool target: %d\n", cfg.Pool.TargetSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
