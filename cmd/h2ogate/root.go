package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "h2ogate",
	Short: "H2Ogate - OpenAI-compatible gateway for H2OGPTE",
	Long: `H2Ogate is an HTTP gateway that exposes a H2OGPTE deployment through
the OpenAI chat completions API.

It provides:
  - /v1/chat/completions in streaming and non-streaming modes
  - Automatic guest credential provisioning and renewal
  - A pre-warmed pool of backend chat sessions
  - Turn usage recording with scheduled retention pruning
  - Prometheus metrics and structured logging`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
