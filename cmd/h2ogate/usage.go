package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/h2ogate/h2ogate/pkg/cli"
	"github.com/h2ogate/h2ogate/pkg/config"
	"github.com/h2ogate/h2ogate/pkg/usage"
)

var usageFlags struct {
	limit  int
	output string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect recorded turn usage",
	Long:  `Query the usage database for recorded chat turns.`,
}

var usageRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent turns",
	Long: `Show the most recently recorded chat turns, newest first.

Examples:
  # Last 10 turns as a table
  h2ogate usage recent

  # Last 50 turns as JSON
  h2ogate usage recent --limit 50 --output json`,
	RunE: runUsageRecent,
}

var usageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage totals",
	RunE:  runUsageStats,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageRecentCmd)
	usageCmd.AddCommand(usageStatsCmd)

	usageCmd.PersistentFlags().StringVarP(&usageFlags.output, "output", "o", "text", "output format (text, json, csv)")
	usageRecentCmd.Flags().IntVar(&usageFlags.limit, "limit", 10, "maximum number of turns to show")
}

func openUsageStore() (*usage.Store, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	store, err := usage.NewStore(usage.StoreConfig{Path: cfg.Usage.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage store: %w", err)
	}
	return store, nil
}

func runUsageRecent(cmd *cobra.Command, args []string) error {
	store, err := openUsageStore()
	if err != nil {
		return cli.NewCommandError("usage recent", err)
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), usageFlags.limit)
	if err != nil {
		return cli.NewCommandError("usage recent", err)
	}

	formatter := cli.NewFormatter(cli.OutputFormat(usageFlags.output))
	return formatter.FormatTo(os.Stdout, turnTable(records))
}

func runUsageStats(cmd *cobra.Command, args []string) error {
	store, err := openUsageStore()
	if err != nil {
		return cli.NewCommandError("usage stats", err)
	}
	defer store.Close()

	count, err := store.Count(cmd.Context())
	if err != nil {
		return cli.NewCommandError("usage stats", err)
	}

	formatter := cli.NewFormatter(cli.OutputFormat(usageFlags.output))
	return formatter.FormatTo(os.Stdout, map[string]int64{"total_turns": count})
}

// turnTable renders turn records as rows for text and CSV output.
type turnTable []*usage.TurnRecord

func (t turnTable) Headers() []string {
	return []string{"created_at", "model", "mode", "outcome", "tokens", "duration_ms", "session_id"}
}

func (t turnTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.CreatedAt.Format(time.RFC3339),
			r.Model,
			r.Mode,
			r.Outcome,
			strconv.Itoa(r.TotalTokens),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.SessionID,
		})
	}
	return rows
}
