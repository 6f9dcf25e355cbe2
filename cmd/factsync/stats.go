package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long: `Display statistics about the local fact cache.

Example:
  factsync stats
  factsync stats --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	stats, err := client.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if outputJSON {
		return outputAsJSON(cmd, stats)
	}

	out := cmd.OutOrStdout()
	cfg := client.Config()

	printInfo(out, "Local Cache Statistics")
	fmt.Fprintln(out)
	printField(out, "Environment:", "%s", cfg.Environment)
	printField(out, "Database:", "%s", cfg.LocalPath)
	printField(out, "Fact count:", "%d", stats.Store.FactCount)
	if stats.Store.FactCount > 0 {
		printField(out, "Newest rank:", "%d (%s)", stats.Store.NewestRank,
			time.Unix(stats.Store.NewestRank, 0).UTC().Format(time.RFC3339))
	}
	printField(out, "Schema version:", "%s", stats.Store.SchemaVersion)
	if stats.Offline {
		printField(out, "Remote:", "offline")
	} else {
		printField(out, "Remote:", "%s", cfg.BaseURL)
	}
	return nil
}
