package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached facts, newest first",
	Long: `List the facts in the local cache in feed order (highest rank first).

Example:
  factsync list
  factsync list --limit 50 --json
  factsync list --pretty`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listLimit  int
	listPretty bool
)

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of facts")
	listCmd.Flags().BoolVar(&listPretty, "pretty", false, "Render as markdown")

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	facts, err := client.Facts(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("list facts: %w", err)
	}

	if listPretty && !outputJSON {
		fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(factsMarkdown(facts)))
		return nil
	}
	return outputFacts(cmd, facts)
}
