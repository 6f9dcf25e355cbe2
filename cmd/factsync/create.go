package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/factsync"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Add one random fact to the cache",
	Long: `Fetch a single random fact from the remote feed and store it at the top
of the local cache.

Example:
  factsync create
  factsync create --json`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var createRetries int

func init() {
	createCmd.Flags().IntVar(&createRetries, "retries", 2, "Retries for server and network errors")

	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	if client.Offline() {
		return fmt.Errorf("create: %w (set --base-url or FACTSYNC_BASE_URL)", factsync.ErrOffline)
	}

	var fact *factsync.Fact
	err = runWithSpinner(cmd.ErrOrStderr(), "Fetching a random fact", func() error {
		return withRetry(cmd.Context(), createRetries, func(ctx context.Context) error {
			var err error
			fact, err = client.CreateOne(ctx)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	return outputFact(cmd, fact)
}
