package main

import (
	"context"
	"fmt"

	"github.com/hyperengineering/factsync"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch pages from the remote feed",
	Long: `Fetch the first page of the remote feed into the local cache, then keep
loading following pages until --pages pages have been fetched or the feed
has no more.

Server and network failures are retried with exponential backoff up to
--retries times per page. Client errors (4xx) are not retried.

Example:
  factsync fetch
  factsync fetch --pages 3 --page-size 50
  factsync fetch --retries 5 --json`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var (
	fetchPages    int
	fetchPageSize int
	fetchRetries  int
)

func init() {
	fetchCmd.Flags().IntVar(&fetchPages, "pages", 1, "Number of pages to fetch")
	fetchCmd.Flags().IntVar(&fetchPageSize, "page-size", 0, "Facts per page (default: configured page size)")
	fetchCmd.Flags().IntVar(&fetchRetries, "retries", 2, "Retries per page for server and network errors")

	rootCmd.AddCommand(fetchCmd)
}

// FetchResult for JSON output.
type FetchResult struct {
	Fetched int                  `json:"fetched"`
	Pages   int                  `json:"pages"`
	Cursor  factsync.CursorState `json:"cursor"`
	Facts   []factsync.Fact      `json:"facts"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchPages < 1 {
		return fmt.Errorf("--pages must be at least 1")
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	if client.Offline() {
		return fmt.Errorf("fetch: %w (set --base-url or FACTSYNC_BASE_URL)", factsync.ErrOffline)
	}

	ctx := cmd.Context()
	result := FetchResult{Facts: []factsync.Fact{}}

	for page := 0; page < fetchPages; page++ {
		load := client.FetchNextPage
		if page == 0 {
			load = client.FetchFirstPage
		} else if !client.HasMore() {
			break
		}

		var facts []factsync.Fact
		err := runWithSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Fetching page %d", page+1), func() error {
			return withRetry(ctx, fetchRetries, func(ctx context.Context) error {
				var err error
				facts, err = load(ctx, fetchPageSize)
				return err
			})
		})
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page+1, err)
		}

		result.Pages++
		result.Fetched += len(facts)
		result.Facts = append(result.Facts, facts...)
	}
	result.Cursor, _ = client.Cursor()

	if outputJSON {
		return outputAsJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Fetched %d facts in %d page(s)", result.Fetched, result.Pages)
	if result.Cursor == factsync.CursorHasMore {
		printMuted(out, "More pages available.")
	} else {
		printMuted(out, "Feed exhausted.")
	}
	return nil
}
