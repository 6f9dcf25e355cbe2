package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hyperengineering/factsync"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the live feed as it changes",
	Long: `Subscribe to the local cache and print the newest facts every time the
cache changes, until interrupted.

With --fetch, the feed is loaded from the remote source page by page while
the subscription prints each new snapshot.

Example:
  factsync watch
  factsync watch --limit 5 --fetch
  factsync watch --count 1 --json`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	watchLimit int
	watchFetch bool
	watchCount int
)

func init() {
	watchCmd.Flags().IntVar(&watchLimit, "limit", 10, "Facts per snapshot")
	watchCmd.Flags().BoolVar(&watchFetch, "fetch", false, "Load every remote page while watching")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "Exit after this many snapshots (0: until interrupted)")

	rootCmd.AddCommand(watchCmd)
}

// WatchSnapshot for JSON output; one object per line.
type WatchSnapshot struct {
	At    time.Time       `json:"at"`
	Facts []factsync.Fact `json:"facts"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	if watchFetch && client.Offline() {
		return fmt.Errorf("watch: %w (set --base-url or FACTSYNC_BASE_URL)", factsync.ErrOffline)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	sub, err := client.LiveFeed(gctx, watchLimit)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	g.Go(func() error {
		seen := 0
		for facts := range sub.Updates() {
			if err := printSnapshot(cmd, facts); err != nil {
				return err
			}
			seen++
			if watchCount > 0 && seen >= watchCount {
				cancel()
				return nil
			}
		}
		return nil
	})

	if watchFetch {
		g.Go(func() error {
			err := loadAllPages(gctx, client)
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// loadAllPages fetches the first page and then every following page.
func loadAllPages(ctx context.Context, client *factsync.Client) error {
	if _, err := client.FetchFirstPage(ctx, 0); err != nil {
		return fmt.Errorf("fetch first page: %w", err)
	}
	for client.HasMore() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := client.FetchNextPage(ctx, 0); err != nil {
			return fmt.Errorf("fetch next page: %w", err)
		}
	}
	return nil
}

func printSnapshot(cmd *cobra.Command, facts []factsync.Fact) error {
	if outputJSON {
		return outputAsJSON(cmd, WatchSnapshot{At: time.Now().UTC(), Facts: facts})
	}

	out := cmd.OutOrStdout()
	printInfo(out, "%s: %d facts", time.Now().Format(time.TimeOnly), len(facts))
	return outputFacts(cmd, facts)
}
