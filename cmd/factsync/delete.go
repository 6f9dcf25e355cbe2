package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete cached facts by id",
	Long: `Delete one or more facts from the local cache. Unknown ids are ignored.

Example:
  factsync delete 01J9Z3Q4N8T7W2X5Y6Z7A8B9C0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached fact",
	Long: `Delete every fact from the local cache. Requires --confirm.

Example:
  factsync clear --confirm`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var clearConfirm bool

func init() {
	clearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "Confirm deletion (required)")

	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
}

// DeleteResult for JSON output.
type DeleteResult struct {
	Deleted int `json:"deleted"`
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	n, err := client.Delete(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return outputDeleted(cmd, n)
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearConfirm {
		return fmt.Errorf("clear removes every cached fact; pass --confirm to proceed")
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer closeClient(client)

	n, err := client.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return outputDeleted(cmd, n)
}

func outputDeleted(cmd *cobra.Command, n int) error {
	if outputJSON {
		return outputAsJSON(cmd, DeleteResult{Deleted: n})
	}
	if n == 0 {
		printWarning(cmd.OutOrStdout(), "Nothing deleted.")
		return nil
	}
	printSuccess(cmd.OutOrStdout(), "Deleted %d fact(s)", n)
	return nil
}
