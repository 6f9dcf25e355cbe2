package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperengineering/factsync"
	"github.com/spf13/cobra"
)

// maxFactColumn bounds the fact text shown in table output.
const maxFactColumn = 60

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError prints an error to w.
func outputError(w io.Writer, err error) {
	printError(w, "Error: %s", err)
}

// outputFacts prints facts as a table, newest first as given.
func outputFacts(cmd *cobra.Command, facts []factsync.Fact) error {
	if outputJSON {
		return outputAsJSON(cmd, facts)
	}

	out := cmd.OutOrStdout()
	if len(facts) == 0 {
		printWarning(out, "No facts cached.")
		printMuted(out, "Fetch some with: factsync fetch")
		return nil
	}

	rows := make([][]string, len(facts))
	for i, f := range facts {
		rows[i] = []string{
			f.ID,
			strconv.FormatInt(f.OrderingRank, 10),
			strconv.Itoa(f.Length),
			truncate(f.Text, maxFactColumn),
		}
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "RANK", "LENGTH", "FACT"}, rows))
	return nil
}

// outputFact prints a single fact.
func outputFact(cmd *cobra.Command, fact *factsync.Fact) error {
	if outputJSON {
		return outputAsJSON(cmd, fact)
	}

	out := cmd.OutOrStdout()
	printSuccess(out, "Created %s", fact.ID)
	printField(out, "Rank:", "%d", fact.OrderingRank)
	printField(out, "Length:", "%d", fact.Length)
	printField(out, "Fact:", "%s", fact.Text)
	return nil
}

// factsMarkdown renders facts as a numbered markdown list.
func factsMarkdown(facts []factsync.Fact) string {
	var b strings.Builder
	b.WriteString("# Cat facts\n\n")
	if len(facts) == 0 {
		b.WriteString("_No facts cached._\n")
		return b.String()
	}
	for i, f := range facts {
		fmt.Fprintf(&b, "%d. %s  \n   _rank %d, %d chars, `%s`_\n", i+1, f.Text, f.OrderingRank, f.Length, f.ID)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
