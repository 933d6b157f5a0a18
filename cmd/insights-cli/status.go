package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/case-insights/internal/ledger"
)

var statusAccountFlag string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-case pipeline states for an account",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusAccountFlag, "account", "a", "", "Account ID to inspect")
}

func runStatus(cmd *cobra.Command, args []string) {
	requireFlag(cmd, "account", statusAccountFlag)
	ctx, store, statuses := initStores(true)

	entries, err := statuses.ListByAccount(ctx, statusAccountFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	processed, err := store.ListProcessedCaseIDs(ctx, statusAccountFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Printf("No tracked cases for account %s\n", statusAccountFlag)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tSTATE\tUPDATED\tPROCESSED")
	for _, e := range entries {
		done := "no"
		if processed[e.CaseID] {
			done = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CaseID, e.State, e.UpdatedAt.Format(time.RFC3339), done)
	}
	w.Flush()

	fmt.Printf("\n%d tracked cases, %d processed\n", len(entries), countComplete(entries, processed))
}

func countComplete(entries []*ledger.Entry, processed map[string]bool) int {
	n := 0
	for _, e := range entries {
		if processed[e.CaseID] {
			n++
		}
	}
	return n
}
