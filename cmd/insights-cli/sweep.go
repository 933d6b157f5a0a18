package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/case-insights/internal/sweeper"
)

// sweep flags
var (
	sweepLiveFlag         bool
	sweepGraceWindowFlag  time.Duration
	sweepMaxDeletionsFlag int
	sweepExcludeFlag      []string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove incomplete cases past the grace window",
	Long: `Sweep runs the same cleanup logic as the scheduled Lambda, from a
workstation. Dry-run is the default; pass --live to actually delete.`,
	Run: runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepLiveFlag, "live", false, "Perform deletions (default is dry run)")
	sweepCmd.Flags().DurationVar(&sweepGraceWindowFlag, "grace-window", 24*time.Hour, "Minimum age of incomplete cases before deletion")
	sweepCmd.Flags().IntVar(&sweepMaxDeletionsFlag, "max-deletions", 1000, "Deletion cap for this run")
	sweepCmd.Flags().StringSliceVar(&sweepExcludeFlag, "exclude", nil, "Account IDs to skip")
}

func runSweep(cmd *cobra.Command, args []string) {
	ctx, store, statuses := initStores(true)

	sw := &sweeper.Sweeper{
		Store:  store,
		Ledger: statuses,
		Config: sweeper.Config{
			GraceWindow:      sweepGraceWindowFlag,
			MaxDeletions:     sweepMaxDeletionsFlag,
			ExcludedAccounts: sweepExcludeFlag,
			DryRun:           !sweepLiveFlag,
		},
	}

	summary, err := sw.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mode := "DRY RUN"
	if sweepLiveFlag {
		mode = "LIVE"
	}
	fmt.Printf("Cleanup (%s): %d accounts, %d cases scanned, %d removed, %d errors in %s\n",
		mode, summary.AccountsProcessed, summary.CasesScanned, summary.CasesRemoved,
		summary.Errors, summary.Duration.Round(time.Millisecond))
	if summary.Errors > 0 {
		os.Exit(1)
	}
}
