package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/case-insights/internal/export"
)

// export flags
var (
	exportOutFlag      string
	exportAccountsFlag []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Bundle processed cases into a zstd-compressed ZIP archive",
	Run:   runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutFlag, "out", "o", "", "Output archive path")
	exportCmd.Flags().StringSliceVarP(&exportAccountsFlag, "account", "a", nil, "Account IDs to export (default: all)")
}

func runExport(cmd *cobra.Command, args []string) {
	requireFlag(cmd, "out", exportOutFlag)
	ctx, store, _ := initStores(false)

	f, err := os.Create(exportOutFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	e := &export.Exporter{Store: store}
	count, err := e.WriteArchive(ctx, f, exportAccountsFlag)
	closeErr := f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", closeErr)
		os.Exit(1)
	}

	fmt.Printf("Exported %d processed cases to %s\n", count, exportOutFlag)
}
