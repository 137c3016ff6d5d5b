package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/models"
)

// Batch catalog import for operators who prefer running the reconciliation
// from a shell instead of the upload endpoint.
func main() {
	path := flag.String("file", "", "Required: path to the catalog .xlsx")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "--file is required")
		os.Exit(1)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open %s: %v\n", *path, err)
		os.Exit(1)
	}
	defer f.Close()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	summary, err := models.ImportCatalogFromXlsx(context.Background(), f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("added=%d updated=%d deactivated=%d reactivated=%d active=%d in_file=%d skipped=%d\n",
		summary.Added, summary.Updated, summary.Deactivated, summary.Reactivated,
		summary.TotalActive, summary.TotalInFile, summary.SkippedRows)
	for dept, count := range summary.DepartmentCounts {
		fmt.Printf("  department %d: %d items\n", dept, count)
	}
}
