package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/epicdata/stockroom_backend/config"
	"github.com/epicdata/stockroom_backend/models"
	"github.com/shopspring/decimal"
)

// Zeroes every permanent reservation, the same post-import invariant the
// reconciliation engine applies, for when reservations drift out of sync
// with a manual stock count.
func main() {
	dryRun := flag.Bool("dry-run", true, "Show affected counts only (no writes)")
	confirm := flag.String("confirm", "", "Type RESET to proceed when dry-run=false")
	flag.Parse()

	if !*dryRun && strings.TrimSpace(*confirm) != "RESET" {
		fmt.Fprintln(os.Stderr, "set --confirm=RESET to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	var reserved int64
	if err := db.Model(&models.Product{}).Where("reserved > 0").Count(&reserved).Error; err != nil {
		fmt.Fprintf(os.Stderr, "count failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("products with non-zero reservation: %d\n", reserved)

	if *dryRun {
		fmt.Println("dry run; nothing written")
		return
	}

	res := db.Model(&models.Product{}).Where("reserved > 0").Update("reserved", decimal.Zero)
	if res.Error != nil {
		fmt.Fprintf(os.Stderr, "reset failed: %v\n", res.Error)
		os.Exit(1)
	}
	fmt.Printf("reset %d reservations\n", res.RowsAffected)
}
