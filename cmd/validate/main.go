// Command validate compares a before/after table pair from the command line
// and prints the summary plus the offending rows.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"KanariaGo/internal/dataset"
	"KanariaGo/internal/validator"
)

var (
	driver      = flag.String("driver", "sqlite", "Database driver (sqlite or duckdb)")
	beforePath  = flag.String("before", "", "Database file with the pre-conversion table")
	afterPath   = flag.String("after", "", "Database file with the converted table (defaults to -before)")
	beforeTable = flag.String("before-table", "events", "Table name in the before database")
	afterTable  = flag.String("after-table", "", "Table name in the after database (defaults to -before-table)")
	primaryKey  = flag.String("pk", "pk", "Primary key column for matching rows")
	quiet       = flag.Bool("quiet", false, "Suppress the summary")
	fullRow     = flag.Bool("full", false, "Show all columns of the offending rows")
	limit       = flag.Int("limit", 20, "Max offending rows to print per side")
)

func main() {
	flag.Parse()

	if *beforePath == "" {
		fmt.Fprintln(os.Stderr, "usage: validate -before <db> [-after <db>] [-before-table t] [-pk col]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *afterTable == "" {
		*afterTable = *beforeTable
	}

	db, before, after, err := dataset.OpenPair(*driver, *beforePath, *afterPath, *beforeTable, *afterTable)
	if err != nil {
		log.Fatalf("open sources failed: %v", err)
	}
	defer db.Close()

	v, err := validator.New(before, after, *primaryKey, *quiet)
	if err != nil {
		log.Fatalf("validation failed: %v", err)
	}

	if v.BadRowCount() == 0 {
		fmt.Println("no rows gained nulls")
		return
	}

	original, err := v.OriginalProblemRows(*fullRow)
	if err != nil {
		log.Fatalf("original problem rows failed: %v", err)
	}
	converted, err := v.ConvertedProblemRows(*fullRow)
	if err != nil {
		log.Fatalf("converted problem rows failed: %v", err)
	}

	printRows("original", original)
	printRows("converted", converted)
}

func printRows(side string, d dataset.Dataset) {
	rows, err := d.Collect()
	if err != nil {
		log.Fatalf("collect %s rows failed: %v", side, err)
	}

	cols := d.Columns()
	fmt.Printf("\n%s problem rows (%d):\n", side, len(rows))
	for i, r := range rows {
		if i >= *limit {
			fmt.Printf("  ... %d more\n", len(rows)-*limit)
			break
		}
		fmt.Print(" ")
		for _, c := range cols {
			val := r[c]
			if val == nil {
				val = "NULL"
			}
			fmt.Printf(" %s=%v", c, val)
		}
		fmt.Println()
	}
}
