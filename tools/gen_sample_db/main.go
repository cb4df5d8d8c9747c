// Generates a before/after sqlite pair for trying out the validator: an
// events table with a textual timestamp column, where the after snapshot has
// a fraction of the timestamps nulled out as if a cast had failed on them.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

func main() {
	var (
		beforePath string
		afterPath  string
		rows       int
		corrupt    float64
		seed       int64
	)
	flag.StringVar(&beforePath, "before", "./data/before.db", "output path for the before snapshot")
	flag.StringVar(&afterPath, "after", "./data/after.db", "output path for the after snapshot")
	flag.IntVar(&rows, "rows", 1000, "number of rows to generate")
	flag.Float64Var(&corrupt, "corrupt", 0.01, "fraction of rows whose timestamp goes null in the after snapshot")
	flag.Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	for _, p := range []string{beforePath, afterPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			fmt.Printf("create data dir failed: %v\n", err)
			return
		}
		os.Remove(p)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	corrupted := 0

	for _, out := range []struct {
		path    string
		isAfter bool
	}{{beforePath, false}, {afterPath, true}} {
		db, err := sql.Open("sqlite", out.path)
		if err != nil {
			fmt.Printf("open %s failed: %v\n", out.path, err)
			return
		}

		_, err = db.Exec(`
			CREATE TABLE events (
				pk INTEGER PRIMARY KEY,
				name TEXT,
				ts TEXT,
				updated_at TEXT
			)
		`)
		if err != nil {
			fmt.Printf("create table failed: %v\n", err)
			db.Close()
			return
		}

		stmt, err := db.Prepare("INSERT INTO events VALUES (?, ?, ?, ?)")
		if err != nil {
			fmt.Printf("prepare insert failed: %v\n", err)
			db.Close()
			return
		}

		// same seed per file so the two snapshots line up row for row
		rng := rand.New(rand.NewSource(seed))
		for i := 1; i <= rows; i++ {
			ts := base.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
			updated := base.Add(time.Duration(i) * time.Hour).Format("2006-01-02 15:04:05")

			var tsVal any = ts
			if out.isAfter && rng.Float64() < corrupt {
				// the conversion "failed" on this row
				tsVal = nil
				corrupted++
			}

			if _, err := stmt.Exec(i, fmt.Sprintf("event-%04d", i), tsVal, updated); err != nil {
				fmt.Printf("insert failed: %v\n", err)
				stmt.Close()
				db.Close()
				return
			}
		}
		stmt.Close()
		db.Close()
	}

	fmt.Printf("wrote %d rows to %s and %s (seed %d, %d timestamps nulled)\n",
		rows, beforePath, afterPath, seed, corrupted)
}
