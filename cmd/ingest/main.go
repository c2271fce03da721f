// Command ingest performs the one-time dataset load: read the CSV, normalize
// it, create the schema, and bulk-append every row. A parse failure aborts
// the whole batch before anything is written.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	_ "github.com/lib/pq"

	"securecheck/internal/ingest"
	"securecheck/internal/platform/config"
	"securecheck/internal/platform/logger"
	"securecheck/internal/stops/store"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the traffic_stops table before loading")
	flag.Parse()

	cfg := config.FromEnv()
	log := logger.New()

	path := cfg.DatasetPath
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	st := store.NewPostgres(db)
	if *reset {
		if err := st.Reset(ctx); err != nil {
			log.Error("reset schema", "error", err)
			os.Exit(1)
		}
		log.Info("existing table dropped")
	}

	n, err := ingest.Run(ctx, st, path, log)
	if err != nil {
		log.Error("ingestion aborted", "error", err)
		os.Exit(1)
	}

	log.Info("ingestion complete", "rows", n)
}
