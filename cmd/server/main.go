// Command server runs the long-lived stop-ledger service: it opens storage
// once, ensures the schema, and answers insert and query requests until
// shut down. Business logic lives in the internal/stops packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	httpapi "securecheck/internal/http"
	"securecheck/internal/platform/config"
	"securecheck/internal/platform/httpserver"
	"securecheck/internal/platform/logger"
	"securecheck/internal/stops/catalog"
	"securecheck/internal/stops/handler"
	stopsmetrics "securecheck/internal/stops/metrics"
	"securecheck/internal/stops/service"
	"securecheck/internal/stops/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	st := store.NewPostgres(db)
	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	metrics := stopsmetrics.New()
	svc := service.New(st, catalog.New(), log, service.WithMetrics(metrics))
	h := handler.New(svc, log)
	router := httpapi.NewRouter(h, st, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting securecheck ledger", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
