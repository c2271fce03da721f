// Package httpapi wires the public router: ledger endpoints, health, and
// prometheus metrics.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"securecheck/internal/platform/middleware"
	"securecheck/internal/stops/handler"
	"securecheck/internal/stops/store"
	"securecheck/pkg/platform/httputil"
)

// NewRouter assembles the chi router with the standard middleware stack.
func NewRouter(h *handler.Handler, st store.Store, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))

	h.Register(r)

	r.Get("/healthz", handleHealth(st))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := st.CountStops(r.Context())
		if err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"stops":  count,
		})
	}
}
