// Package handler wires the stop-ledger endpoints to the ledger service. It
// delegates to the service without embedding business logic so transport
// concerns stay isolated.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"securecheck/internal/stops/catalog"
	"securecheck/internal/stops/service"
	"securecheck/pkg/platform/httputil"
	"securecheck/pkg/requestcontext"
)

// Service defines the ledger operations the handler depends on.
type Service interface {
	InsertRecord(ctx context.Context, req service.InsertRequest) (int64, error)
	RunQuery(ctx context.Context, key, term string) (*catalog.Table, error)
	Queries() []catalog.Info
}

// Handler is the thin HTTP layer over the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a stops handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/stops", h.HandleInsert)
	r.Get("/queries", h.HandleListQueries)
	r.Get("/queries/{key}", h.HandleRunQuery)
}

// HandleInsert handles POST /stops.
func (h *Handler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[InsertStopRequest](w, r, h.logger)
	if !ok {
		return
	}

	domainReq, err := req.ToServiceRequest()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	stopID, err := h.service.InsertRecord(ctx, domainReq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, InsertStopResponse{StopID: stopID})
}

// HandleListQueries handles GET /queries.
func (h *Handler) HandleListQueries(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Queries())
}

// HandleRunQuery handles GET /queries/{key}. The optional term query
// parameter feeds the parameterized record search.
func (h *Handler) HandleRunQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")
	term := r.URL.Query().Get("term")

	table, err := h.service.RunQuery(ctx, key, term)
	if err != nil {
		h.logger.WarnContext(ctx, "query rejected",
			"request_id", requestcontext.RequestID(ctx),
			"query", key,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, table)
}
