// Package service orchestrates the stop ledger: single-record inserts from
// the UI collaborator and named catalog queries. It owns validation and field
// derivation so the transport and store stay free of business rules.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"securecheck/internal/stops/catalog"
	stopsmetrics "securecheck/internal/stops/metrics"
	"securecheck/internal/stops/models"
	"securecheck/internal/stops/store"
	dErrors "securecheck/pkg/domain-errors"
	"securecheck/pkg/platform/sentinel"
	"securecheck/pkg/requestcontext"
)

// Service exposes the two ledger operations to external callers.
type Service struct {
	store   store.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
	metrics *stopsmetrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithMetrics attaches prometheus metrics to the service.
func WithMetrics(m *stopsmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the ledger service.
func New(st store.Store, cat *catalog.Catalog, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   st,
		catalog: cat,
		logger:  logger,
		tracer:  otel.Tracer("securecheck/stops"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertRequest carries the fields collected by the UI collaborator for one
// new stop record. StopDate and StopTime default to the request time when
// zero, matching the entry form's behavior.
type InsertRequest struct {
	StopDate         time.Time
	StopTime         time.Time
	CountryName      string
	DriverGender     string
	DriverAge        int
	DriverRace       string
	Violation        string
	ViolationRaw     string
	SearchConducted  bool
	SearchType       string
	StopOutcome      string
	IsArrested       bool
	StopDuration     string
	DrugsRelatedStop bool
	VehicleNumber    string
}

// InsertRecord validates the request, derives dependent fields, and appends
// exactly one record. Returns the storage-assigned stop_id.
func (s *Service) InsertRecord(ctx context.Context, req InsertRequest) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "stops.InsertRecord")
	defer span.End()

	if err := validateInsert(req); err != nil {
		s.incrementInsertFailures()
		return 0, err
	}

	rec := buildRecord(ctx, req)
	stopID, err := s.store.AppendOne(ctx, rec)
	if err != nil {
		s.incrementInsertFailures()
		s.logger.ErrorContext(ctx, "stop insert failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.Wrap(err, dErrors.CodeConflict, "stop record rejected by storage constraint")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist stop record")
	}

	s.incrementStopsLogged()
	s.logger.InfoContext(ctx, "stop logged",
		"request_id", requestcontext.RequestID(ctx),
		"stop_id", stopID,
		"violation", rec.Violation,
	)
	return stopID, nil
}

// RunQuery executes the named catalog entry, binding term for the
// parameterized search. Unknown names fail with a not_found error.
func (s *Service) RunQuery(ctx context.Context, key, term string) (*catalog.Table, error) {
	ctx, span := s.tracer.Start(ctx, "stops.RunQuery")
	defer span.End()

	start := time.Now()
	table, err := s.catalog.Run(ctx, s.store, key, term)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.ErrorContext(ctx, "query execution failed",
				"request_id", requestcontext.RequestID(ctx),
				"query", key,
				"error", err,
			)
		}
		return nil, err
	}

	s.observeQuery(key, start)
	s.logger.InfoContext(ctx, "query executed",
		"request_id", requestcontext.RequestID(ctx),
		"query", key,
		"rows", len(table.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return table, nil
}

// Queries lists the available catalog entries for presentation.
func (s *Service) Queries() []catalog.Info {
	return s.catalog.List()
}

func validateInsert(req InsertRequest) error {
	missing := make([]string, 0, 6)
	if strings.TrimSpace(req.CountryName) == "" {
		missing = append(missing, models.FieldCountryName)
	}
	if strings.TrimSpace(req.Violation) == "" {
		missing = append(missing, models.FieldViolation)
	}
	if strings.TrimSpace(req.StopOutcome) == "" {
		missing = append(missing, models.FieldStopOutcome)
	}
	if strings.TrimSpace(req.DriverGender) == "" {
		missing = append(missing, models.FieldDriverGender)
	}
	if req.DriverAge == 0 {
		missing = append(missing, models.FieldDriverAge)
	}
	if strings.TrimSpace(req.StopDuration) == "" {
		missing = append(missing, models.FieldStopDuration)
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeBadRequest, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// buildRecord derives dependent fields: search_type follows search_conducted,
// driver_race and vehicle_number default to Unknown, violation_raw falls back
// to the cleaned violation, and gender is reduced to its single-letter code.
func buildRecord(ctx context.Context, req InsertRequest) models.StopRecord {
	now := requestcontext.Now(ctx)

	stopDate := req.StopDate
	if stopDate.IsZero() {
		stopDate = now
	}
	stopTime := req.StopTime
	if stopTime.IsZero() {
		stopTime = now
	}

	searchType := strings.TrimSpace(req.SearchType)
	if !req.SearchConducted {
		searchType = models.SearchTypeNone
	} else if searchType == "" {
		searchType = models.SearchTypeVehicle
	}

	race := strings.TrimSpace(req.DriverRace)
	if race == "" {
		race = models.UnknownRace
	}
	vehicle := strings.TrimSpace(req.VehicleNumber)
	if vehicle == "" {
		vehicle = models.UnknownVehicle
	}
	violationRaw := strings.TrimSpace(req.ViolationRaw)
	if violationRaw == "" {
		violationRaw = req.Violation
	}

	gender := strings.ToUpper(strings.TrimSpace(req.DriverGender))
	if len(gender) > 1 {
		gender = gender[:1]
	}

	return models.StopRecord{
		StopDate:         stopDate,
		StopTime:         stopTime,
		CountryName:      strings.TrimSpace(req.CountryName),
		DriverGender:     gender,
		DriverAge:        req.DriverAge,
		DriverRace:       race,
		Violation:        strings.TrimSpace(req.Violation),
		ViolationRaw:     violationRaw,
		SearchConducted:  req.SearchConducted,
		SearchType:       searchType,
		StopOutcome:      strings.TrimSpace(req.StopOutcome),
		IsArrested:       req.IsArrested,
		StopDuration:     strings.TrimSpace(req.StopDuration),
		DrugsRelatedStop: req.DrugsRelatedStop,
		VehicleNumber:    vehicle,
	}
}

func (s *Service) incrementStopsLogged() {
	if s.metrics != nil {
		s.metrics.IncrementStopsLogged()
	}
}

func (s *Service) incrementInsertFailures() {
	if s.metrics != nil {
		s.metrics.IncrementInsertFailures()
	}
}

func (s *Service) observeQuery(key string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveQuery(key, start)
	}
}
