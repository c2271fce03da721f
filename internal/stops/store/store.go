// Package store persists vehicle-stop records and serves the fixed aggregate
// reads behind the query catalog.
package store

import (
	"context"

	"securecheck/internal/stops/models"
)

// DefaultSearchLimit caps the record-search result set at the most recent
// matches.
const DefaultSearchLimit = 50

// VehicleDrugCount is one row of the drug-related vehicle ranking.
type VehicleDrugCount struct {
	VehicleNumber string
	DrugStopCount int64
}

// BracketArrestRate is one row of the arrest-rate-by-age report. Rates are
// percentages in [0, 100].
type BracketArrestRate struct {
	AgeGroup   string
	ArrestRate float64
}

// ViolationRisk is one row of the violation risk ranking. CombinedRate is the
// unweighted mean of SearchRate and ArrestRate.
type ViolationRisk struct {
	Violation    string
	SearchRate   float64
	ArrestRate   float64
	CombinedRate float64
}

// Store is interface-driven so the ledger service and the catalog stay
// testable against the in-memory implementation without rewiring.
//
// The ledger is append-only: records are never updated or deleted, and a
// stop_id is assigned exactly once at persistence time.
type Store interface {
	// EnsureSchema idempotently creates the traffic_stops table if absent.
	// Safe to call on every process start.
	EnsureSchema(ctx context.Context) error

	// BulkLoad appends already-normalized records in input order, assigning
	// sequential stop_ids from row position. Returns the number of rows
	// loaded.
	BulkLoad(ctx context.Context, records []models.StopRecord) (int, error)

	// AppendOne inserts exactly one already-normalized record and returns the
	// assigned stop_id. This is the only mutation path available to live
	// traffic.
	AppendOne(ctx context.Context, record models.StopRecord) (int64, error)

	// CountStops reports the total number of persisted records.
	CountStops(ctx context.Context) (int64, error)

	// TopDrugVehicles ranks vehicles by drug-related stop count, descending,
	// capped at limit. Vehicles never seen in a drug-related stop are absent.
	TopDrugVehicles(ctx context.Context, limit int) ([]VehicleDrugCount, error)

	// ArrestRateByAge reports the arrest percentage per age bracket,
	// descending by rate.
	ArrestRateByAge(ctx context.Context) ([]BracketArrestRate, error)

	// ViolationRisk reports search/arrest/combined percentages per violation,
	// descending by combined rate.
	ViolationRisk(ctx context.Context) ([]ViolationRisk, error)

	// Search returns records whose country_name or vehicle_number contains
	// term, newest first by (stop_date, stop_time), capped at limit. Matching
	// is case-sensitive (the Postgres LIKE default).
	Search(ctx context.Context, term string, limit int) ([]models.StopRecord, error)
}

// Rate computes (trueCount / total) * 100 as a real-number division. A group
// with zero rows reports 0.0.
func Rate(trueCount, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(trueCount) * 100 / float64(total)
}
