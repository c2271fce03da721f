package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"securecheck/internal/stops/models"
)

// InMemory is a mutex-guarded stop store with the same semantics as the
// Postgres store. Unit tests and local development run against it.
type InMemory struct {
	mu      sync.RWMutex
	records []models.StopRecord
	nextID  int64
}

// NewInMemory constructs an empty in-memory stop store.
func NewInMemory() *InMemory {
	return &InMemory{nextID: 1}
}

// EnsureSchema is a no-op for the in-memory store.
func (s *InMemory) EnsureSchema(_ context.Context) error { return nil }

// Reset drops all records, mirroring the Postgres store's ingestion reset.
func (s *InMemory) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.nextID = 1
	return nil
}

// BulkLoad appends records in input order with sequential ids.
func (s *InMemory) BulkLoad(_ context.Context, records []models.StopRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		rec.StopID = s.nextID
		s.nextID++
		s.records = append(s.records, rec)
	}
	return len(records), nil
}

// AppendOne inserts one record and returns the assigned stop_id.
func (s *InMemory) AppendOne(_ context.Context, rec models.StopRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.StopID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	return rec.StopID, nil
}

// CountStops reports the total number of records.
func (s *InMemory) CountStops(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// All returns a copy of every record in insertion order. Test helper.
func (s *InMemory) All() []models.StopRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StopRecord{}, s.records...)
}

// TopDrugVehicles ranks vehicles by drug-related stop count, descending,
// ties broken by vehicle number for a deterministic order.
func (s *InMemory) TopDrugVehicles(_ context.Context, limit int) ([]VehicleDrugCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, rec := range s.records {
		if rec.DrugsRelatedStop && rec.VehicleNumber != "" {
			counts[rec.VehicleNumber]++
		}
	}

	out := make([]VehicleDrugCount, 0, len(counts))
	for vehicle, count := range counts {
		out = append(out, VehicleDrugCount{VehicleNumber: vehicle, DrugStopCount: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DrugStopCount != out[j].DrugStopCount {
			return out[i].DrugStopCount > out[j].DrugStopCount
		}
		return out[i].VehicleNumber < out[j].VehicleNumber
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ArrestRateByAge reports the arrest percentage per age bracket, descending
// by rate. A bracket with no rows is absent; the zero-row degenerate case is
// covered by Rate for callers that compute over empty groups.
func (s *InMemory) ArrestRateByAge(_ context.Context) ([]BracketArrestRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	arrests := make(map[string]int64)
	for _, rec := range s.records {
		bracket := models.AgeBracket(rec.DriverAge)
		totals[bracket]++
		if rec.IsArrested {
			arrests[bracket]++
		}
	}

	out := make([]BracketArrestRate, 0, len(totals))
	for bracket, total := range totals {
		out = append(out, BracketArrestRate{
			AgeGroup:   bracket,
			ArrestRate: Rate(arrests[bracket], total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArrestRate != out[j].ArrestRate {
			return out[i].ArrestRate > out[j].ArrestRate
		}
		return out[i].AgeGroup < out[j].AgeGroup
	})
	return out, nil
}

// ViolationRisk reports search/arrest/combined percentages per violation.
func (s *InMemory) ViolationRisk(_ context.Context) ([]ViolationRisk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type tally struct {
		total    int64
		searches int64
		arrests  int64
	}
	tallies := make(map[string]*tally)
	for _, rec := range s.records {
		t := tallies[rec.Violation]
		if t == nil {
			t = &tally{}
			tallies[rec.Violation] = t
		}
		t.total++
		if rec.SearchConducted {
			t.searches++
		}
		if rec.IsArrested {
			t.arrests++
		}
	}

	out := make([]ViolationRisk, 0, len(tallies))
	for violation, t := range tallies {
		searchRate := Rate(t.searches, t.total)
		arrestRate := Rate(t.arrests, t.total)
		out = append(out, ViolationRisk{
			Violation:    violation,
			SearchRate:   searchRate,
			ArrestRate:   arrestRate,
			CombinedRate: (searchRate + arrestRate) / 2,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CombinedRate != out[j].CombinedRate {
			return out[i].CombinedRate > out[j].CombinedRate
		}
		return out[i].Violation < out[j].Violation
	})
	return out, nil
}

// Search returns records containing term in country_name or vehicle_number,
// newest first by (stop_date, stop_time, stop_id), capped at limit. Matching
// is case-sensitive to mirror the Postgres LIKE default.
func (s *InMemory) Search(_ context.Context, term string, limit int) ([]models.StopRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StopRecord
	for _, rec := range s.records {
		if strings.Contains(rec.CountryName, term) || strings.Contains(rec.VehicleNumber, term) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StopDate.Equal(out[j].StopDate) {
			return out[i].StopDate.After(out[j].StopDate)
		}
		if !out[i].StopTime.Equal(out[j].StopTime) {
			return out[i].StopTime.After(out[j].StopTime)
		}
		return out[i].StopID > out[j].StopID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
