// Package catalog is the fixed set of named report computations exposed to
// callers. Each entry shapes a store read into a tabular result the UI
// collaborator can render without knowing the underlying query.
package catalog

import (
	"context"
	"fmt"

	"securecheck/internal/stops/models"
	"securecheck/internal/stops/store"
	dErrors "securecheck/pkg/domain-errors"
)

// Catalog entry keys. Keys are stable wire values; titles are presentation.
const (
	KeyTopDrugVehicles = "top-drug-vehicles"
	KeyArrestRateByAge = "arrest-rate-by-age"
	KeyViolationRisk   = "violation-risk"
	KeyRecordSearch    = "record-search"
)

// TopVehiclesLimit caps the drug-related vehicle ranking.
const TopVehiclesLimit = 10

// Table is a structured tabular result: column names plus typed row values,
// ready for rendering.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Info describes a catalog entry for presentation.
type Info struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	TakesTerm bool   `json:"takes_term"`
}

type entry struct {
	info Info
	run  func(ctx context.Context, st store.Store, term string) (*Table, error)
}

// Catalog maps query keys to report computations over a Store.
type Catalog struct {
	entries map[string]entry
	order   []string
}

// New builds the fixed catalog. The entry set never changes at runtime.
func New() *Catalog {
	c := &Catalog{entries: make(map[string]entry)}
	c.register(Info{Key: KeyTopDrugVehicles, Title: "Top 10 Vehicles in Drug-Related Stops"}, runTopDrugVehicles)
	c.register(Info{Key: KeyArrestRateByAge, Title: "Arrest Rate by Driver Age Group"}, runArrestRateByAge)
	c.register(Info{Key: KeyViolationRisk, Title: "Violations with High Search/Arrest Rates"}, runViolationRisk)
	c.register(Info{Key: KeyRecordSearch, Title: "Search Logs by Country or Vehicle", TakesTerm: true}, runRecordSearch)
	return c
}

func (c *Catalog) register(info Info, run func(context.Context, store.Store, string) (*Table, error)) {
	c.entries[info.Key] = entry{info: info, run: run}
	c.order = append(c.order, info.Key)
}

// List returns the available entries in registration order.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key].info)
	}
	return out
}

// Run executes the named entry against the store. An unknown key fails with
// a not_found error and never falls back to a default query; a storage
// failure surfaces as an internal error for the transport to envelope.
func (c *Catalog) Run(ctx context.Context, st store.Store, key, term string) (*Table, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown query %q", key))
	}
	table, err := e.run(ctx, st, term)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query execution failed")
	}
	return table, nil
}

func runTopDrugVehicles(ctx context.Context, st store.Store, _ string) (*Table, error) {
	rows, err := st.TopDrugVehicles(ctx, TopVehiclesLimit)
	if err != nil {
		return nil, err
	}
	table := &Table{Columns: []string{"vehicle_number", "drug_stop_count"}, Rows: [][]any{}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []any{row.VehicleNumber, row.DrugStopCount})
	}
	return table, nil
}

func runArrestRateByAge(ctx context.Context, st store.Store, _ string) (*Table, error) {
	rows, err := st.ArrestRateByAge(ctx)
	if err != nil {
		return nil, err
	}
	table := &Table{Columns: []string{"age_group", "arrest_rate_percentage"}, Rows: [][]any{}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []any{row.AgeGroup, row.ArrestRate})
	}
	return table, nil
}

func runViolationRisk(ctx context.Context, st store.Store, _ string) (*Table, error) {
	rows, err := st.ViolationRisk(ctx)
	if err != nil {
		return nil, err
	}
	table := &Table{Columns: []string{"violation", "search_rate", "arrest_rate", "combined_rate"}, Rows: [][]any{}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []any{row.Violation, row.SearchRate, row.ArrestRate, row.CombinedRate})
	}
	return table, nil
}

func runRecordSearch(ctx context.Context, st store.Store, term string) (*Table, error) {
	records, err := st.Search(ctx, term, store.DefaultSearchLimit)
	if err != nil {
		return nil, err
	}
	table := &Table{
		Columns: []string{
			"stop_id", "stop_date", "stop_time", "country_name",
			"vehicle_number", "violation", "stop_outcome", "is_arrested",
			"drugs_related_stop",
		},
		Rows: [][]any{},
	}
	for _, rec := range records {
		table.Rows = append(table.Rows, []any{
			rec.StopID,
			rec.StopDate.Format(models.StopDateFormat),
			rec.StopTime.Format(models.StopTimeFormat),
			rec.CountryName,
			rec.VehicleNumber,
			rec.Violation,
			rec.StopOutcome,
			rec.IsArrested,
			rec.DrugsRelatedStop,
		})
	}
	return table, nil
}
