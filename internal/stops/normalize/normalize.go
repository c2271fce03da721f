// Package normalize implements the deterministic transformation from raw
// ingested rows to the canonical StopRecord shape.
//
// Normalization runs in a fixed order, each step independently idempotent:
// drop all-empty columns, drop the deprecated driver_age_raw column, fill
// search_type and vehicle_number defaults, coerce booleans, then parse date
// and time. Running Normalize on already-clean rows is a no-op.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"securecheck/internal/stops/models"
)

// Row is one raw tabular input row keyed by canonical column name. Values are
// untyped text as read from the dataset; absent keys and empty strings both
// mean missing.
type Row map[string]string

// ParseError reports a row whose date, time, or driver age could not be
// interpreted. The ingestion policy is to abort the whole batch on the first
// ParseError so a partial load never corrupts downstream analytics.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// boolFields are coerced to a strict two-valued representation before
// persistence.
var boolFields = []string{
	models.FieldSearchConducted,
	models.FieldIsArrested,
	models.FieldDrugsRelatedStop,
}

// Normalize canonicalizes raw rows without parsing dates or times. The input
// is never mutated. Columns that are empty across every row are dropped from
// the output; the deprecated driver_age_raw column is dropped unconditionally
// (superseded by driver_age); search_type and vehicle_number receive their
// documented defaults; boolean columns are rewritten as "true"/"false".
//
// Normalize is idempotent: Normalize(Normalize(rows)) equals Normalize(rows).
func Normalize(rows []Row) []Row {
	populated := populatedColumns(rows)

	out := make([]Row, len(rows))
	for i, row := range rows {
		clean := make(Row, len(populated))
		for col := range populated {
			clean[col] = row[col]
		}
		delete(clean, models.FieldDriverAgeRaw)

		if strings.TrimSpace(clean[models.FieldSearchType]) == "" {
			clean[models.FieldSearchType] = models.SearchTypeNone
		}
		if strings.TrimSpace(clean[models.FieldVehicleNumber]) == "" {
			clean[models.FieldVehicleNumber] = models.UnknownVehicle
		}
		for _, col := range boolFields {
			clean[col] = strconv.FormatBool(ParseBool(clean[col]))
		}
		// A stop without a search carries no meaningful search type.
		if clean[models.FieldSearchConducted] == "false" {
			clean[models.FieldSearchType] = models.SearchTypeNone
		}
		out[i] = clean
	}
	return out
}

// Records runs Normalize and parses each clean row into a typed StopRecord.
// The first unparseable date, time, or non-empty driver_age aborts with a
// *ParseError identifying the row index, field, and raw value. An empty
// driver_age parses as 0.
func Records(rows []Row) ([]models.StopRecord, error) {
	clean := Normalize(rows)

	records := make([]models.StopRecord, 0, len(clean))
	for i, row := range clean {
		date, err := time.Parse(models.StopDateFormat, strings.TrimSpace(row[models.FieldStopDate]))
		if err != nil {
			return nil, &ParseError{Row: i, Field: models.FieldStopDate, Value: row[models.FieldStopDate], Err: err}
		}
		clock, err := parseTime(strings.TrimSpace(row[models.FieldStopTime]))
		if err != nil {
			return nil, &ParseError{Row: i, Field: models.FieldStopTime, Value: row[models.FieldStopTime], Err: err}
		}

		var age int
		if raw := strings.TrimSpace(row[models.FieldDriverAge]); raw != "" {
			age, err = strconv.Atoi(raw)
			if err != nil {
				return nil, &ParseError{Row: i, Field: models.FieldDriverAge, Value: row[models.FieldDriverAge], Err: err}
			}
		}

		records = append(records, models.StopRecord{
			StopDate:         date,
			StopTime:         clock,
			CountryName:      row[models.FieldCountryName],
			DriverGender:     row[models.FieldDriverGender],
			DriverAge:        age,
			DriverRace:       row[models.FieldDriverRace],
			ViolationRaw:     row[models.FieldViolationRaw],
			Violation:        row[models.FieldViolation],
			SearchConducted:  row[models.FieldSearchConducted] == "true",
			SearchType:       row[models.FieldSearchType],
			StopOutcome:      row[models.FieldStopOutcome],
			IsArrested:       row[models.FieldIsArrested] == "true",
			StopDuration:     row[models.FieldStopDuration],
			DrugsRelatedStop: row[models.FieldDrugsRelatedStop] == "true",
			VehicleNumber:    row[models.FieldVehicleNumber],
		})
	}
	return records, nil
}

// ParseBool maps the dataset's boolean encodings. Trimmed, case-insensitive
// "", "0", "false", "f", and "no" are false; every other value is true.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "f", "no":
		return false
	default:
		return true
	}
}

// populatedColumns returns the set of columns carrying at least one non-empty
// value. An all-empty column carries no information and is excluded from the
// output schema.
func populatedColumns(rows []Row) map[string]struct{} {
	populated := make(map[string]struct{})
	for _, row := range rows {
		for col, val := range row {
			if strings.TrimSpace(val) != "" {
				populated[col] = struct{}{}
			}
		}
	}
	return populated
}

// parseTime accepts HH:MM:SS and the shorter HH:MM form seen in exports.
func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(models.StopTimeFormat, raw)
	if err == nil {
		return t, nil
	}
	return time.Parse("15:04", raw)
}
