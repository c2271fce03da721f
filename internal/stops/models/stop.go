// Package models defines the canonical vehicle-stop record persisted in the
// traffic_stops table.
package models

import "time"

// Canonical column names shared by the CSV header, the normalizer, and the
// persisted schema.
const (
	FieldStopDate         = "stop_date"
	FieldStopTime         = "stop_time"
	FieldCountryName      = "country_name"
	FieldDriverGender     = "driver_gender"
	FieldDriverAge        = "driver_age"
	FieldDriverAgeRaw     = "driver_age_raw"
	FieldDriverRace       = "driver_race"
	FieldViolationRaw     = "violation_raw"
	FieldViolation        = "violation"
	FieldSearchConducted  = "search_conducted"
	FieldSearchType       = "search_type"
	FieldStopOutcome      = "stop_outcome"
	FieldIsArrested       = "is_arrested"
	FieldStopDuration     = "stop_duration"
	FieldDrugsRelatedStop = "drugs_related_stop"
	FieldVehicleNumber    = "vehicle_number"
)

// Defaults applied at the normalization boundary for absent values.
const (
	SearchTypeNone    = "None Conducted"
	SearchTypeVehicle = "Vehicle Search"
	UnknownVehicle    = "Unknown"
	UnknownRace       = "Unknown"
	StopDateFormat    = "2006-01-02"
	StopTimeFormat    = "15:04:05"
)

// StopRecord is one observed vehicle-stop event. StopID is zero until storage
// assigns one; it is assigned exactly once and never reused or mutated.
type StopRecord struct {
	StopID           int64     `json:"stop_id"`
	StopDate         time.Time `json:"stop_date"`
	StopTime         time.Time `json:"stop_time"`
	CountryName      string    `json:"country_name"`
	DriverGender     string    `json:"driver_gender"`
	DriverAge        int       `json:"driver_age"`
	DriverRace       string    `json:"driver_race"`
	ViolationRaw     string    `json:"violation_raw"`
	Violation        string    `json:"violation"`
	SearchConducted  bool      `json:"search_conducted"`
	SearchType       string    `json:"search_type"`
	StopOutcome      string    `json:"stop_outcome"`
	IsArrested       bool      `json:"is_arrested"`
	StopDuration     string    `json:"stop_duration"`
	DrugsRelatedStop bool      `json:"drugs_related_stop"`
	VehicleNumber    string    `json:"vehicle_number"`
}

// Age brackets used by the arrest-rate report. Brackets are closed on both
// bounds; 46+ is open-ended above. Ages below 16 fall outside the adult
// brackets and are reported under an explicit BracketUnder16 bucket rather
// than folded into 46+.
const (
	Bracket16To25  = "16-25"
	Bracket26To35  = "26-35"
	Bracket36To45  = "36-45"
	Bracket46Plus  = "46+"
	BracketUnder16 = "under-16"
)

// AgeBracket classifies a driver age into its reporting bracket.
func AgeBracket(age int) string {
	switch {
	case age < 16:
		return BracketUnder16
	case age <= 25:
		return Bracket16To25
	case age <= 35:
		return Bracket26To35
	case age <= 45:
		return Bracket36To45
	default:
		return Bracket46Plus
	}
}
