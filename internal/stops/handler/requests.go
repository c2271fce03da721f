package handler

import (
	"strings"
	"time"

	"securecheck/internal/stops/models"
	"securecheck/internal/stops/service"
	dErrors "securecheck/pkg/domain-errors"
)

// InsertStopRequest is the JSON payload for POST /stops. Dates and times are
// strings on the wire; empty values default to the request time server-side.
type InsertStopRequest struct {
	StopDate         string `json:"stop_date"`
	StopTime         string `json:"stop_time"`
	CountryName      string `json:"country_name"`
	DriverGender     string `json:"driver_gender"`
	DriverAge        int    `json:"driver_age"`
	DriverRace       string `json:"driver_race"`
	Violation        string `json:"violation"`
	ViolationRaw     string `json:"violation_raw"`
	SearchConducted  bool   `json:"search_conducted"`
	SearchType       string `json:"search_type"`
	StopOutcome      string `json:"stop_outcome"`
	IsArrested       bool   `json:"is_arrested"`
	StopDuration     string `json:"stop_duration"`
	DrugsRelatedStop bool   `json:"drugs_related_stop"`
	VehicleNumber    string `json:"vehicle_number"`
}

// ToServiceRequest parses wire-format dates and times into the typed domain
// request, rejecting unparseable values as bad requests.
func (r InsertStopRequest) ToServiceRequest() (service.InsertRequest, error) {
	req := service.InsertRequest{
		CountryName:      r.CountryName,
		DriverGender:     r.DriverGender,
		DriverAge:        r.DriverAge,
		DriverRace:       r.DriverRace,
		Violation:        r.Violation,
		ViolationRaw:     r.ViolationRaw,
		SearchConducted:  r.SearchConducted,
		SearchType:       r.SearchType,
		StopOutcome:      r.StopOutcome,
		IsArrested:       r.IsArrested,
		StopDuration:     r.StopDuration,
		DrugsRelatedStop: r.DrugsRelatedStop,
		VehicleNumber:    r.VehicleNumber,
	}

	if raw := strings.TrimSpace(r.StopDate); raw != "" {
		date, err := time.Parse(models.StopDateFormat, raw)
		if err != nil {
			return service.InsertRequest{}, dErrors.New(dErrors.CodeBadRequest, "stop_date must be YYYY-MM-DD")
		}
		req.StopDate = date
	}
	if raw := strings.TrimSpace(r.StopTime); raw != "" {
		clock, err := parseClock(raw)
		if err != nil {
			return service.InsertRequest{}, dErrors.New(dErrors.CodeBadRequest, "stop_time must be HH:MM:SS")
		}
		req.StopTime = clock
	}
	return req, nil
}

func parseClock(raw string) (time.Time, error) {
	t, err := time.Parse(models.StopTimeFormat, raw)
	if err == nil {
		return t, nil
	}
	return time.Parse("15:04", raw)
}

// InsertStopResponse is the JSON body for a successful insert.
type InsertStopResponse struct {
	StopID int64 `json:"stop_id"`
}
