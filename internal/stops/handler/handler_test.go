package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"securecheck/internal/stops/catalog"
	"securecheck/internal/stops/service"
	"securecheck/internal/stops/store"
)

type StopsHandlerSuite struct {
	suite.Suite
	router http.Handler
	store  *store.InMemory
}

func TestStopsHandlerSuite(t *testing.T) {
	suite.Run(t, new(StopsHandlerSuite))
}

func (s *StopsHandlerSuite) SetupTest() {
	s.store = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(s.store, catalog.New(), logger)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func insertPayload() map[string]any {
	return map[string]any{
		"stop_date":     "2021-06-01",
		"stop_time":     "13:45:00",
		"country_name":  "India",
		"driver_gender": "M",
		"driver_age":    34,
		"violation":     "Speeding",
		"stop_outcome":  "Citation",
		"stop_duration": "<5 min",
	}
}

func (s *StopsHandlerSuite) postStop(payload map[string]any) *httptest.ResponseRecorder {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/stops", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *StopsHandlerSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *StopsHandlerSuite) TestInsertAndSearch() {
	rec := s.postStop(insertPayload())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp InsertStopResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(int64(1), resp.StopID)

	searchRec := s.get("/queries/record-search?term=India")
	s.Require().Equal(http.StatusOK, searchRec.Code)

	var table catalog.Table
	s.Require().NoError(json.Unmarshal(searchRec.Body.Bytes(), &table))
	s.Len(table.Rows, 1)
}

func (s *StopsHandlerSuite) TestInsertRejectsMissingFields() {
	payload := insertPayload()
	delete(payload, "country_name")

	rec := s.postStop(payload)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var errBody map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &errBody))
	s.Equal("bad_request", errBody["error"])
}

func (s *StopsHandlerSuite) TestInsertRejectsMalformedDate() {
	payload := insertPayload()
	payload["stop_date"] = "01/06/2021"

	rec := s.postStop(payload)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *StopsHandlerSuite) TestInsertRejectsMalformedJSON() {
	req := httptest.NewRequest(http.MethodPost, "/stops", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *StopsHandlerSuite) TestListQueries() {
	rec := s.get("/queries")
	s.Require().Equal(http.StatusOK, rec.Code)

	var infos []catalog.Info
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &infos))
	s.Require().Len(infos, 4)
	s.Equal(catalog.KeyTopDrugVehicles, infos[0].Key)
	s.True(infos[3].TakesTerm)
}

func (s *StopsHandlerSuite) TestUnknownQueryReturns404() {
	rec := s.get("/queries/nonexistent")
	s.Require().Equal(http.StatusNotFound, rec.Code)

	var errBody map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &errBody))
	s.Equal("not_found", errBody["error"])
}

func (s *StopsHandlerSuite) TestAnalyticsQuery() {
	// Two inserts, one arrest, both in the 26-35 bracket.
	for _, arrested := range []bool{true, false} {
		payload := insertPayload()
		payload["is_arrested"] = arrested
		rec := s.postStop(payload)
		s.Require().Equal(http.StatusCreated, rec.Code)
	}

	rec := s.get("/queries/arrest-rate-by-age")
	s.Require().Equal(http.StatusOK, rec.Code)

	var table catalog.Table
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &table))
	s.Require().Len(table.Rows, 1)
	s.Equal("26-35", table.Rows[0][0])
	s.InDelta(50.0, table.Rows[0][1], 0.001)
}
