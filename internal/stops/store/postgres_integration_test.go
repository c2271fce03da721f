//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"securecheck/internal/stops/models"
	"securecheck/internal/stops/store"
	"securecheck/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)

	err := s.store.EnsureSchema(context.Background())
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), store.TableName)
	s.Require().NoError(err)
}

func newStop(mutate func(*models.StopRecord)) models.StopRecord {
	rec := models.StopRecord{
		StopDate:      time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC),
		StopTime:      time.Date(0, 1, 1, 10, 30, 0, 0, time.UTC),
		CountryName:   "India",
		DriverGender:  "M",
		DriverAge:     30,
		DriverRace:    models.UnknownRace,
		Violation:     "Speeding",
		ViolationRaw:  "Speeding",
		SearchType:    models.SearchTypeNone,
		StopOutcome:   "Citation",
		StopDuration:  "6-15 min",
		VehicleNumber: "KA01AB1234",
	}
	if mutate != nil {
		mutate(&rec)
	}
	return rec
}

// TestEnsureSchemaIsIdempotent verifies repeated schema creation is safe on
// every process start.
func (s *PostgresStoreSuite) TestEnsureSchemaIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureSchema(ctx))
	s.Require().NoError(s.store.EnsureSchema(ctx))
}

// TestBulkLoadThenAppendOne verifies bulk ids follow row position and the
// sequence continues past them for live inserts.
func (s *PostgresStoreSuite) TestBulkLoadThenAppendOne() {
	ctx := context.Background()

	batch := []models.StopRecord{
		newStop(func(r *models.StopRecord) { r.VehicleNumber = "VEH-0" }),
		newStop(func(r *models.StopRecord) { r.VehicleNumber = "VEH-1" }),
		newStop(func(r *models.StopRecord) { r.VehicleNumber = "VEH-2" }),
	}
	n, err := s.store.BulkLoad(ctx, batch)
	s.Require().NoError(err)
	s.Equal(3, n)

	stopID, err := s.store.AppendOne(ctx, newStop(nil))
	s.Require().NoError(err)
	s.Equal(int64(4), stopID, "append must continue past the bulk-loaded id range")

	count, err := s.store.CountStops(ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), count)

	matches, err := s.store.Search(ctx, "VEH-1", store.DefaultSearchLimit)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(int64(2), matches[0].StopID, "stop_id must correlate with row position")
}

// TestAppendOneRoundTrip verifies a submitted record reads back intact.
func (s *PostgresStoreSuite) TestAppendOneRoundTrip() {
	ctx := context.Background()

	rec := newStop(func(r *models.StopRecord) {
		r.VehicleNumber = "RJ83PZ4441"
		r.SearchConducted = true
		r.SearchType = models.SearchTypeVehicle
		r.IsArrested = true
		r.DrugsRelatedStop = true
	})
	stopID, err := s.store.AppendOne(ctx, rec)
	s.Require().NoError(err)
	s.Greater(stopID, int64(0))

	matches, err := s.store.Search(ctx, "RJ83PZ4441", store.DefaultSearchLimit)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)

	got := matches[0]
	s.Equal(stopID, got.StopID)
	s.Equal(rec.CountryName, got.CountryName)
	s.Equal(rec.DriverGender, got.DriverGender)
	s.Equal(rec.DriverAge, got.DriverAge)
	s.True(got.SearchConducted)
	s.Equal(models.SearchTypeVehicle, got.SearchType)
	s.True(got.IsArrested)
	s.True(got.DrugsRelatedStop)
	s.Equal("2020-03-01", got.StopDate.Format(models.StopDateFormat))
	s.Equal("10:30:00", got.StopTime.Format(models.StopTimeFormat))
}

// TestTopDrugVehicles mirrors the ranking property: V2(5) before V1(3), V3
// excluded.
func (s *PostgresStoreSuite) TestTopDrugVehicles() {
	ctx := context.Background()

	load := func(vehicle string, drugs bool, times int) {
		for i := 0; i < times; i++ {
			_, err := s.store.AppendOne(ctx, newStop(func(r *models.StopRecord) {
				r.VehicleNumber = vehicle
				r.DrugsRelatedStop = drugs
			}))
			s.Require().NoError(err)
		}
	}
	load("V1", true, 3)
	load("V2", true, 5)
	load("V3", false, 2)

	ranked, err := s.store.TopDrugVehicles(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(ranked, 2)
	s.Equal("V2", ranked[0].VehicleNumber)
	s.Equal(int64(5), ranked[0].DrugStopCount)
	s.Equal("V1", ranked[1].VehicleNumber)
}

// TestArrestRateByAge mirrors the bracket property: ages 20(arrested),
// 24(not), 30(arrested), 30(arrested) give 50% and 100%.
func (s *PostgresStoreSuite) TestArrestRateByAge() {
	ctx := context.Background()

	load := func(age int, arrested bool) {
		_, err := s.store.AppendOne(ctx, newStop(func(r *models.StopRecord) {
			r.DriverAge = age
			r.IsArrested = arrested
		}))
		s.Require().NoError(err)
	}
	load(20, true)
	load(24, false)
	load(30, true)
	load(30, true)
	load(15, false)

	rates, err := s.store.ArrestRateByAge(ctx)
	s.Require().NoError(err)

	byBracket := make(map[string]float64)
	for _, row := range rates {
		byBracket[row.AgeGroup] = row.ArrestRate
	}
	s.InDelta(50.0, byBracket[models.Bracket16To25], 0.001)
	s.InDelta(100.0, byBracket[models.Bracket26To35], 0.001)
	s.Contains(byBracket, models.BracketUnder16, "ages below 16 report under their own bracket")
	s.Equal(models.Bracket26To35, rates[0].AgeGroup, "ordered descending by rate")
}

// TestViolationRisk verifies the combined rate is the unweighted mean of the
// two percentages.
func (s *PostgresStoreSuite) TestViolationRisk() {
	ctx := context.Background()

	load := func(violation string, searched, arrested bool) {
		_, err := s.store.AppendOne(ctx, newStop(func(r *models.StopRecord) {
			r.Violation = violation
			r.SearchConducted = searched
			r.IsArrested = arrested
		}))
		s.Require().NoError(err)
	}
	load("DUI", true, true)
	load("DUI", true, false)
	load("Seatbelt", false, false)

	risks, err := s.store.ViolationRisk(ctx)
	s.Require().NoError(err)
	s.Require().Len(risks, 2)
	s.Equal("DUI", risks[0].Violation)
	s.InDelta(100.0, risks[0].SearchRate, 0.001)
	s.InDelta(50.0, risks[0].ArrestRate, 0.001)
	s.InDelta(75.0, risks[0].CombinedRate, 0.001)
}

// TestSearchBindsTermSafely verifies LIKE metacharacters and quote attempts
// in the term are treated as literal text.
func (s *PostgresStoreSuite) TestSearchBindsTermSafely() {
	ctx := context.Background()

	_, err := s.store.AppendOne(ctx, newStop(func(r *models.StopRecord) {
		r.VehicleNumber = "AB_100%"
	}))
	s.Require().NoError(err)
	_, err = s.store.AppendOne(ctx, newStop(func(r *models.StopRecord) {
		r.VehicleNumber = "ABX100Y"
	}))
	s.Require().NoError(err)

	matches, err := s.store.Search(ctx, "B_100%", store.DefaultSearchLimit)
	s.Require().NoError(err)
	s.Require().Len(matches, 1, "wildcards in the term must match literally")
	s.Equal("AB_100%", matches[0].VehicleNumber)

	// A quote-laden term is just an unmatched literal, never executable SQL.
	matches, err = s.store.Search(ctx, `'; DROP TABLE traffic_stops; --`, store.DefaultSearchLimit)
	s.Require().NoError(err)
	s.Empty(matches)

	count, err := s.store.CountStops(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), count)
}

// TestSearchNewestFirstCapped loads 60 matches and verifies the 50 newest
// come back in (stop_date, stop_time) descending order.
func (s *PostgresStoreSuite) TestSearchNewestFirstCapped() {
	ctx := context.Background()

	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	var batch []models.StopRecord
	for i := 0; i < 60; i++ {
		i := i
		batch = append(batch, newStop(func(r *models.StopRecord) {
			r.StopDate = base.AddDate(0, 0, i)
		}))
	}
	_, err := s.store.BulkLoad(ctx, batch)
	s.Require().NoError(err)

	matches, err := s.store.Search(ctx, "India", store.DefaultSearchLimit)
	s.Require().NoError(err)
	s.Require().Len(matches, store.DefaultSearchLimit)
	s.Equal(base.AddDate(0, 0, 59).Format(models.StopDateFormat), matches[0].StopDate.Format(models.StopDateFormat))
	for i := 1; i < len(matches); i++ {
		s.False(matches[i].StopDate.After(matches[i-1].StopDate), "results must be newest first")
	}
}

// TestAppendSurfacesWriteError verifies a storage-level failure reaches the
// caller as an error rather than partial state.
func (s *PostgresStoreSuite) TestAppendSurfacesWriteError() {
	ctx := context.Background()

	s.Require().NoError(s.store.Reset(ctx))
	defer func() {
		s.Require().NoError(s.store.EnsureSchema(ctx))
	}()

	_, err := s.store.AppendOne(ctx, newStop(nil))
	s.Require().Error(err)
}
