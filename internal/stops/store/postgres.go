package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"securecheck/internal/stops/models"
	"securecheck/pkg/platform/sentinel"
)

// TableName is the single persisted table.
const TableName = "traffic_stops"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS traffic_stops (
	stop_id            BIGSERIAL PRIMARY KEY,
	stop_date          DATE NOT NULL,
	stop_time          TIME NOT NULL,
	country_name       VARCHAR(50) NOT NULL,
	driver_gender      CHAR(1),
	driver_age         INT,
	driver_race        VARCHAR(50),
	violation_raw      VARCHAR(100),
	violation          VARCHAR(100) NOT NULL,
	search_conducted   BOOLEAN NOT NULL,
	search_type        VARCHAR(100),
	stop_outcome       VARCHAR(50),
	is_arrested        BOOLEAN NOT NULL,
	stop_duration      VARCHAR(20),
	drugs_related_stop BOOLEAN NOT NULL,
	vehicle_number     VARCHAR(20)
)`

// PostgresStore persists vehicle-stop records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed stop store. The *sql.DB is owned
// by the caller: opened once at process start and shared for the process
// lifetime.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema idempotently creates the traffic_stops table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Reset drops the table so a fresh ingestion can recreate it. Only the
// ingestion entry point uses this; the live service never drops data.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS traffic_stops`); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

// BulkLoad appends records in input order inside one transaction, assigning
// stop_ids sequentially from row position so stop_id correlates with the
// original dataset position. The identity sequence is advanced afterwards so
// later single-row inserts continue from the loaded range.
func (s *PostgresStore) BulkLoad(ctx context.Context, records []models.StopRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk load: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var base int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(stop_id), 0) FROM traffic_stops`).Scan(&base); err != nil {
		return 0, fmt.Errorf("bulk load base id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(TableName,
		"stop_id", "stop_date", "stop_time", "country_name", "driver_gender",
		"driver_age", "driver_race", "violation_raw", "violation",
		"search_conducted", "search_type", "stop_outcome", "is_arrested",
		"stop_duration", "drugs_related_stop", "vehicle_number",
	))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk load: %w", err)
	}

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			base+int64(i)+1,
			rec.StopDate,
			rec.StopTime.Format(models.StopTimeFormat),
			rec.CountryName,
			rec.DriverGender,
			rec.DriverAge,
			rec.DriverRace,
			rec.ViolationRaw,
			rec.Violation,
			rec.SearchConducted,
			rec.SearchType,
			rec.StopOutcome,
			rec.IsArrested,
			rec.StopDuration,
			rec.DrugsRelatedStop,
			rec.VehicleNumber,
		)
		if err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk load row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush bulk load: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close bulk load: %w", err)
	}

	// Keep the auto-increment sequence ahead of explicitly assigned ids.
	if _, err := tx.ExecContext(ctx,
		`SELECT setval(pg_get_serial_sequence('traffic_stops', 'stop_id'), (SELECT MAX(stop_id) FROM traffic_stops))`,
	); err != nil {
		return 0, fmt.Errorf("advance stop_id sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk load: %w", err)
	}
	return len(records), nil
}

// AppendOne inserts a single record and returns the storage-assigned stop_id.
func (s *PostgresStore) AppendOne(ctx context.Context, rec models.StopRecord) (int64, error) {
	const query = `
		INSERT INTO traffic_stops (
			stop_date, stop_time, country_name, driver_gender, driver_age,
			driver_race, violation_raw, violation, search_conducted,
			search_type, stop_outcome, is_arrested, stop_duration,
			drugs_related_stop, vehicle_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING stop_id`

	var stopID int64
	err := s.db.QueryRowContext(ctx, query,
		rec.StopDate,
		rec.StopTime.Format(models.StopTimeFormat),
		rec.CountryName,
		rec.DriverGender,
		rec.DriverAge,
		rec.DriverRace,
		rec.ViolationRaw,
		rec.Violation,
		rec.SearchConducted,
		rec.SearchType,
		rec.StopOutcome,
		rec.IsArrested,
		rec.StopDuration,
		rec.DrugsRelatedStop,
		rec.VehicleNumber,
	).Scan(&stopID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Class() == "23" {
			return 0, fmt.Errorf("append stop: %w: %v", sentinel.ErrConflict, err)
		}
		return 0, fmt.Errorf("append stop: %w", err)
	}
	return stopID, nil
}

// CountStops reports the total number of persisted records.
func (s *PostgresStore) CountStops(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM traffic_stops`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count stops: %w", err)
	}
	return count, nil
}

// TopDrugVehicles ranks vehicles by drug-related stop count.
func (s *PostgresStore) TopDrugVehicles(ctx context.Context, limit int) ([]VehicleDrugCount, error) {
	const query = `
		SELECT vehicle_number, COUNT(*) AS drug_stop_count
		FROM traffic_stops
		WHERE drugs_related_stop = TRUE AND vehicle_number IS NOT NULL
		GROUP BY vehicle_number
		ORDER BY drug_stop_count DESC, vehicle_number ASC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top drug vehicles: %w", err)
	}
	defer rows.Close()

	var out []VehicleDrugCount
	for rows.Next() {
		var row VehicleDrugCount
		if err := rows.Scan(&row.VehicleNumber, &row.DrugStopCount); err != nil {
			return nil, fmt.Errorf("scan drug vehicle row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top drug vehicles rows: %w", err)
	}
	return out, nil
}

// ArrestRateByAge reports the arrest percentage per age bracket.
func (s *PostgresStore) ArrestRateByAge(ctx context.Context) ([]BracketArrestRate, error) {
	const query = `
		SELECT
			CASE
				WHEN driver_age BETWEEN 16 AND 25 THEN '16-25'
				WHEN driver_age BETWEEN 26 AND 35 THEN '26-35'
				WHEN driver_age BETWEEN 36 AND 45 THEN '36-45'
				WHEN driver_age >= 46 THEN '46+'
				ELSE 'under-16'
			END AS age_group,
			CAST(SUM(CASE WHEN is_arrested THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*) AS arrest_rate
		FROM traffic_stops
		GROUP BY age_group
		ORDER BY arrest_rate DESC, age_group ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("arrest rate by age: %w", err)
	}
	defer rows.Close()

	var out []BracketArrestRate
	for rows.Next() {
		var row BracketArrestRate
		if err := rows.Scan(&row.AgeGroup, &row.ArrestRate); err != nil {
			return nil, fmt.Errorf("scan arrest rate row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("arrest rate rows: %w", err)
	}
	return out, nil
}

// ViolationRisk reports search/arrest/combined percentages per violation.
func (s *PostgresStore) ViolationRisk(ctx context.Context) ([]ViolationRisk, error) {
	const query = `
		SELECT
			violation,
			CAST(SUM(CASE WHEN search_conducted THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*) AS search_rate,
			CAST(SUM(CASE WHEN is_arrested THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*) AS arrest_rate,
			(CAST(SUM(CASE WHEN search_conducted THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*) +
			 CAST(SUM(CASE WHEN is_arrested THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*)) / 2 AS combined_rate
		FROM traffic_stops
		GROUP BY violation
		ORDER BY combined_rate DESC, violation ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("violation risk: %w", err)
	}
	defer rows.Close()

	var out []ViolationRisk
	for rows.Next() {
		var row ViolationRisk
		if err := rows.Scan(&row.Violation, &row.SearchRate, &row.ArrestRate, &row.CombinedRate); err != nil {
			return nil, fmt.Errorf("scan violation risk row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("violation risk rows: %w", err)
	}
	return out, nil
}

// Search returns records whose country_name or vehicle_number contains term,
// newest first. The term is always bound as a parameter with LIKE wildcards
// escaped, never interpolated into the query text. Matching is case-sensitive,
// the Postgres LIKE default.
func (s *PostgresStore) Search(ctx context.Context, term string, limit int) ([]models.StopRecord, error) {
	const query = `
		SELECT stop_id, stop_date, stop_time, country_name, driver_gender,
			driver_age, driver_race, violation_raw, violation,
			search_conducted, search_type, stop_outcome, is_arrested,
			stop_duration, drugs_related_stop, vehicle_number
		FROM traffic_stops
		WHERE country_name LIKE $1 OR vehicle_number LIKE $1
		ORDER BY stop_date DESC, stop_time DESC, stop_id DESC
		LIMIT $2`

	pattern := "%" + escapeLike(term) + "%"
	rows, err := s.db.QueryContext(ctx, query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search stops: %w", err)
	}
	defer rows.Close()

	var out []models.StopRecord
	for rows.Next() {
		var rec models.StopRecord
		var gender sql.NullString
		if err := rows.Scan(
			&rec.StopID,
			&rec.StopDate,
			&rec.StopTime,
			&rec.CountryName,
			&gender,
			&rec.DriverAge,
			&rec.DriverRace,
			&rec.ViolationRaw,
			&rec.Violation,
			&rec.SearchConducted,
			&rec.SearchType,
			&rec.StopOutcome,
			&rec.IsArrested,
			&rec.StopDuration,
			&rec.DrugsRelatedStop,
			&rec.VehicleNumber,
		); err != nil {
			return nil, fmt.Errorf("scan stop row: %w", err)
		}
		// CHAR(1) pads with trailing space when the gender code is absent.
		rec.DriverGender = strings.TrimSpace(gender.String)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}
	return out, nil
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied term so a
// search for "50%" matches the literal text.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
