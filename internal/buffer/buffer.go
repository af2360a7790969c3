// Package buffer is the durable local queue of records awaiting delivery.
//
// Records are appended by the sampling engine's flush path, read back in
// timestamp order by the delivery pipeline, and range-deleted once the server
// acknowledges them. The store is a single sqlite table so the queue survives
// process restarts.
package buffer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle backing the buffer.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the buffer database at path. Callers must run
// MigrateUp before using the buffer.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buffer database: %w", err)
	}

	// WAL keeps inserts from the event loop and deletes from the delivery
	// pipeline from blocking each other; busy_timeout covers the rest.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set buffer pragmas: %w", err)
	}

	return &DB{db}, nil
}

// Insert appends a record to the buffer.
func (db *DB) Insert(ctx context.Context, rec Record) error {
	metrics, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics mapping: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO buffer (
			time, client_id, latitude, longitude, speedoverground,
			courseovergroundtrue, windspeedapparent, anglespeedapparent,
			status, metrics
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		FormatTime(rec.Time), rec.ClientID, rec.Latitude, rec.Longitude,
		rec.SpeedOverGround, rec.CourseOverGroundTrue, rec.WindSpeedApparent,
		rec.WindAngleApparent, rec.Status, string(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to insert buffer record: %w", err)
	}
	return nil
}

// Pending returns up to limit records ordered by timestamp ascending. A
// non-positive limit returns everything.
func (db *DB) Pending(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT time, client_id, latitude, longitude, speedoverground,
			courseovergroundtrue, windspeedapparent, anglespeedapparent,
			status, metrics
		FROM buffer ORDER BY time ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			ts         string
			metricsRaw string
		)
		if err := rows.Scan(
			&ts, &rec.ClientID, &rec.Latitude, &rec.Longitude,
			&rec.SpeedOverGround, &rec.CourseOverGroundTrue,
			&rec.WindSpeedApparent, &rec.WindAngleApparent,
			&rec.Status, &metricsRaw,
		); err != nil {
			return nil, err
		}
		if rec.Time, err = ParseTime(ts); err != nil {
			return nil, fmt.Errorf("buffer row has malformed timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(metricsRaw), &rec.Metrics); err != nil {
			return nil, fmt.Errorf("buffer row has malformed metrics: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteThrough removes every record with a timestamp at or before the
// watermark and returns how many rows were deleted.
func (db *DB) DeleteThrough(ctx context.Context, watermark time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM buffer WHERE time <= ?`, FormatTime(watermark))
	if err != nil {
		return 0, fmt.Errorf("failed to delete acknowledged records: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the queue depth.
func (db *DB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buffer`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count buffer records: %w", err)
	}
	return n, nil
}
