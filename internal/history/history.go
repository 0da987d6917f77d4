// Package history keeps a SQLite log of benchmark runs and their per
// benchmark summaries.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/compare"
	"golang.org/x/perf/benchmath"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Run is one recorded benchmark run.
type Run struct {
	ID              int64         `json:"id"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Commit          string        `json:"commit,omitempty"`
	Profile         string        `json:"profile"`
	MeasurementTime time.Duration `json:"measurement_time"`
	Samples         int           `json:"samples"`
	Baseline        string        `json:"baseline"`
	Host            string        `json:"host"`
	CPU             string        `json:"cpu,omitempty"`
	Results         int           `json:"results"`
}

// Summary is one benchmark series within a run.
type Summary struct {
	RunID int64 `json:"run_id"`
	bench.Key
	Center float64  `json:"center"`
	Lo     *float64 `json:"lo,omitempty"` // nil below six samples
	Hi     *float64 `json:"hi,omitempty"`
	N      int      `json:"n"`
}

// TrendPoint is a series' summary at one run.
type TrendPoint struct {
	RunID     int64     `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Commit    string    `json:"commit,omitempty"`
	Center    float64   `json:"center"`
	Lo        *float64  `json:"lo,omitempty"`
	Hi        *float64  `json:"hi,omitempty"`
	N         int       `json:"n"`
}

const selectRunFields = `id, started_at, finished_at, commit_sha, profile,
	measurement_ns, samples, baseline, host, cpu, results`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			commit_sha TEXT,
			profile TEXT NOT NULL,
			measurement_ns INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			baseline TEXT NOT NULL,
			host TEXT NOT NULL,
			cpu TEXT,
			results INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS summaries (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			pkg TEXT NOT NULL,
			name TEXT NOT NULL,
			unit TEXT NOT NULL,
			center REAL NOT NULL,
			lo REAL,
			hi REAL,
			n INTEGER NOT NULL,
			PRIMARY KEY (run_id, pkg, name, unit)
		);

		CREATE INDEX IF NOT EXISTS idx_summaries_series ON summaries(name, unit);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun stores run and the summaries of set, returning the new run ID.
func (d *DB) RecordRun(run Run, set *bench.Set) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (
			started_at, finished_at, commit_sha, profile,
			measurement_ns, samples, baseline, host, cpu, results
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(), nullIfEmpty(run.Commit), run.Profile,
		int64(run.MeasurementTime), run.Samples, run.Baseline, run.Host, nullIfEmpty(set.Config("cpu")), set.Len(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO summaries (run_id, pkg, name, unit, center, lo, hi, n)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing summary insert: %w", err)
	}
	defer stmt.Close()

	thresholds := benchmath.DefaultThresholds
	keys, values := set.Series()
	for _, k := range keys {
		sample := benchmath.NewSample(append([]float64(nil), values[k]...), &thresholds)
		sum := benchmath.AssumeNothing.Summary(sample, compare.Confidence)
		if _, err := stmt.Exec(id, k.Pkg, k.Name, k.Unit, sum.Center, nullIfUnbounded(sum.Lo), nullIfUnbounded(sum.Hi), len(sample.Values)); err != nil {
			return 0, fmt.Errorf("inserting summary for %s: %w", k.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + selectRunFields + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by ID.
func (d *DB) GetRun(id int64) (Run, error) {
	row := d.db.QueryRow(`SELECT `+selectRunFields+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return run, err
}

// RunResults returns the summaries recorded for a run.
func (d *DB) RunResults(id int64) ([]Summary, error) {
	if _, err := d.GetRun(id); err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT run_id, pkg, name, unit, center, lo, hi, n
		FROM summaries WHERE run_id = ?
		ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var lo, hi sql.NullFloat64
		if err := rows.Scan(&s.RunID, &s.Pkg, &s.Name, &s.Unit, &s.Center, &lo, &hi, &s.N); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		s.Lo, s.Hi = floatPtr(lo), floatPtr(hi)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Trend returns one series across runs, oldest first, limited to the most
// recent limit runs when limit > 0.
func (d *DB) Trend(name, unit string, limit int) ([]TrendPoint, error) {
	query := `
		SELECT r.id, r.started_at, r.commit_sha, s.center, s.lo, s.hi, s.n
		FROM summaries s JOIN runs r ON r.id = s.run_id
		WHERE s.name = ? AND s.unit = ?
		ORDER BY r.id DESC`
	args := []any{name, unit}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		var started int64
		var commit sql.NullString
		var lo, hi sql.NullFloat64
		if err := rows.Scan(&p.RunID, &started, &commit, &p.Center, &lo, &hi, &p.N); err != nil {
			return nil, fmt.Errorf("scanning trend: %w", err)
		}
		p.Lo, p.Hi = floatPtr(lo), floatPtr(hi)
		p.StartedAt = time.Unix(0, started)
		p.Commit = commit.String
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started, finished, measurement int64
	var commit, cpu sql.NullString
	err := s.Scan(&run.ID, &started, &finished, &commit, &run.Profile,
		&measurement, &run.Samples, &run.Baseline, &run.Host, &cpu, &run.Results)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	run.StartedAt = time.Unix(0, started)
	run.FinishedAt = time.Unix(0, finished)
	run.MeasurementTime = time.Duration(measurement)
	run.Commit = commit.String
	run.CPU = cpu.String
	return run, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullIfUnbounded stores infinite confidence bounds as NULL.
func nullIfUnbounded(v float64) any {
	if b := compare.Bound(v); b != nil {
		return *b
	}
	return nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
