// Package store persists classified events and run summaries for
// drill-down queries and run history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/schedlens/schedlens/internal/model"
	"github.com/schedlens/schedlens/pkg/aggregate"
)

// DB is a DuckDB-backed store. The aggregation pass never requires it;
// it exists so reports can be drilled into after the fact.
type DB struct {
	db *sql.DB
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID       string
	Source      string
	StartedAt   time.Time
	Total       int64
	Scheduled   int64
	Unscheduled int64
	Unknown     int64
	Rejected    int64
}

// TypeCount is one drill-down row per (task type, status).
type TypeCount struct {
	TaskType string
	Status   string
	Count    int64
}

// Open opens (or creates) the store at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	s := &DB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id       VARCHAR PRIMARY KEY,
			source       VARCHAR,
			started_at   TIMESTAMP,
			total        BIGINT,
			scheduled    BIGINT,
			unscheduled  BIGINT,
			unknown      BIGINT,
			rejected     BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id    VARCHAR,
			task_id   VARCHAR,
			task_type VARCHAR,
			ts        BIGINT,
			duration  BIGINT,
			status    VARCHAR,
			outcome   VARCHAR
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// RecordRun inserts a run summary and, when events were retained, the
// full classified event sequence for drill-down.
func (s *DB) RecordRun(ctx context.Context, runID, source string, startedAt time.Time,
	m *aggregate.Metrics, events []*model.TaskEvent) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, source, startedAt,
		m.Total,
		m.ByStatus[model.StatusScheduled],
		m.ByStatus[model.StatusUnscheduled],
		m.ByStatus[model.StatusUnknown],
		m.ParseErrors,
	)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	if len(events) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO events VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("store: prepare: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			if _, err := stmt.ExecContext(ctx,
				runID, e.TaskID, e.TaskType, e.Timestamp, e.Duration,
				e.Status.String(), e.Outcome.String()); err != nil {
				return fmt.Errorf("store: insert event: %w", err)
			}
		}
	}

	return tx.Commit()
}

// RunHistory returns the most recent runs, newest first.
func (s *DB) RunHistory(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, source, started_at, total, scheduled, unscheduled, unknown, rejected
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: run history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Source, &r.StartedAt,
			&r.Total, &r.Scheduled, &r.Unscheduled, &r.Unknown, &r.Rejected); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusByType returns per-(task type, status) counts for one run,
// computed from the retained events. The run may be named by its full
// ID or a prefix, matching how run history abbreviates IDs.
func (s *DB) StatusByType(ctx context.Context, runID string) ([]TypeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_type, status, COUNT(*)
		 FROM events WHERE run_id = ? OR run_id LIKE ?
		 GROUP BY task_type, status
		 ORDER BY task_type, status`, runID, runID+"%")
	if err != nil {
		return nil, fmt.Errorf("store: status by type: %w", err)
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.TaskType, &tc.Status, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *DB) Close() error {
	return s.db.Close()
}
