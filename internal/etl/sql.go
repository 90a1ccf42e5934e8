package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BartekS5/steampulse/pkg/database"
)

// SQLCheckpointStore keeps one row per pipeline in ingest_checkpoints.
// The conditional UPDATE refuses to move last_index backwards.
type SQLCheckpointStore struct {
	DB       *sql.DB
	Dialect  database.Dialect
	Pipeline string
}

func NewSQLCheckpointStore(db *sql.DB, dialect database.Dialect, pipeline string) *SQLCheckpointStore {
	return &SQLCheckpointStore{DB: db, Dialect: dialect, Pipeline: pipeline}
}

func (s *SQLCheckpointStore) p(n int) string {
	return s.Dialect.Placeholder(n)
}

func (s *SQLCheckpointStore) Load(ctx context.Context) (int, error) {
	var last int
	query := fmt.Sprintf("SELECT last_index FROM ingest_checkpoints WHERE pipeline = %s", s.p(1))
	err := s.DB.QueryRowContext(ctx, query, s.Pipeline).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error reading checkpoint for %s: %w", s.Pipeline, err)
	}
	return last, nil
}

func (s *SQLCheckpointStore) Save(ctx context.Context, next int) error {
	update := fmt.Sprintf(
		"UPDATE ingest_checkpoints SET last_index = %s, updated_at = CURRENT_TIMESTAMP WHERE pipeline = %s AND last_index <= %s",
		s.p(1), s.p(2), s.p(1))
	res, err := s.DB.ExecContext(ctx, update, next, s.Pipeline)
	if err != nil {
		return fmt.Errorf("error updating checkpoint: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var current int
	check := fmt.Sprintf("SELECT last_index FROM ingest_checkpoints WHERE pipeline = %s", s.p(1))
	err = s.DB.QueryRowContext(ctx, check, s.Pipeline).Scan(&current)
	if err == nil {
		return fmt.Errorf("%w: %d -> %d", ErrCheckpointRegression, current, next)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error checking checkpoint existence: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO ingest_checkpoints (pipeline, last_index, updated_at) VALUES (%s, %s, CURRENT_TIMESTAMP)",
		s.p(1), s.p(2))
	if _, err := s.DB.ExecContext(ctx, insert, s.Pipeline, next); err != nil {
		return fmt.Errorf("error inserting checkpoint: %w", err)
	}
	return nil
}

func (s *SQLCheckpointStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM ingest_checkpoints WHERE pipeline = %s", s.p(1))
	if _, err := s.DB.ExecContext(ctx, query, s.Pipeline); err != nil {
		return fmt.Errorf("error resetting checkpoint: %w", err)
	}
	return nil
}
