// Package analytics records resolved queries for later review. Best effort
// by contract: the resolver logs and ignores any failure here, so a broken
// analytics database never affects answers.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"printdesk/internal/models"
)

// SQLiteSink stores query/response pairs in a local SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database and ensures the schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS queries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			query      TEXT NOT NULL,
			language   TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS responses (
			query_id         TEXT NOT NULL REFERENCES queries(id),
			success          INTEGER NOT NULL,
			source           TEXT NOT NULL,
			confidence       REAL NOT NULL,
			contact_manager  INTEGER NOT NULL,
			answer_length    INTEGER NOT NULL,
			response_time_ms INTEGER NOT NULL,
			created_at       TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_queries_user ON queries(user_id, created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analytics schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// LogQuery records an inbound query and returns a correlation id for the
// matching LogResponse call.
func (s *SQLiteSink) LogQuery(ctx context.Context, userID, query, language string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (id, user_id, query, language, created_at) VALUES (?, ?, ?, ?, ?)
	`, id, userID, query, language, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to log query: %w", err)
	}
	return id, nil
}

// LogResponse records the outcome produced for a previously logged query.
func (s *SQLiteSink) LogResponse(ctx context.Context, correlationID string, outcome models.QueryOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (query_id, success, source, confidence, contact_manager, answer_length, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, correlationID, outcome.Success, outcome.Source, outcome.Confidence,
		outcome.ShouldContactManager, len(outcome.Answer), outcome.ResponseTimeMs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to log response: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
