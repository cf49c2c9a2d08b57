package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"printdesk/internal/models"
)

// SQLiteStore is a key-value RecordStore backed by SQLite, for deployments
// where a directory of JSON files is not wanted. Same contract as FileStore:
// one full record per user, replaced on every write.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			user_id    TEXT PRIMARY KEY,
			record     TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// ReadAll loads every stored session. Corrupt rows are deleted and skipped.
func (s *SQLiteStore) ReadAll() ([]models.ConversationSession, error) {
	rows, err := s.db.Query(`SELECT user_id, record FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ConversationSession
	var corrupt []string
	for rows.Next() {
		var userID, record string
		if err := rows.Scan(&userID, &record); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var sess models.ConversationSession
		if err := json.Unmarshal([]byte(record), &sess); err != nil || sess.UserID == "" {
			log.Printf("⚠️  [SESSION] Discarding corrupt record for %s: %v", userID, err)
			corrupt = append(corrupt, userID)
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	for _, userID := range corrupt {
		_ = s.Delete(userID)
	}
	return sessions, nil
}

// Write upserts the full session record.
func (s *SQLiteStore) Write(sess *models.ConversationSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (user_id, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at
	`, sess.UserID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// Delete removes the user's record.
func (s *SQLiteStore) Delete(userID string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
