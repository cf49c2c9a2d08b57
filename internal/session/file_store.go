package session

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"strings"

	"printdesk/internal/models"
)

// FileStore keeps one JSON document per user under a directory. Every write
// replaces the whole record via temp-file-then-rename, so a crash mid-write
// leaves the previous record intact. Full-document rewrite per append is a
// known scalability ceiling at this shop's size.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// ReadAll loads every session record. Corrupt files are removed and skipped
// rather than aborting startup.
func (f *FileStore) ReadAll() ([]models.ConversationSession, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read session dir: %w", err)
	}
	var sessions []models.ConversationSession
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(f.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("⚠️  [SESSION] Failed to read %s: %v", entry.Name(), err)
			continue
		}
		var sess models.ConversationSession
		if err := json.Unmarshal(data, &sess); err != nil || sess.UserID == "" {
			log.Printf("⚠️  [SESSION] Discarding corrupt record %s: %v", entry.Name(), err)
			_ = os.Remove(path)
			continue
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Write persists the full session atomically.
func (f *FileStore) Write(sess *models.ConversationSession) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	path := f.path(sess.UserID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Delete removes the user's record; a missing file is not an error.
func (f *FileStore) Delete(userID string) error {
	err := os.Remove(f.path(userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

func (f *FileStore) path(userID string) string {
	return filepath.Join(f.dir, sanitizeUserID(userID)+".json")
}

// sanitizeUserID maps arbitrary user identifiers onto safe file names. IDs
// containing replaced characters get an fnv suffix so distinct IDs cannot
// collide on the same file.
func sanitizeUserID(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, userID)
	if safe == userID {
		return safe
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return fmt.Sprintf("%s-%08x", safe, h.Sum32())
}
