// Package session owns per-user bounded conversational memory with
// TTL-based expiry and durable persistence. History is a convenience cache,
// not a system of record: persistence failures are logged and the in-memory
// state stays authoritative for the process lifetime.
package session

import (
	"log"
	"sync"
	"time"

	"printdesk/internal/models"
)

// RecordStore is the durable per-user record backend: read everything at
// startup, write one full record per mutation, delete one record on clear.
type RecordStore interface {
	ReadAll() ([]models.ConversationSession, error)
	Write(sess *models.ConversationSession) error
	Delete(userID string) error
}

// Store is the in-memory session table. Mutations for a given user are
// serialized through a per-user mutex; different users proceed in parallel.
type Store struct {
	mu       sync.Mutex // guards sessions and locks maps
	sessions map[string]*models.ConversationSession
	locks    map[string]*sync.Mutex

	backend     RecordStore
	idleTimeout time.Duration
	maxMessages int
	now         func() time.Time
}

// NewStore creates an empty store. idleTimeout defaults to 24h and
// maxMessages to 100 when non-positive.
func NewStore(backend RecordStore, idleTimeout time.Duration, maxMessages int) *Store {
	if idleTimeout <= 0 {
		idleTimeout = 24 * time.Hour
	}
	if maxMessages <= 0 {
		maxMessages = 100
	}
	return &Store{
		sessions:    make(map[string]*models.ConversationSession),
		locks:       make(map[string]*sync.Mutex),
		backend:     backend,
		idleTimeout: idleTimeout,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// Load reads all persisted sessions into memory. Records idle past the
// timeout are deleted instead of resurrected. Returns the number of
// sessions loaded. Called once at process start.
func (s *Store) Load() (int, error) {
	records, err := s.backend.ReadAll()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded := 0
	for i := range records {
		rec := records[i]
		if s.now().Sub(rec.LastActivity) > s.idleTimeout {
			if err := s.backend.Delete(rec.UserID); err != nil {
				log.Printf("⚠️  [SESSION] Failed to delete stale record for %s: %v", rec.UserID, err)
			}
			continue
		}
		if len(rec.Messages) > s.maxMessages {
			rec.Messages = rec.Messages[len(rec.Messages)-s.maxMessages:]
		}
		s.sessions[rec.UserID] = &rec
		loaded++
	}
	return loaded, nil
}

// GetOrCreate returns a snapshot of the user's active session, creating a
// fresh one (and deleting the stale persisted record) when none exists or
// the existing one is idle past the timeout.
func (s *Store) GetOrCreate(userID, language string) models.ConversationSession {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.activeSession(userID, language)
	return snapshot(sess)
}

// AppendUserMessage records an inbound query, creating the session first if
// needed, and persists the full session.
func (s *Store) AppendUserMessage(userID, text, language string, metadata map[string]string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.activeSession(userID, language)
	s.append(sess, models.Message{
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: s.now(),
		Metadata:  metadata,
	})
}

// AppendAssistantMessage records a produced answer. No-op when the user has
// no session: an answer without a preceding query is not useful history.
func (s *Store) AppendAssistantMessage(userID, text string, metadata map[string]string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.append(sess, models.Message{
		Role:      models.RoleAssistant,
		Content:   text,
		Timestamp: s.now(),
		Metadata:  metadata,
	})
}

// ContextWindow returns the most recent maxMessages entries in
// chronological order, ready to hand to a generation backend. Returns nil
// when the user has no active session.
func (s *Store) ContextWindow(userID string, maxMessages int) []models.Turn {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok || s.expired(sess) {
		return nil
	}

	msgs := sess.Messages
	if maxMessages > 0 && len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	turns := make([]models.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = models.Turn{Role: m.Role, Content: m.Content}
	}
	return turns
}

// Clear removes the session from memory and deletes its persisted record.
func (s *Store) Clear(userID string) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	s.clearLocked(userID)
}

// ExpireIdle evicts every session idle past the timeout and returns how
// many were removed. Run periodically; expiry is also checked lazily on
// GetOrCreate.
func (s *Store) ExpireIdle() int {
	s.mu.Lock()
	candidates := make([]string, 0, len(s.sessions))
	for userID := range s.sessions {
		candidates = append(candidates, userID)
	}
	s.mu.Unlock()

	evicted := 0
	for _, userID := range candidates {
		lock := s.userLock(userID)
		lock.Lock()
		s.mu.Lock()
		sess, ok := s.sessions[userID]
		s.mu.Unlock()
		if ok && s.expired(sess) {
			s.clearLocked(userID)
			evicted++
		}
		lock.Unlock()
	}
	return evicted
}

// Stats is the operational view of one user's session.
func (s *Store) Stats(userID string) models.SessionStats {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok || s.expired(sess) {
		return models.SessionStats{}
	}
	return models.SessionStats{
		Exists:       true,
		MessageCount: len(sess.Messages),
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
		Language:     sess.Language,
		Age:          s.now().Sub(sess.CreatedAt).Round(time.Second).String(),
	}
}

// Count returns the number of in-memory sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// activeSession returns the live session for the user, replacing an expired
// one with a fresh empty session. Caller must hold the user lock.
func (s *Store) activeSession(userID, language string) *models.ConversationSession {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	s.mu.Unlock()

	if ok && !s.expired(sess) {
		return sess
	}
	if ok {
		s.clearLocked(userID)
	}

	now := s.now()
	sess = &models.ConversationSession{
		UserID:       userID,
		Messages:     []models.Message{},
		CreatedAt:    now,
		LastActivity: now,
		Language:     language,
	}
	s.mu.Lock()
	s.sessions[userID] = sess
	s.mu.Unlock()
	return sess
}

// append adds a message, enforces the retained-message cap (oldest dropped
// first) and persists the full session. Caller must hold the user lock.
func (s *Store) append(sess *models.ConversationSession, msg models.Message) {
	sess.Messages = append(sess.Messages, msg)
	if len(sess.Messages) > s.maxMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-s.maxMessages:]
	}
	sess.LastActivity = s.now()
	if err := s.backend.Write(sess); err != nil {
		log.Printf("⚠️  [SESSION] Failed to persist session for %s: %v", sess.UserID, err)
	}
}

func (s *Store) clearLocked(userID string) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	if err := s.backend.Delete(userID); err != nil {
		log.Printf("⚠️  [SESSION] Failed to delete record for %s: %v", userID, err)
	}
}

func (s *Store) expired(sess *models.ConversationSession) bool {
	return s.now().Sub(sess.LastActivity) > s.idleTimeout
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func snapshot(sess *models.ConversationSession) models.ConversationSession {
	copied := *sess
	copied.Messages = append([]models.Message(nil), sess.Messages...)
	return copied
}
