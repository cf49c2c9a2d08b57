package models

import "time"

// ConversationSession holds one user's bounded conversational history.
// Owned exclusively by the session store; callers read and append through
// its interface and never mutate fields directly.
type ConversationSession struct {
	UserID       string            `json:"user_id"`
	Messages     []Message         `json:"messages"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	Language     string            `json:"language"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SessionStats is the read-only view exposed to operational callers.
type SessionStats struct {
	Exists       bool      `json:"exists"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	Language     string    `json:"language,omitempty"`
	Age          string    `json:"age,omitempty"`
}
