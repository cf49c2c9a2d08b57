package models

import "time"

// Message roles. Only user and assistant turns are kept in conversation
// history; system prompts are supplied by the resolver per call.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single immutable conversation entry. Never mutated after
// creation; sessions only append.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Turn is the reduced role/content pair handed to generation backends as
// prior conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
