package models

// Answer sources, from strongest to weakest tier. The three-valued
// distinction is kept on the wire so downstream consumers can tell a
// knowledge-grounded answer from a canned one from a shrug.
const (
	SourceGeneration = "generation"
	SourceKeyword    = "keyword"
	SourceFallback   = "fallback"
)

// QueryOutcome is the resolution pipeline's return contract. Produced fresh
// per call; the pipeline never raises — every query ends in one of these.
type QueryOutcome struct {
	Success              bool    `json:"success"`
	Answer               string  `json:"answer"`
	Confidence           float64 `json:"confidence"`
	Source               string  `json:"source"`
	ShouldContactManager bool    `json:"should_contact_manager"`
	ContextUsed          bool    `json:"context_used,omitempty"`
	ResponseTimeMs       int64   `json:"response_time_ms"`
}
