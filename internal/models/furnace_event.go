package models

import "time"

// Journal entry types.
const (
	EventTransition  = "TRANSITION"
	EventError       = "ERROR"
	EventInterrupted = "INTERRUPTED"
	EventCommand     = "COMMAND"
)

// FurnaceEvent is a single journal entry.
type FurnaceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // TRANSITION | ERROR | INTERRUPTED | COMMAND
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
