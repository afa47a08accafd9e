package models

import "time"

// Cycle event types appended to the log.
const (
	EventStateChange    = "STATE_CHANGE"
	EventCycleCompleted = "CYCLE_COMPLETED"
	EventConfigChange   = "CONFIG_CHANGE"
)

// CycleEvent is a single entry in the append-only appliance event log.
type CycleEvent struct {
	EventID       string    `json:"event_id"`
	ApplianceID   string    `json:"appliance_id"`
	ApplianceName string    `json:"appliance_name"`
	OccurredAt    time.Time `json:"occurred_at"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Metadata      any       `json:"metadata,omitempty"`
}
