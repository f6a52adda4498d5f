package models

import "time"

// Event types recorded in the session journal.
const (
	EventAccess        = "ACCESS"
	EventLight         = "LIGHT"
	EventFanAuto       = "FAN_AUTO"
	EventFanManual     = "FAN_MANUAL"
	EventOccupancy     = "OCCUPANCY"
	EventReclaim       = "RECLAIM"
	EventSensorError   = "SENSOR_ERROR"
	EventCommandReject = "COMMAND_REJECTED"
	EventSystem        = "SYSTEM"
)

// RoomEvent is a single journal entry.
type RoomEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ACCESS | LIGHT | FAN_AUTO | ...
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
