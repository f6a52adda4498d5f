package models

import "time"

// RoomState is an immutable snapshot of the room published after each cycle.
type RoomState struct {
	TemperatureC      int       `json:"temperature_c"`
	HumidityPct       float64   `json:"humidity_pct"`
	ClimateSampledAt  time.Time `json:"climate_sampled_at"` // zero (0001-01-01T00:00:00Z) until the first climate sample
	Occupied          bool      `json:"occupied"`
	PresenceConfirmed bool      `json:"presence_confirmed"`
	LightOn           bool      `json:"light_on"`
	ManualOverride    bool      `json:"manual_override"`
	FanAutoOn         bool      `json:"fan_auto_on"`
	FanManualOn       bool      `json:"fan_manual_on"`
	FanOnThresholdC   int       `json:"fan_on_threshold_c"`
	FanOffThresholdC  int       `json:"fan_off_threshold_c"`
	Door              string    `json:"door"`                  // LOCKED | UNLOCKED
	DoorHolder        string    `json:"door_holder,omitempty"` // name of the credential that last unlocked it
	Feedback          string    `json:"feedback,omitempty"`    // feedback sequence currently playing
	Message           string    `json:"message,omitempty"`     // one-shot system message
	UpdatedAt         time.Time `json:"updated_at"`
}
