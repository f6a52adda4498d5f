// Package automation holds the decision logic of the room controller.
//
// Every function here is pure with respect to time: callers pass "now" in and
// get new state values back. The controller goroutine is the only writer of a
// State value, so nothing in this package takes locks.
package automation

import (
	"errors"
	"fmt"
	"time"
)

// Defaults mirror the values the controller ships with.
const (
	DefaultPresenceThresholdCM = 20
	DefaultMinDwell            = 5 * time.Second
	DefaultFanOnThresholdC     = 25
	DefaultFanOffThresholdC    = 22
)

var (
	errPresenceThreshold = errors.New("presence threshold must be > 0 cm")
	errMinDwell          = errors.New("minimum dwell must not be negative")
)

// Settings are the tunables of the core, loaded once at startup.
type Settings struct {
	PresenceThresholdCM int
	MinDwell            time.Duration
	FanOnThresholdC     int
	FanOffThresholdC    int
}

// DefaultSettings returns the factory tunables.
func DefaultSettings() Settings {
	return Settings{
		PresenceThresholdCM: DefaultPresenceThresholdCM,
		MinDwell:            DefaultMinDwell,
		FanOnThresholdC:     DefaultFanOnThresholdC,
		FanOffThresholdC:    DefaultFanOffThresholdC,
	}
}

// Validate checks the invariants the components rely on.
func (s Settings) Validate() error {
	if s.PresenceThresholdCM <= 0 {
		return errPresenceThreshold
	}
	if s.MinDwell < 0 {
		return errMinDwell
	}
	if s.FanOnThresholdC <= s.FanOffThresholdC {
		return fmt.Errorf("fan on threshold %d°C must be above off threshold %d°C",
			s.FanOnThresholdC, s.FanOffThresholdC)
	}
	return nil
}

// OccupancyState is the debounced presence signal.
type OccupancyState struct {
	Occupied   bool      // instantaneous, from the current sample
	Confirmed  bool      // Occupied held continuously for at least the minimum dwell
	DwellStart time.Time // zero when not dwelling
}

// LightingState is owned by the lighting arbiter.
// ManualOverride is only ever true while On is false.
type LightingState struct {
	On             bool
	ManualOverride bool
}

// VentilationAutoState is driven by temperature alone.
type VentilationAutoState struct {
	On bool
}

// VentilationManualState is driven by manual commands and the reclaimer.
type VentilationManualState struct {
	On bool
}

// Climate is the last accepted climate sample.
type Climate struct {
	TemperatureC int
	HumidityPct  float64
	SampledAt    time.Time // zero until the first valid sample
}

// State is the single process-wide state block of one room.
type State struct {
	Occupancy OccupancyState
	Lighting  LightingState
	FanAuto   VentilationAutoState
	FanManual VentilationManualState
	Door      DoorState
	Climate   Climate

	// Message is the one-shot system message shown on the status view.
	Message string
}

// Post stores a notice in the system message slot. Empty notices are ignored.
func (s *State) Post(n Notice) {
	if n.IsZero() {
		return
	}
	s.Message = n.Text
}

// TakeMessage returns the system message and clears it.
func (s *State) TakeMessage() string {
	msg := s.Message
	s.Message = ""
	return msg
}
