package service

import (
	"errors"
	"fmt"
	"strings"

	"room_controller/internal/automation"
	"room_controller/internal/models"
)

// ErrUnknownCommand is returned for command names outside the command surface.
var ErrUnknownCommand = errors.New("unknown command")

// Target is the actuator a manual command addresses.
type Target string

const (
	TargetLight     Target = "light"
	TargetFanManual Target = "fan_manual"
)

// Command is a manual on/off request from a remote surface.
type Command struct {
	Target Target
	On     bool
}

// ParseCommand accepts "light:on", "light:off", "fan_manual:on" and "fan_manual:off",
// case-insensitively. "/" works as the separator too, so URL paths parse as well.
func ParseCommand(s string) (Command, error) {
	norm := strings.ToLower(strings.Trim(strings.TrimSpace(s), "/"))
	target, action, ok := strings.Cut(strings.ReplaceAll(norm, "/", ":"), ":")
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	var cmd Command
	switch Target(target) {
	case TargetLight, TargetFanManual:
		cmd.Target = Target(target)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	switch action {
	case "on":
		cmd.On = true
	case "off":
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return cmd, nil
}

func (c Command) String() string {
	if c.On {
		return string(c.Target) + ":on"
	}
	return string(c.Target) + ":off"
}

// eventType is the journal type of the state the command drives.
func (c Command) eventType() string {
	if c.Target == TargetLight {
		return models.EventLight
	}
	return models.EventFanManual
}

// apply runs the command against st and returns the notice.
func (c Command) apply(st *automation.State) automation.Notice {
	var n automation.Notice
	switch c.Target {
	case TargetLight:
		cmd := automation.LightOff
		if c.On {
			cmd = automation.LightOn
		}
		st.Lighting, n = automation.ArbitrateLight(st.Lighting, st.Occupancy, cmd)
	case TargetFanManual:
		st.FanManual, n = automation.SetManualFan(st.FanManual, c.On, st.Occupancy.Occupied)
	}
	return n
}

// CommandResult is what a remote surface gets back after a command was applied.
type CommandResult struct {
	Command  string           `json:"command"`
	Notice   string           `json:"notice,omitempty"`
	Kind     string           `json:"kind,omitempty"`
	Rejected bool             `json:"rejected"`
	State    models.RoomState `json:"state"`
}
