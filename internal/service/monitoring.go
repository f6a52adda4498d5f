package service

import (
	"context"
	"time"

	"room_controller/internal/automation"
	"room_controller/internal/models"
	"room_controller/internal/repository"
)

// MonitoringService serves the last published snapshot. It never touches the
// system message; use ControllerService.Status to consume it.
type MonitoringService struct {
	stateRepo repository.StateRepo
	settings  automation.Settings
}

func NewMonitoringService(stateRepo repository.StateRepo, settings automation.Settings) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, settings: settings}
}

// GetState returns the latest snapshot, or a baseline empty-room snapshot
// before the controller published its first one.
func (s *MonitoringService) GetState(ctx context.Context) (models.RoomState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.RoomState{}, err
	}
	if state.UpdatedAt.IsZero() {
		return s.baselineState(), nil
	}
	state.ClimateSampledAt = toUTC(state.ClimateSampledAt)
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

// baselineState is an empty room with the door locked and everything off.
func (s *MonitoringService) baselineState() models.RoomState {
	return models.RoomState{
		FanOnThresholdC:  s.settings.FanOnThresholdC,
		FanOffThresholdC: s.settings.FanOffThresholdC,
		Door:             automation.DoorLocked.String(),
		UpdatedAt:        time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
