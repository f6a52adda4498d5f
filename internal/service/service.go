package service

import (
	"context"

	"room_controller/internal/automation"
	"room_controller/internal/models"
	"room_controller/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	IsAdmin(userID int) (bool, error)
}

// Controller is the command surface of the control loop.
type Controller interface {
	Execute(ctx context.Context, cmd Command) (CommandResult, error)
	Status(ctx context.Context) (models.RoomState, error)
}

// Monitoring exposes the read-only published snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.RoomState, error)
}

// EventLog exposes the session journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RoomEvent, error)
}

// Simulation drives simulated sensors; nil unless the sim driver is in use.
type Simulation interface {
	SetDistance(cm int)
	SetClimate(tempC, humidityPct float64) error
	PresentCard(uid string) error
}

// Service aggregates everything the transports need.
type Service struct {
	Controller
	Monitoring
	EventLog
	Authorization
	Simulation
}

// Deps are the services built outside the repository layer.
type Deps struct {
	Controller *ControllerService
	Simulation Simulation
	Auth       AuthSettings
	Settings   automation.Settings
}

// NewService wires the repositories and the running controller into the
// transport-facing services.
func NewService(repos *repository.Repository, deps Deps) *Service {
	return &Service{
		Controller:    deps.Controller,
		Monitoring:    NewMonitoringService(repos.StateRepo, deps.Settings),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, deps.Auth),
		Simulation:    deps.Simulation,
	}
}
