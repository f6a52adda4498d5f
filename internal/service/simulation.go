package service

import (
	"fmt"

	"room_controller/internal/automation"
	"room_controller/internal/hal"
)

// SimulationService drives the simulated room's sensors. It exists only with
// the sim hardware driver.
type SimulationService struct {
	sim *hal.Sim
}

func NewSimulationService(sim *hal.Sim) *SimulationService {
	return &SimulationService{sim: sim}
}

// SetDistance sets the ultrasonic reading; a negative value means no echo.
func (s *SimulationService) SetDistance(cm int) {
	s.sim.SetDistance(cm)
}

// SetClimate sets the next climate sample.
func (s *SimulationService) SetClimate(tempC, humidityPct float64) error {
	if humidityPct < 0 || humidityPct > 100 {
		return fmt.Errorf("humidity %.1f%% out of range", humidityPct)
	}
	s.sim.SetClimate(hal.Climate{TemperatureC: tempC, HumidityPct: humidityPct})
	return nil
}

// PresentCard queues a card presentation. uid is hex, e.g. "cf:db:c5:c4".
func (s *SimulationService) PresentCard(uid string) error {
	b, err := automation.ParseUID(uid)
	if err != nil {
		return err
	}
	s.sim.PresentCard(b)
	return nil
}
