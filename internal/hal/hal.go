// Package hal abstracts the room's sensors and actuators.
//
// The default driver is an in-memory simulation so the controller and its web
// surface run on any machine. The Raspberry Pi driver (hal_rpi.go) is only
// compiled for linux/arm and linux/arm64.
package hal

import (
	"errors"
	"fmt"
	"io"
)

// Driver names accepted by Open.
const (
	DriverSim = "sim"
	DriverRPi = "rpi"
)

var (
	// ErrNoEcho is returned by distance sensors when no target reflected the pulse.
	ErrNoEcho = errors.New("no echo")
	// ErrUnsupported is returned when a driver is not available on this platform.
	ErrUnsupported = errors.New("hardware driver not supported on this platform")
)

// Climate is one climate sensor sample.
type Climate struct {
	TemperatureC float64
	HumidityPct  float64
}

// DistanceSensor measures the distance to the nearest target in centimeters.
type DistanceSensor interface {
	DistanceCM() (int, error)
}

// ClimateSensor reads temperature and relative humidity.
type ClimateSensor interface {
	ReadClimate() (Climate, error)
}

// CardReader reports newly presented identity cards.
type CardReader interface {
	// Poll returns the UID of a newly presented card. ok is false when no card
	// is present or the read failed.
	Poll() (uid []byte, ok bool)
	// Release ends the exchange with the card after it was processed.
	Release()
}

// Display renders two short lines of text.
type Display interface {
	Show(line1, line2 string) error
	Clear() error
}

// Switch is an on/off actuator (light, fans).
type Switch interface {
	Set(on bool) error
}

// Buzzer plays single tones.
type Buzzer interface {
	Tone(hz int) error
	Silence() error
}

// DoorActuator moves the door latch.
type DoorActuator interface {
	Set(unlocked bool) error
}

// Hardware bundles every collaborator of one room.
type Hardware struct {
	Distance  DistanceSensor
	Climate   ClimateSensor
	Reader    CardReader
	Display   Display
	Light     Switch
	FanAuto   Switch
	FanManual Switch
	Buzzer    Buzzer
	Door      DoorActuator

	// Sim is set when the simulated driver is in use.
	Sim *Sim

	closers []io.Closer
}

// Close releases buses and pins held by the driver.
func (h *Hardware) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PinConfig names GPIO lines as the host knows them (e.g. "GPIO14").
type PinConfig struct {
	Light     string `mapstructure:"light"`
	FanAuto   string `mapstructure:"fan_auto"`
	FanManual string `mapstructure:"fan_manual"`
	Buzzer    string `mapstructure:"buzzer"`
	Servo     string `mapstructure:"servo"`
	Trigger   string `mapstructure:"trigger"`
	Echo      string `mapstructure:"echo"`
	RFIDReset string `mapstructure:"rfid_reset"`
	RFIDIRQ   string `mapstructure:"rfid_irq"`
}

// Config selects and parameterizes a driver.
type Config struct {
	Driver            string    `mapstructure:"driver"`
	Pins              PinConfig `mapstructure:"pins"`
	I2CBus            string    `mapstructure:"i2c_bus"`
	LCDAddress        uint16    `mapstructure:"lcd_address"`
	SPIPort           string    `mapstructure:"spi_port"`
	ClimateIIODir     string    `mapstructure:"climate_iio_dir"`
	ServoOpenMicros   int       `mapstructure:"servo_open_us"`
	ServoClosedMicros int       `mapstructure:"servo_closed_us"`
	Sim               SimConfig `mapstructure:"sim"`
}

// Open builds the hardware for cfg.Driver.
func Open(cfg Config) (*Hardware, error) {
	switch cfg.Driver {
	case "", DriverSim:
		sim := NewSim(cfg.Sim)
		return sim.Hardware(), nil
	case DriverRPi:
		return openRPi(cfg)
	default:
		return nil, fmt.Errorf("unknown hardware driver %q", cfg.Driver)
	}
}
