package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOClimate reads a DHT11/DHT22 bound to the Linux dht11 IIO driver.
// Values are exported in milli-units under the device directory.
type IIOClimate struct {
	dir string
}

// NewIIOClimate reads from dir, e.g. /sys/bus/iio/devices/iio:device0.
func NewIIOClimate(dir string) *IIOClimate {
	return &IIOClimate{dir: dir}
}

// ReadClimate implements ClimateSensor. The kernel driver returns EIO when the
// sensor misses a handshake; callers keep their last good sample.
func (c *IIOClimate) ReadClimate() (Climate, error) {
	temp, err := readMilli(filepath.Join(c.dir, "in_temp_input"))
	if err != nil {
		return Climate{}, err
	}
	hum, err := readMilli(filepath.Join(c.dir, "in_humidityrelative_input"))
	if err != nil {
		return Climate{}, err
	}
	return Climate{TemperatureC: temp, HumidityPct: hum}, nil
}

func readMilli(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return float64(v) / 1000, nil
}
