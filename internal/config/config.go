// Package config loads the controller configuration with viper.
//
// Sources, lowest precedence first: built-in defaults, the YAML file,
// a .env file and ROOM_* environment variables (ROOM_CONTROLLER_MIN_DWELL=3s).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"room_controller/internal/automation"
	"room_controller/internal/hal"
	"room_controller/internal/logger"
)

const envPrefix = "ROOM"

var (
	ErrMissingPort       = errors.New("port is required")
	ErrMissingSigningKey = errors.New("auth.signing_key is required")
	ErrMissingBroker     = errors.New("mqtt.broker is required when mqtt is enabled")
)

// Config is the whole application configuration.
type Config struct {
	Port        string             `mapstructure:"port"`
	LogLevel    string             `mapstructure:"log_level"`
	DB          DBConfig           `mapstructure:"db"`
	Auth        AuthConfig         `mapstructure:"auth"`
	Controller  ControllerConfig   `mapstructure:"controller"`
	Journal     JournalConfig      `mapstructure:"journal"`
	Hardware    hal.Config         `mapstructure:"hardware"`
	Credentials []CredentialConfig `mapstructure:"credentials"`
	MQTT        MQTTConfig         `mapstructure:"mqtt"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig configures the JWT bearer auth of the JSON API.
type AuthConfig struct {
	SigningKey    string        `mapstructure:"signing_key"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// ControllerConfig holds the control loop timing and the automation tunables.
type ControllerConfig struct {
	Tick                time.Duration `mapstructure:"tick"`
	PresenceThresholdCM int           `mapstructure:"presence_threshold_cm"`
	MinDwell            time.Duration `mapstructure:"min_dwell"`
	FanOnThresholdC     int           `mapstructure:"fan_on_threshold_c"`
	FanOffThresholdC    int           `mapstructure:"fan_off_threshold_c"`
	ClimateInterval     time.Duration `mapstructure:"climate_interval"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// JournalConfig sizes the session event journal.
type JournalConfig struct {
	Buffer     int           `mapstructure:"buffer"`
	Retention  time.Duration `mapstructure:"retention"`
	PruneEvery time.Duration `mapstructure:"prune_every"`
}

// CredentialConfig is one authorized card. UID is hex, e.g. "cf:db:c5:c4".
type CredentialConfig struct {
	UID  string `mapstructure:"uid"`
	Name string `mapstructure:"name"`
}

type MQTTConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Broker          string        `mapstructure:"broker"`
	ClientID        string        `mapstructure:"client_id"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	QoS             byte          `mapstructure:"qos"`
	ConnectRetries  int           `mapstructure:"connect_retries"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerOpen     time.Duration `mapstructure:"breaker_open"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "room.db")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.admin_username", "")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("controller.tick", 50*time.Millisecond)
	v.SetDefault("controller.presence_threshold_cm", automation.DefaultPresenceThresholdCM)
	v.SetDefault("controller.min_dwell", automation.DefaultMinDwell)
	v.SetDefault("controller.fan_on_threshold_c", automation.DefaultFanOnThresholdC)
	v.SetDefault("controller.fan_off_threshold_c", automation.DefaultFanOffThresholdC)
	v.SetDefault("controller.climate_interval", 5*time.Second)
	v.SetDefault("controller.request_timeout", 2*time.Second)

	v.SetDefault("journal.buffer", 256)
	v.SetDefault("journal.retention", 24*time.Hour)
	v.SetDefault("journal.prune_every", 10*time.Minute)

	v.SetDefault("hardware.driver", hal.DriverSim)
	v.SetDefault("hardware.pins.light", "GPIO14")
	v.SetDefault("hardware.pins.fan_auto", "GPIO12")
	v.SetDefault("hardware.pins.fan_manual", "GPIO13")
	v.SetDefault("hardware.pins.buzzer", "GPIO25")
	v.SetDefault("hardware.pins.servo", "GPIO18")
	v.SetDefault("hardware.pins.trigger", "GPIO23")
	v.SetDefault("hardware.pins.echo", "GPIO24")
	v.SetDefault("hardware.pins.rfid_reset", "GPIO22")
	v.SetDefault("hardware.pins.rfid_irq", "GPIO27")
	v.SetDefault("hardware.i2c_bus", "")
	v.SetDefault("hardware.lcd_address", 0x27)
	v.SetDefault("hardware.spi_port", "")
	v.SetDefault("hardware.climate_iio_dir", "/sys/bus/iio/devices/iio:device0")
	v.SetDefault("hardware.servo_open_us", 500)
	v.SetDefault("hardware.servo_closed_us", 1495)
	v.SetDefault("hardware.sim.drift", true)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "room-controller")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "room")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_retries", 5)
	v.SetDefault("mqtt.connect_timeout", 5*time.Second)
	v.SetDefault("mqtt.breaker_failures", 5)
	v.SetDefault("mqtt.breaker_open", 30*time.Second)
}

// LoadDotEnv exports the variables of the given .env files. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (YAML) on top of the defaults and applies ROOM_* overrides.
// An empty path runs on defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything the services rely on at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return ErrMissingPort
	}
	if !logger.Valid(c.LogLevel) {
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	if c.Auth.SigningKey == "" {
		return ErrMissingSigningKey
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0, got %s", c.Auth.TokenTTL)
	}
	if c.Controller.Tick <= 0 {
		return fmt.Errorf("controller.tick must be > 0, got %s", c.Controller.Tick)
	}
	if c.Controller.ClimateInterval < c.Controller.Tick {
		return fmt.Errorf("controller.climate_interval %s is shorter than the tick %s",
			c.Controller.ClimateInterval, c.Controller.Tick)
	}
	if c.Controller.RequestTimeout <= 0 {
		return fmt.Errorf("controller.request_timeout must be > 0, got %s", c.Controller.RequestTimeout)
	}
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if c.Journal.Buffer <= 0 {
		return fmt.Errorf("journal.buffer must be > 0, got %d", c.Journal.Buffer)
	}
	if c.Journal.Retention <= 0 || c.Journal.PruneEvery <= 0 {
		return errors.New("journal.retention and journal.prune_every must be > 0")
	}
	switch c.Hardware.Driver {
	case hal.DriverSim, hal.DriverRPi:
	default:
		return fmt.Errorf("hardware.driver %q: want %q or %q", c.Hardware.Driver, hal.DriverSim, hal.DriverRPi)
	}
	if _, err := c.CredentialList(); err != nil {
		return err
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return ErrMissingBroker
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	}
	return nil
}

// Settings returns the automation tunables.
func (c *Config) Settings() automation.Settings {
	return automation.Settings{
		PresenceThresholdCM: c.Controller.PresenceThresholdCM,
		MinDwell:            c.Controller.MinDwell,
		FanOnThresholdC:     c.Controller.FanOnThresholdC,
		FanOffThresholdC:    c.Controller.FanOffThresholdC,
	}
}

// CredentialList decodes the authorized cards. UIDs must be unique.
func (c *Config) CredentialList() ([]automation.Credential, error) {
	out := make([]automation.Credential, 0, len(c.Credentials))
	seen := make(map[string]struct{}, len(c.Credentials))
	for i, cc := range c.Credentials {
		uid, err := automation.ParseUID(cc.UID)
		if err != nil {
			return nil, fmt.Errorf("credentials[%d]: %w", i, err)
		}
		key := string(uid)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("credentials[%d]: duplicate uid %s", i, automation.FormatUID(uid))
		}
		seen[key] = struct{}{}
		name := strings.TrimSpace(cc.Name)
		if name == "" {
			name = automation.FormatUID(uid)
		}
		out = append(out, automation.Credential{UID: uid, Name: name})
	}
	return out, nil
}
