package hal

import (
	"context"
	"sync"
	"time"
)

// Climate drift defaults for the simulated room.
const (
	defaultSimAmbientC  = 24.0
	defaultSimHeatLoadC = 28.0
	defaultSimWarmRate  = 0.02 // °C per second while the automatic fan is off
	defaultSimCoolRate  = 0.05 // °C per second while the automatic fan is on
	defaultSimHumidity  = 55.0
)

// SimConfig tunes the simulated room.
type SimConfig struct {
	Drift        bool    `mapstructure:"drift"`
	AmbientC     float64 `mapstructure:"ambient_c"`
	HeatLoadC    float64 `mapstructure:"heat_load_c"`
	WarmCPerSec  float64 `mapstructure:"warm_c_per_sec"`
	CoolCPerSec  float64 `mapstructure:"cool_c_per_sec"`
	HumidityPct  float64 `mapstructure:"humidity_pct"`
	InitialTempC float64 `mapstructure:"initial_temp_c"`
}

func (c SimConfig) withDefaults() SimConfig {
	if c.AmbientC == 0 {
		c.AmbientC = defaultSimAmbientC
	}
	if c.HeatLoadC == 0 {
		c.HeatLoadC = defaultSimHeatLoadC
	}
	if c.WarmCPerSec == 0 {
		c.WarmCPerSec = defaultSimWarmRate
	}
	if c.CoolCPerSec == 0 {
		c.CoolCPerSec = defaultSimCoolRate
	}
	if c.HumidityPct == 0 {
		c.HumidityPct = defaultSimHumidity
	}
	if c.InitialTempC == 0 {
		c.InitialTempC = c.AmbientC
	}
	return c
}

// Sim is an in-memory room. Sensors are set from tests or the simulation API;
// actuators record what the controller commanded.
type Sim struct {
	cfg SimConfig

	mu         sync.Mutex
	distanceCM int
	climate    Climate
	climateErr error
	cards      [][]byte
	released   int

	LightSwitch     *SimSwitch
	FanAutoSwitch   *SimSwitch
	FanManualSwitch *SimSwitch
	Screen          *SimDisplay
	Speaker         *SimBuzzer
	Latch           *SimDoor
}

// NewSim builds a simulated room with nobody inside.
func NewSim(cfg SimConfig) *Sim {
	cfg = cfg.withDefaults()
	return &Sim{
		cfg:             cfg,
		distanceCM:      -1,
		climate:         Climate{TemperatureC: cfg.InitialTempC, HumidityPct: cfg.HumidityPct},
		LightSwitch:     &SimSwitch{},
		FanAutoSwitch:   &SimSwitch{},
		FanManualSwitch: &SimSwitch{},
		Screen:          &SimDisplay{},
		Speaker:         &SimBuzzer{},
		Latch:           &SimDoor{},
	}
}

// Hardware exposes the simulation through the collaborator interfaces.
func (s *Sim) Hardware() *Hardware {
	return &Hardware{
		Distance:  s,
		Climate:   s,
		Reader:    s,
		Display:   s.Screen,
		Light:     s.LightSwitch,
		FanAuto:   s.FanAutoSwitch,
		FanManual: s.FanManualSwitch,
		Buzzer:    s.Speaker,
		Door:      s.Latch,
		Sim:       s,
	}
}

// SetDistance sets the next distance readings; negative means no target.
func (s *Sim) SetDistance(cm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distanceCM = cm
}

// SetClimate sets the climate readings and clears any injected failure.
func (s *Sim) SetClimate(c Climate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.climate = c
	s.climateErr = nil
}

// FailClimate makes climate reads fail with err until SetClimate is called.
func (s *Sim) FailClimate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.climateErr = err
}

// PresentCard queues a card presentation.
func (s *Sim) PresentCard(uid []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, append([]byte(nil), uid...))
}

// PendingCards returns how many presentations were not polled yet.
func (s *Sim) PendingCards() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

// Released returns how many card exchanges were released.
func (s *Sim) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// DistanceCM implements DistanceSensor.
func (s *Sim) DistanceCM() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.distanceCM < 0 {
		return -1, ErrNoEcho
	}
	return s.distanceCM, nil
}

// ReadClimate implements ClimateSensor.
func (s *Sim) ReadClimate() (Climate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.climateErr != nil {
		return Climate{}, s.climateErr
	}
	return s.climate, nil
}

// Poll implements CardReader.
func (s *Sim) Poll() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cards) == 0 {
		return nil, false
	}
	uid := s.cards[0]
	s.cards = s.cards[1:]
	return uid, true
}

// Release implements CardReader.
func (s *Sim) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

// Run drifts the simulated temperature until ctx is canceled: the room warms
// toward its heat load and the automatic fan pulls it back toward ambient.
func (s *Sim) Run(ctx context.Context, tick time.Duration) {
	if !s.cfg.Drift {
		return
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			s.drift(elapsed, s.FanAutoSwitch.On())
		}
	}
}

// drift moves the temperature for elapsed seconds. Returns true if it changed.
func (s *Sim) drift(elapsed float64, fanOn bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.climate.TemperatureC
	if fanOn {
		if cur > s.cfg.AmbientC {
			s.climate.TemperatureC = maxFloat(cur-s.cfg.CoolCPerSec*elapsed, s.cfg.AmbientC)
		}
	} else if cur < s.cfg.HeatLoadC {
		s.climate.TemperatureC = minFloat(cur+s.cfg.WarmCPerSec*elapsed, s.cfg.HeatLoadC)
	}
	return s.climate.TemperatureC != cur
}

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a <= b {
		return a
	}
	return b
}

// SimSwitch records the commanded state.
type SimSwitch struct {
	mu     sync.Mutex
	on     bool
	writes int
}

// Set implements Switch.
func (s *SimSwitch) Set(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.on = on
	s.writes++
	return nil
}

// On returns the last commanded state.
func (s *SimSwitch) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Writes returns how many times Set was called.
func (s *SimSwitch) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// SimDisplay keeps the last rendered lines.
type SimDisplay struct {
	mu    sync.Mutex
	lines [2]string
}

// Show implements Display.
func (d *SimDisplay) Show(line1, line2 string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = [2]string{line1, line2}
	return nil
}

// Clear implements Display.
func (d *SimDisplay) Clear() error {
	return d.Show("", "")
}

// Lines returns what is on screen.
func (d *SimDisplay) Lines() [2]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines
}

// SimBuzzer records tones.
type SimBuzzer struct {
	mu      sync.Mutex
	current int
	played  []int
}

// Tone implements Buzzer.
func (b *SimBuzzer) Tone(hz int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = hz
	b.played = append(b.played, hz)
	return nil
}

// Silence implements Buzzer.
func (b *SimBuzzer) Silence() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = 0
	return nil
}

// Sounding returns the frequency playing now, 0 when silent.
func (b *SimBuzzer) Sounding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Played returns every tone played so far.
func (b *SimBuzzer) Played() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.played...)
}

// SimDoor records the latch position.
type SimDoor struct {
	mu       sync.Mutex
	unlocked bool
	moves    int
}

// Set implements DoorActuator.
func (d *SimDoor) Set(unlocked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unlocked = unlocked
	d.moves++
	return nil
}

// Unlocked returns the latch position.
func (d *SimDoor) Unlocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unlocked
}

// Moves returns how many times the latch was driven.
func (d *SimDoor) Moves() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moves
}
