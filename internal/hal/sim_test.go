package hal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSim_Sensors(t *testing.T) {
	sim := NewSim(SimConfig{InitialTempC: 21, HumidityPct: 40})

	if cm, err := sim.DistanceCM(); !errors.Is(err, ErrNoEcho) || cm != -1 {
		t.Fatalf("empty room: got %d, %v", cm, err)
	}
	sim.SetDistance(15)
	if cm, err := sim.DistanceCM(); err != nil || cm != 15 {
		t.Fatalf("got %d, %v", cm, err)
	}

	c, err := sim.ReadClimate()
	if err != nil || c.TemperatureC != 21 || c.HumidityPct != 40 {
		t.Fatalf("unexpected climate %+v, %v", c, err)
	}
	boom := errors.New("checksum")
	sim.FailClimate(boom)
	if _, err := sim.ReadClimate(); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	sim.SetClimate(Climate{TemperatureC: 26})
	if c, err := sim.ReadClimate(); err != nil || c.TemperatureC != 26 {
		t.Fatalf("SetClimate should clear failure: %+v, %v", c, err)
	}
}

func TestSim_CardQueue(t *testing.T) {
	sim := NewSim(SimConfig{})
	if _, ok := sim.Poll(); ok {
		t.Fatalf("no card presented yet")
	}
	uid := []byte{1, 2, 3, 4}
	sim.PresentCard(uid)
	uid[0] = 9
	sim.PresentCard([]byte{5, 6, 7, 8})
	if sim.PendingCards() != 2 {
		t.Fatalf("expected 2 pending cards")
	}
	got, ok := sim.Poll()
	if !ok || got[0] != 1 {
		t.Fatalf("expected first card copied at presentation, got %v", got)
	}
	sim.Release()
	if sim.Released() != 1 || sim.PendingCards() != 1 {
		t.Fatalf("released=%d pending=%d", sim.Released(), sim.PendingCards())
	}
}

func TestSim_DriftWarmsAndCools(t *testing.T) {
	sim := NewSim(SimConfig{AmbientC: 20, HeatLoadC: 30, WarmCPerSec: 1, CoolCPerSec: 2, InitialTempC: 25})

	if !sim.drift(3, false) {
		t.Fatalf("expected warming")
	}
	if c, _ := sim.ReadClimate(); c.TemperatureC != 28 {
		t.Fatalf("got %.1f, want 28", c.TemperatureC)
	}
	sim.drift(10, false)
	if c, _ := sim.ReadClimate(); c.TemperatureC != 30 {
		t.Fatalf("expected clamp to heat load, got %.1f", c.TemperatureC)
	}
	if sim.drift(1, false) {
		t.Fatalf("did not expect change at heat load")
	}
	sim.drift(2, true)
	if c, _ := sim.ReadClimate(); c.TemperatureC != 26 {
		t.Fatalf("got %.1f, want 26", c.TemperatureC)
	}
	sim.drift(100, true)
	if c, _ := sim.ReadClimate(); c.TemperatureC != 20 {
		t.Fatalf("expected clamp to ambient, got %.1f", c.TemperatureC)
	}
}

func TestSim_Actuators(t *testing.T) {
	sim := NewSim(SimConfig{})
	hw := sim.Hardware()

	_ = hw.Light.Set(true)
	_ = hw.Door.Set(true)
	_ = hw.Buzzer.Tone(659)
	_ = hw.Display.Show("Welcome:", "Anne")

	if !sim.LightSwitch.On() || sim.LightSwitch.Writes() != 1 {
		t.Fatalf("light not recorded")
	}
	if !sim.Latch.Unlocked() || sim.Latch.Moves() != 1 {
		t.Fatalf("door not recorded")
	}
	if sim.Speaker.Sounding() != 659 {
		t.Fatalf("tone not recorded")
	}
	_ = hw.Buzzer.Silence()
	if sim.Speaker.Sounding() != 0 || len(sim.Speaker.Played()) != 1 {
		t.Fatalf("silence not recorded")
	}
	if got := sim.Screen.Lines(); got != [2]string{"Welcome:", "Anne"} {
		t.Fatalf("display lines %v", got)
	}
	if hw.Sim != sim {
		t.Fatalf("hardware must expose the simulation")
	}
}

func TestOpen_Drivers(t *testing.T) {
	hw, err := Open(Config{Driver: DriverSim})
	if err != nil || hw.Sim == nil {
		t.Fatalf("sim driver: %v", err)
	}
	if err := hw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := Open(Config{Driver: "x10"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestIIOClimate(t *testing.T) {
	dir := t.TempDir()
	write := func(name, v string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(v), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	c := NewIIOClimate(dir)
	if _, err := c.ReadClimate(); err == nil {
		t.Fatalf("expected error without files")
	}
	write("in_temp_input", "23500\n")
	write("in_humidityrelative_input", "61000\n")
	got, err := c.ReadClimate()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.TemperatureC != 23.5 || got.HumidityPct != 61 {
		t.Fatalf("unexpected %+v", got)
	}
	write("in_temp_input", "garbage")
	if _, err := c.ReadClimate(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLCDLine(t *testing.T) {
	got := lcdLine("Temp: 25°C")
	if len(got) != lcdColumns {
		t.Fatalf("len=%d", len(got))
	}
	if got[8] != hd44780Degree || got[9] != 'C' || got[15] != ' ' {
		t.Fatalf("unexpected encoding % x", got)
	}
	if string(lcdLine("Already open by another user")) != "Already open by " {
		t.Fatalf("expected truncation")
	}
	if lcdLine("Olá")[2] != '?' {
		t.Fatalf("expected replacement for non-ASCII rune")
	}
}
