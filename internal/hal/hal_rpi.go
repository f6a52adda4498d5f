//go:build linux && (arm || arm64)

package hal

import (
	"bytes"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
	"periph.io/x/host/v3"
)

const (
	servoFrequency = 50 * physic.Hertz
	servoPeriodUS  = 20000
	echoTimeout    = 30 * time.Millisecond // ~5 m round trip
	cardPollWait   = 20 * time.Millisecond
	cardRearm      = time.Second
)

// openRPi wires the Raspberry Pi peripherals with periph.io.
func openRPi(cfg Config) (*Hardware, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	hw := &Hardware{}
	fail := func(err error) (*Hardware, error) {
		_ = hw.Close()
		return nil, err
	}

	pin := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio %q not found", name)
		}
		return p, nil
	}

	for _, sw := range []struct {
		name string
		dst  *Switch
	}{
		{cfg.Pins.Light, &hw.Light},
		{cfg.Pins.FanAuto, &hw.FanAuto},
		{cfg.Pins.FanManual, &hw.FanManual},
	} {
		p, err := pin(sw.name)
		if err != nil {
			return fail(err)
		}
		if err := p.Out(gpio.Low); err != nil {
			return fail(fmt.Errorf("gpio %s out: %w", sw.name, err))
		}
		*sw.dst = &gpioSwitch{pin: p}
	}

	buzzer, err := pin(cfg.Pins.Buzzer)
	if err != nil {
		return fail(err)
	}
	hw.Buzzer = &pwmBuzzer{pin: buzzer}

	servo, err := pin(cfg.Pins.Servo)
	if err != nil {
		return fail(err)
	}
	hw.Door = &servoLatch{pin: servo, openUS: cfg.ServoOpenMicros, closedUS: cfg.ServoClosedMicros}

	trig, err := pin(cfg.Pins.Trigger)
	if err != nil {
		return fail(err)
	}
	echo, err := pin(cfg.Pins.Echo)
	if err != nil {
		return fail(err)
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return fail(fmt.Errorf("gpio %s in: %w", cfg.Pins.Echo, err))
	}
	hw.Distance = &ultrasonic{trig: trig, echo: echo}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return fail(fmt.Errorf("open i2c %q: %w", cfg.I2CBus, err))
	}
	hw.closers = append(hw.closers, bus)
	lcd := &pcf8574LCD{dev: &i2c.Dev{Bus: bus, Addr: cfg.LCDAddress}}
	if err := lcd.init(); err != nil {
		return fail(fmt.Errorf("init lcd: %w", err))
	}
	hw.Display = lcd

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return fail(fmt.Errorf("open spi %q: %w", cfg.SPIPort, err))
	}
	hw.closers = append(hw.closers, port)
	rst, err := pin(cfg.Pins.RFIDReset)
	if err != nil {
		return fail(err)
	}
	irq, err := pin(cfg.Pins.RFIDIRQ)
	if err != nil {
		return fail(err)
	}
	rfid, err := mfrc522.NewSPI(port, rst, irq)
	if err != nil {
		return fail(fmt.Errorf("init mfrc522: %w", err))
	}
	hw.Reader = &rfidReader{dev: rfid}

	hw.Climate = NewIIOClimate(cfg.ClimateIIODir)
	return hw, nil
}

type gpioSwitch struct {
	pin gpio.PinIO
}

func (s *gpioSwitch) Set(on bool) error {
	if on {
		return s.pin.Out(gpio.High)
	}
	return s.pin.Out(gpio.Low)
}

type pwmBuzzer struct {
	pin gpio.PinIO
}

func (b *pwmBuzzer) Tone(hz int) error {
	return b.pin.PWM(gpio.DutyHalf, physic.Frequency(hz)*physic.Hertz)
}

func (b *pwmBuzzer) Silence() error {
	return b.pin.Out(gpio.Low)
}

// servoLatch holds the door servo at the pulse width of each position.
type servoLatch struct {
	pin      gpio.PinIO
	openUS   int
	closedUS int
}

func (l *servoLatch) Set(unlocked bool) error {
	us := l.closedUS
	if unlocked {
		us = l.openUS
	}
	duty := gpio.Duty(int64(gpio.DutyMax) * int64(us) / servoPeriodUS)
	return l.pin.PWM(duty, servoFrequency)
}

// ultrasonic drives an HC-SR04: a 10µs trigger pulse, then the echo pulse
// width is proportional to the round trip time (58µs per cm).
type ultrasonic struct {
	trig gpio.PinIO
	echo gpio.PinIO
}

func (u *ultrasonic) DistanceCM() (int, error) {
	if err := u.trig.Out(gpio.Low); err != nil {
		return -1, err
	}
	time.Sleep(2 * time.Microsecond)
	if err := u.trig.Out(gpio.High); err != nil {
		return -1, err
	}
	time.Sleep(10 * time.Microsecond)
	if err := u.trig.Out(gpio.Low); err != nil {
		return -1, err
	}
	if !u.echo.WaitForEdge(echoTimeout) || u.echo.Read() != gpio.High {
		return -1, ErrNoEcho
	}
	start := time.Now()
	if !u.echo.WaitForEdge(echoTimeout) {
		return -1, ErrNoEcho
	}
	return int(time.Since(start).Microseconds() / 58), nil
}

// rfidReader reports a card once per presentation: the same UID is only
// reported again after it has been away for cardRearm.
type rfidReader struct {
	dev      *mfrc522.Dev
	lastUID  []byte
	lastSeen time.Time
}

func (r *rfidReader) Poll() ([]byte, bool) {
	uid, err := r.dev.ReadUID(cardPollWait)
	if err != nil || len(uid) == 0 {
		return nil, false
	}
	now := time.Now()
	fresh := !bytes.Equal(uid, r.lastUID) || now.Sub(r.lastSeen) > cardRearm
	r.lastUID = uid
	r.lastSeen = now
	return uid, fresh
}

func (r *rfidReader) Release() {
	r.lastSeen = time.Now()
}

// pcf8574LCD drives an HD44780 16x2 through a PCF8574 I2C backpack in 4-bit mode.
type pcf8574LCD struct {
	dev *i2c.Dev
}

const (
	lcdRS        = 0x01
	lcdEnable    = 0x04
	lcdBacklight = 0x08

	lcdClear       = 0x01
	lcdEntryMode   = 0x06
	lcdDisplayOn   = 0x0C
	lcdFunction4b2 = 0x28
	lcdLine1       = 0x80
	lcdLine2       = 0xC0
)

func (l *pcf8574LCD) init() error {
	time.Sleep(50 * time.Millisecond)
	for _, n := range []byte{0x30, 0x30, 0x30, 0x20} {
		if err := l.write4(n); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
	for _, c := range []byte{lcdFunction4b2, lcdDisplayOn, lcdEntryMode} {
		if err := l.send(c, 0); err != nil {
			return err
		}
	}
	return l.Clear()
}

func (l *pcf8574LCD) write4(data byte) error {
	data |= lcdBacklight
	if _, err := l.dev.Write([]byte{data | lcdEnable, data}); err != nil {
		return err
	}
	time.Sleep(50 * time.Microsecond)
	return nil
}

func (l *pcf8574LCD) send(value, mode byte) error {
	if err := l.write4(value&0xF0 | mode); err != nil {
		return err
	}
	return l.write4((value<<4)&0xF0 | mode)
}

func (l *pcf8574LCD) Clear() error {
	if err := l.send(lcdClear, 0); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

func (l *pcf8574LCD) Show(line1, line2 string) error {
	for _, row := range []struct {
		addr byte
		text string
	}{{lcdLine1, line1}, {lcdLine2, line2}} {
		if err := l.send(row.addr, 0); err != nil {
			return err
		}
		for _, b := range lcdLine(row.text) {
			if err := l.send(b, lcdRS); err != nil {
				return err
			}
		}
	}
	return nil
}
