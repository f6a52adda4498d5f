package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"room_controller/internal/automation"
	"room_controller/internal/feedback"
	"room_controller/internal/hal"
	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/models"
	"room_controller/internal/repository"
)

// ErrControllerBusy is returned when the control loop did not take or answer
// a request before the caller's deadline.
var ErrControllerBusy = errors.New("controller did not answer in time")

const inboxSize = 32

// ControllerConfig parameterizes the control loop.
type ControllerConfig struct {
	Settings        automation.Settings
	ClimateInterval time.Duration
	RequestTimeout  time.Duration
}

// EventRecorder receives journal events from the control loop. It must not block.
type EventRecorder interface {
	Record(e models.RoomEvent)
}

// request is a transport call waiting for the control goroutine.
// cmd is nil for a status query.
type request struct {
	cmd   *Command
	reply chan CommandResult
}

// output tracks what was last written to a switch so it is only driven on
// change. A failed write leaves it unknown and it is retried next cycle.
type output struct {
	name  string
	sw    hal.Switch
	known bool
	on    bool
}

func (o *output) drive(on bool, log *logger.Logger) {
	if o.known && o.on == on {
		return
	}
	if err := o.sw.Set(on); err != nil {
		o.known = false
		log.Warnw("actuator_write_failed", "actuator", o.name, "on", on, "err", err)
		return
	}
	o.known, o.on = true, on
}

// ControllerService owns the room state. Cycle must only be called from one
// goroutine (Run); every other goroutine goes through Execute, Status or the
// published snapshot.
type ControllerService struct {
	cfg     ControllerConfig
	hw      *hal.Hardware
	states  repository.StateRepo
	journal EventRecorder
	log     *logger.Logger
	metrics *metrics.Recorder

	st        automation.State
	occupancy automation.OccupancyTracker
	access    automation.AccessController
	fan       automation.Hysteresis
	seq       feedback.Sequencer

	nextClimate time.Time
	light       output
	fanAuto     output
	fanManual   output

	inbox chan request
}

func NewControllerService(
	cfg ControllerConfig,
	hw *hal.Hardware,
	creds automation.CredentialStore,
	states repository.StateRepo,
	journal EventRecorder,
	log *logger.Logger,
	m *metrics.Recorder,
) *ControllerService {
	return &ControllerService{
		cfg:       cfg,
		hw:        hw,
		states:    states,
		journal:   journal,
		log:       log,
		metrics:   m,
		occupancy: automation.NewOccupancyTracker(cfg.Settings),
		access:    automation.NewAccessController(creds),
		fan:       automation.NewHysteresis(cfg.Settings),
		light:     output{name: "light", sw: hw.Light},
		fanAuto:   output{name: "fan_auto", sw: hw.FanAuto},
		fanManual: output{name: "fan_manual", sw: hw.FanManual},
		inbox:     make(chan request, inboxSize),
	}
}

// Boot puts the hardware in a known state: every output off, door locked,
// buzzer silent. banner is shown under "Starting" until the first climate sample.
func (c *ControllerService) Boot(now time.Time, banner string) {
	c.light.drive(false, c.log)
	c.fanAuto.drive(false, c.log)
	c.fanManual.drive(false, c.log)
	c.best("door", c.hw.Door.Set(false))
	c.best("buzzer", c.hw.Buzzer.Silence())
	c.best("display", c.hw.Display.Show("Starting", banner))

	c.nextClimate = now.Add(c.cfg.ClimateInterval)
	c.publish(now)
	c.journal.Record(models.RoomEvent{
		OccurredAt:  now,
		Type:        models.EventSystem,
		Description: "Controller started.",
		Metadata: map[string]any{
			"fan_on_threshold_c":    c.cfg.Settings.FanOnThresholdC,
			"fan_off_threshold_c":   c.cfg.Settings.FanOffThresholdC,
			"presence_threshold_cm": c.cfg.Settings.PresenceThresholdCM,
		},
	})
	c.log.Infow("controller_booted", "banner", banner)
}

// Run calls Cycle every tick until ctx is canceled.
func (c *ControllerService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.best("buzzer", c.hw.Buzzer.Silence())
			c.log.Infow("controller_stopped")
			return
		case now := <-t.C:
			c.Cycle(now)
		}
	}
}

// Cycle runs one pass of the control loop.
func (c *ControllerService) Cycle(now time.Time) {
	start := time.Now()

	c.drainInbox(now)
	c.pollCard(now)
	c.updateOccupancy(now)

	lighting, n := automation.ArbitrateLight(c.st.Lighting, c.st.Occupancy, automation.LightAuto)
	c.st.Lighting = lighting
	c.note(now, models.EventLight, n, nil)

	c.sampleClimate(now)
	if !c.st.Climate.SampledAt.IsZero() {
		fan, n := c.fan.Evaluate(c.st.FanAuto, c.st.Climate.TemperatureC)
		c.st.FanAuto = fan
		c.note(now, models.EventFanAuto, n, map[string]any{"temperature_c": c.st.Climate.TemperatureC})
	}

	c.note(now, models.EventReclaim, automation.Reclaim(&c.st), nil)

	c.playCues(now)

	c.light.drive(c.st.Lighting.On, c.log)
	c.fanAuto.drive(c.st.FanAuto.On, c.log)
	c.fanManual.drive(c.st.FanManual.On, c.log)
	c.publish(now)

	c.metrics.SetActuators(metrics.Actuators{
		Occupied:     c.st.Occupancy.Occupied,
		LightOn:      c.st.Lighting.On,
		FanAutoOn:    c.st.FanAuto.On,
		FanManualOn:  c.st.FanManual.On,
		DoorUnlocked: c.st.Door.Position == automation.DoorUnlocked,
	})
	c.metrics.ObserveCycle(time.Since(start))
}

// drainInbox answers queued requests in arrival order without blocking.
func (c *ControllerService) drainInbox(now time.Time) {
	for {
		select {
		case req := <-c.inbox:
			c.serve(now, req)
		default:
			return
		}
	}
}

func (c *ControllerService) serve(now time.Time, req request) {
	if req.cmd == nil {
		snap := c.snapshot(now)
		snap.Message = c.st.TakeMessage()
		req.reply <- CommandResult{State: snap}
		return
	}

	cmd := *req.cmd
	n := cmd.apply(&c.st)
	c.note(now, cmd.eventType(), n, map[string]any{"source": "manual", "command": cmd.String()})
	if n.Rejected() {
		c.journal.Record(models.RoomEvent{
			OccurredAt:  now,
			Type:        models.EventCommandReject,
			Description: n.Text,
			Metadata:    map[string]any{"command": cmd.String()},
		})
	}
	c.metrics.IncCommand(cmd.String(), n.Rejected())
	req.reply <- CommandResult{
		Command:  cmd.String(),
		Notice:   n.Text,
		Kind:     string(n.Kind),
		Rejected: n.Rejected(),
		State:    c.snapshot(now),
	}
}

// pollCard reads the card reader unless a feedback sequence is playing.
func (c *ControllerService) pollCard(now time.Time) {
	if c.seq.Active() {
		return
	}
	uid, ok := c.hw.Reader.Poll()
	if !ok {
		return
	}
	door, res := c.access.Present(c.st.Door, uid)
	c.st.Door = door
	c.hw.Reader.Release()

	c.seq.Start(now, feedback.ForAccess(res))
	// keep the feedback readable: the next climate refresh waits a full interval
	c.nextClimate = now.Add(c.cfg.ClimateInterval)

	c.metrics.IncAccess(res.Outcome.String())
	c.note(now, models.EventAccess, res.Notice, map[string]any{
		"outcome": res.Outcome.String(),
		"uid":     automation.FormatUID(uid),
		"holder":  res.Credential.Name,
		"door":    door.Position.String(),
	})
}

func (c *ControllerService) updateOccupancy(now time.Time) {
	cm, err := c.hw.Distance.DistanceCM()
	if err != nil {
		if !errors.Is(err, hal.ErrNoEcho) {
			c.metrics.IncSensorError("distance")
			c.log.Debugw("distance_read_failed", "err", err)
		}
		cm = -1
	}

	before := c.st.Occupancy
	c.occupancy.Update(&c.st, cm, now)
	after := c.st.Occupancy

	switch {
	case after.Confirmed && !before.Confirmed:
		c.journal.Record(models.RoomEvent{
			OccurredAt:  now,
			Type:        models.EventOccupancy,
			Description: "Presence confirmed.",
			Metadata:    map[string]any{"distance_cm": cm},
		})
	case before.Occupied && !after.Occupied && before.Confirmed:
		c.journal.Record(models.RoomEvent{
			OccurredAt:  now,
			Type:        models.EventOccupancy,
			Description: "Room empty.",
		})
	}
}

// sampleClimate reads the climate sensor once per interval. A failed read
// keeps the previous temperature.
func (c *ControllerService) sampleClimate(now time.Time) {
	if now.Before(c.nextClimate) {
		return
	}
	c.nextClimate = now.Add(c.cfg.ClimateInterval)

	sample, err := c.hw.Climate.ReadClimate()
	if err != nil {
		c.metrics.IncSensorError("climate")
		c.metrics.IncNotice(string(automation.NoticeSensorInvalid))
		c.log.Warnw("climate_read_failed", "err", err)
		c.journal.Record(models.RoomEvent{
			OccurredAt:  now,
			Type:        models.EventSensorError,
			Description: "Climate sensor read failed.",
			Metadata:    map[string]any{"err": err.Error()},
		})
		if !c.seq.Active() {
			c.best("display", c.hw.Display.Show("SENSOR ERROR", ""))
		}
		return
	}

	c.st.Climate = automation.Climate{
		TemperatureC: int(sample.TemperatureC),
		HumidityPct:  sample.HumidityPct,
		SampledAt:    now,
	}
	c.metrics.SetClimate(c.st.Climate.TemperatureC, sample.HumidityPct)
	if !c.seq.Active() {
		c.best("display", c.hw.Display.Show(
			fmt.Sprintf("Hum: %.1f%%", sample.HumidityPct),
			fmt.Sprintf("Temp: %d°C", c.st.Climate.TemperatureC),
		))
	}
}

func (c *ControllerService) playCues(now time.Time) {
	for _, cue := range c.seq.Advance(now) {
		switch cue.Kind {
		case feedback.CueDisplay:
			c.best("display", c.hw.Display.Show(cue.Lines[0], cue.Lines[1]))
		case feedback.CueClearDisplay:
			c.best("display", c.hw.Display.Clear())
		case feedback.CueTone:
			c.best("buzzer", c.hw.Buzzer.Tone(cue.FreqHz))
		case feedback.CueSilence:
			c.best("buzzer", c.hw.Buzzer.Silence())
		case feedback.CueDoor:
			c.best("door", c.hw.Door.Set(cue.Unlock))
		}
	}
}

// note posts n to the message slot, counts it and journals it.
func (c *ControllerService) note(now time.Time, eventType string, n automation.Notice, meta map[string]any) {
	if n.IsZero() {
		return
	}
	c.st.Post(n)
	c.metrics.IncNotice(string(n.Kind))
	c.log.Infow("notice", "kind", n.Kind, "text", n.Text)

	md := map[string]any{"kind": string(n.Kind)}
	for k, v := range meta {
		md[k] = v
	}
	c.journal.Record(models.RoomEvent{
		OccurredAt:  now,
		Type:        eventType,
		Description: n.Text,
		Metadata:    md,
	})
}

// best logs failures of best-effort outputs (display, buzzer, door servo).
func (c *ControllerService) best(what string, err error) {
	if err != nil {
		c.log.Warnw("output_failed", "output", what, "err", err)
	}
}

func (c *ControllerService) snapshot(now time.Time) models.RoomState {
	return models.RoomState{
		TemperatureC:      c.st.Climate.TemperatureC,
		HumidityPct:       c.st.Climate.HumidityPct,
		ClimateSampledAt:  c.st.Climate.SampledAt,
		Occupied:          c.st.Occupancy.Occupied,
		PresenceConfirmed: c.st.Occupancy.Confirmed,
		LightOn:           c.st.Lighting.On,
		ManualOverride:    c.st.Lighting.ManualOverride,
		FanAutoOn:         c.st.FanAuto.On,
		FanManualOn:       c.st.FanManual.On,
		FanOnThresholdC:   c.cfg.Settings.FanOnThresholdC,
		FanOffThresholdC:  c.cfg.Settings.FanOffThresholdC,
		Door:              c.st.Door.Position.String(),
		DoorHolder:        doorHolder(c.st.Door),
		Feedback:          c.seq.Current(),
		Message:           c.st.Message,
		UpdatedAt:         now.UTC(),
	}
}

func doorHolder(d automation.DoorState) string {
	if d.Position != automation.DoorUnlocked {
		return ""
	}
	return d.HolderName
}

func (c *ControllerService) publish(now time.Time) {
	if err := c.states.Save(context.Background(), c.snapshot(now)); err != nil {
		c.log.Errorw("state_publish_failed", "err", err)
	}
}

// Execute hands cmd to the control loop and waits for the cycle that applies it.
func (c *ControllerService) Execute(ctx context.Context, cmd Command) (CommandResult, error) {
	return c.call(ctx, &cmd)
}

// Status returns the current snapshot and consumes the system message.
func (c *ControllerService) Status(ctx context.Context) (models.RoomState, error) {
	res, err := c.call(ctx, nil)
	return res.State, err
}

func (c *ControllerService) call(ctx context.Context, cmd *Command) (CommandResult, error) {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	req := request{cmd: cmd, reply: make(chan CommandResult, 1)}
	select {
	case c.inbox <- req:
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("%w: %v", ErrControllerBusy, ctx.Err())
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("%w: %v", ErrControllerBusy, ctx.Err())
	}
}
