package feedback

import (
	"time"

	"room_controller/internal/automation"
)

// Timings of the access feedback, in the order they are played.
const (
	nameHold     = 1500 * time.Millisecond
	chimeTone    = 150 * time.Millisecond
	chimeSpacing = 200 * time.Millisecond
	servoSettle  = 250 * time.Millisecond
	openSettle   = 700 * time.Millisecond
	warnTone     = 200 * time.Millisecond
	denyTone     = 250 * time.Millisecond
	finalHold    = 1500 * time.Millisecond
)

// builder accumulates steps at a moving offset.
type builder struct {
	seq Sequence
	at  time.Duration
}

func newBuilder(name string) *builder {
	return &builder{seq: Sequence{Name: name}}
}

func (b *builder) cue(c Cue) *builder {
	b.seq.Steps = append(b.seq.Steps, Step{At: b.at, Cue: c})
	return b
}

func (b *builder) wait(d time.Duration) *builder {
	b.at += d
	return b
}

func (b *builder) show(l1, l2 string) *builder {
	return b.cue(Cue{Kind: CueDisplay, Lines: [2]string{l1, l2}})
}

// beep sounds freq for dur and silences it, then waits until spacing elapsed.
func (b *builder) beep(freq int, dur, spacing time.Duration) *builder {
	b.cue(Cue{Kind: CueTone, FreqHz: freq})
	b.wait(dur)
	b.cue(Cue{Kind: CueSilence})
	return b.wait(spacing - dur)
}

func (b *builder) door(unlock bool) *builder {
	return b.cue(Cue{Kind: CueDoor, Unlock: unlock})
}

func (b *builder) finish() Sequence {
	b.wait(finalHold)
	b.cue(Cue{Kind: CueClearDisplay})
	return b.seq
}

func welcome(name, seqName string) *builder {
	b := newBuilder(seqName).show("Welcome:", name).wait(nameHold)
	for _, f := range []int{659, 784, 880} {
		b.beep(f, chimeTone, chimeSpacing)
	}
	return b.wait(servoSettle)
}

// ForAccess returns the sequence announcing an access outcome.
func ForAccess(res automation.AccessResult) Sequence {
	switch res.Outcome {
	case automation.AccessOpened:
		b := welcome(res.Credential.Name, "opened").
			show("Door: OPEN", "").door(true).wait(openSettle)
		b.beep(1000, chimeTone, chimeSpacing).beep(1500, chimeTone, chimeSpacing)
		return b.wait(servoSettle).finish()
	case automation.AccessClosed:
		return welcome(res.Credential.Name, "closed").
			show("Door: CLOSED", "").door(false).finish()
	case automation.AccessHeldByOther:
		b := welcome(res.Credential.Name, "held_by_other").
			show("Already open by", "another user").wait(100 * time.Millisecond)
		b.beep(750, warnTone, warnTone).beep(750, warnTone, warnTone)
		return b.wait(servoSettle).finish()
	default:
		b := newBuilder("denied").show("Access DENIED", "Invalid card").wait(200 * time.Millisecond)
		b.beep(300, denyTone, denyTone).beep(300, denyTone, denyTone)
		return b.wait(servoSettle).finish()
	}
}
