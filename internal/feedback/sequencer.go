// Package feedback plays timed audio/visual cue sequences without blocking
// the control cycle.
package feedback

import "time"

// CueKind selects which collaborator a cue drives.
type CueKind uint8

const (
	CueDisplay CueKind = iota + 1
	CueClearDisplay
	CueTone
	CueSilence
	CueDoor
)

// Cue is a single side effect fired at a point in a sequence.
type Cue struct {
	Kind   CueKind
	Lines  [2]string // CueDisplay
	FreqHz int       // CueTone
	Unlock bool      // CueDoor
}

// Step fires Cue once At has elapsed since the sequence started.
type Step struct {
	At  time.Duration
	Cue Cue
}

// Sequence is an ordered list of steps. Offsets never decrease.
type Sequence struct {
	Name  string
	Steps []Step
}

// Duration is the offset of the last step.
func (s Sequence) Duration() time.Duration {
	if len(s.Steps) == 0 {
		return 0
	}
	return s.Steps[len(s.Steps)-1].At
}

// Sequencer plays one sequence at a time. It is not safe for concurrent use;
// the control cycle owns it.
type Sequencer struct {
	seq     Sequence
	started time.Time
	next    int
}

// Active reports whether a sequence still has pending steps.
func (s *Sequencer) Active() bool {
	return s.next < len(s.seq.Steps)
}

// Current returns the name of the playing sequence, or "" when idle.
func (s *Sequencer) Current() string {
	if !s.Active() {
		return ""
	}
	return s.seq.Name
}

// Start arms seq at now, replacing anything still pending.
func (s *Sequencer) Start(now time.Time, seq Sequence) {
	s.seq = seq
	s.started = now
	s.next = 0
}

// Advance returns every cue that became due at now, in order.
func (s *Sequencer) Advance(now time.Time) []Cue {
	if !s.Active() {
		return nil
	}
	elapsed := now.Sub(s.started)
	var due []Cue
	for s.next < len(s.seq.Steps) && s.seq.Steps[s.next].At <= elapsed {
		due = append(due, s.seq.Steps[s.next].Cue)
		s.next++
	}
	return due
}
