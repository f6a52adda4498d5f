package automation

// Hysteresis switches the automatic fan with two thresholds, On > Off.
// Temperatures inside [Off, On) never cause a transition.
type Hysteresis struct {
	OnC  int
	OffC int
}

// NewHysteresis builds the controller from the core settings.
func NewHysteresis(s Settings) Hysteresis {
	return Hysteresis{OnC: s.FanOnThresholdC, OffC: s.FanOffThresholdC}
}

// Evaluate returns the next automatic fan state for tempC.
func (h Hysteresis) Evaluate(cur VentilationAutoState, tempC int) (VentilationAutoState, Notice) {
	switch {
	case !cur.On && tempC >= h.OnC:
		return VentilationAutoState{On: true}, notice(NoticeFanAutoOn, "Fan turned on automatically: temperature is high.")
	case cur.On && tempC < h.OffC:
		return VentilationAutoState{On: false}, notice(NoticeFanAutoOff, "Fan turned off automatically.")
	}
	return cur, Notice{}
}

// SetManualFan applies a manual fan command. Switching on needs an occupied room.
func SetManualFan(cur VentilationManualState, on, occupied bool) (VentilationManualState, Notice) {
	if !on {
		return VentilationManualState{}, notice(NoticeFanManualOff, "Manual fan turned off.")
	}
	if !occupied {
		return cur, notice(NoticeRoomEmpty, "Cannot turn on the fan: the room is empty.")
	}
	return VentilationManualState{On: true}, notice(NoticeFanManualOn, "Manual fan turned on.")
}
