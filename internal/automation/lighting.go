package automation

// LightCommand is the manual input to the lighting arbiter.
type LightCommand uint8

const (
	LightAuto LightCommand = iota // no manual command this cycle
	LightOn
	LightOff
)

// ArbitrateLight decides the next lighting state from the current state,
// occupancy and an optional manual command.
//
// Manual commands always win, except that switching on needs an occupied room.
// Switching off while occupied arms the override, which blocks automatic
// activation until the room empties or the light is switched on by hand.
func ArbitrateLight(cur LightingState, occ OccupancyState, cmd LightCommand) (LightingState, Notice) {
	switch cmd {
	case LightOn:
		if !occ.Occupied {
			return cur, notice(NoticeRoomEmpty, "Cannot turn on the light: the room is empty.")
		}
		return LightingState{On: true}, notice(NoticeLightOn, "Light turned on.")
	case LightOff:
		return LightingState{On: false, ManualOverride: occ.Occupied}, notice(NoticeLightOff, "Light turned off.")
	default:
		if occ.Confirmed && !cur.On && !cur.ManualOverride {
			return LightingState{On: true}, notice(NoticeLightAutoOn, "Presence confirmed: light turned on automatically.")
		}
		return cur, Notice{}
	}
}
