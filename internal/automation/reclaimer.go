package automation

// Reclaim switches the light and the manual fan off once the room is empty.
// The override flag and the automatic fan are left alone.
func Reclaim(st *State) Notice {
	if st.Occupancy.Occupied || (!st.Lighting.On && !st.FanManual.On) {
		return Notice{}
	}
	st.Lighting.On = false
	st.FanManual.On = false
	return notice(NoticeReclaimed, "Light and manual fan turned off: the room is empty.")
}
