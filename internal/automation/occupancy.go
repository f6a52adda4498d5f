package automation

import "time"

// OccupancyTracker turns raw distance samples into a debounced presence signal.
type OccupancyTracker struct {
	thresholdCM int
	minDwell    time.Duration
}

// NewOccupancyTracker builds a tracker from the core settings.
func NewOccupancyTracker(s Settings) OccupancyTracker {
	return OccupancyTracker{thresholdCM: s.PresenceThresholdCM, minDwell: s.MinDwell}
}

// Present reports whether a single distance sample sees a target.
// Zero and negative readings mean "no target".
func (t OccupancyTracker) Present(distanceCM int) bool {
	return distanceCM > 0 && distanceCM <= t.thresholdCM
}

// Update feeds one distance sample into st. An absent sample resets the dwell
// timer and re-arms automatic lighting by clearing the manual override.
func (t OccupancyTracker) Update(st *State, distanceCM int, now time.Time) {
	if !t.Present(distanceCM) {
		st.Occupancy = OccupancyState{}
		st.Lighting.ManualOverride = false
		return
	}
	occ := st.Occupancy
	occ.Occupied = true
	if occ.DwellStart.IsZero() {
		occ.DwellStart = now
	}
	occ.Confirmed = now.Sub(occ.DwellStart) >= t.minDwell
	st.Occupancy = occ
}
