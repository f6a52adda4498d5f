package automation

// NoticeKind classifies a notable transition or rejection.
type NoticeKind string

const (
	NoticeNone          NoticeKind = ""
	NoticeLightOn       NoticeKind = "LIGHT_ON"
	NoticeLightAutoOn   NoticeKind = "LIGHT_AUTO_ON"
	NoticeLightOff      NoticeKind = "LIGHT_OFF"
	NoticeFanAutoOn     NoticeKind = "FAN_AUTO_ON"
	NoticeFanAutoOff    NoticeKind = "FAN_AUTO_OFF"
	NoticeFanManualOn   NoticeKind = "FAN_MANUAL_ON"
	NoticeFanManualOff  NoticeKind = "FAN_MANUAL_OFF"
	NoticeRoomEmpty     NoticeKind = "ROOM_EMPTY"
	NoticeReclaimed     NoticeKind = "RECLAIMED"
	NoticeDoorOpened    NoticeKind = "DOOR_OPENED"
	NoticeDoorClosed    NoticeKind = "DOOR_CLOSED"
	NoticeHeldByOther   NoticeKind = "HELD_BY_OTHER"
	NoticeAccessDenied  NoticeKind = "ACCESS_DENIED"
	NoticeSensorInvalid NoticeKind = "SENSOR_INVALID"
)

// Notice is a human readable outcome surfaced through the system message slot.
type Notice struct {
	Kind NoticeKind
	Text string
}

// IsZero reports whether no notice was emitted.
func (n Notice) IsZero() bool { return n.Kind == NoticeNone }

// Rejected reports whether the notice describes a request that changed nothing.
func (n Notice) Rejected() bool {
	switch n.Kind {
	case NoticeRoomEmpty, NoticeHeldByOther, NoticeAccessDenied:
		return true
	}
	return false
}

func notice(kind NoticeKind, text string) Notice {
	return Notice{Kind: kind, Text: text}
}
