package screen

import (
	"strconv"
)

type Status int
type Signal int

// Stored values; do not renumber.
const (
	StatusOff      Status = 0
	StatusOn       Status = 1
	StatusLocked   Status = 2
	StatusUnlocked Status = 3

	// StatusUnknown is never stored; it marks "nothing recorded yet".
	StatusUnknown Status = -1
)

const (
	SignalScreenOn Signal = iota + 1
	SignalScreenOff
	SignalUserPresent
)

// Broadcast actions, one per recorded status.
const (
	ActionScreenOn       = "ACTION_AWARE_SCREEN_ON"
	ActionScreenOff      = "ACTION_AWARE_SCREEN_OFF"
	ActionScreenLocked   = "ACTION_AWARE_SCREEN_LOCKED"
	ActionScreenUnlocked = "ACTION_AWARE_SCREEN_UNLOCKED"
)

func (s Status) String() string {
	switch s {
	case StatusOff:
		return "off"
	case StatusOn:
		return "on"
	case StatusLocked:
		return "locked"
	case StatusUnlocked:
		return "unlocked"
	case StatusUnknown:
		return "unknown"
	default:
		return strconv.Itoa(int(s))
	}
}

// Action is the broadcast name announcing s.
func (s Status) Action() string {
	switch s {
	case StatusOff:
		return ActionScreenOff
	case StatusOn:
		return ActionScreenOn
	case StatusLocked:
		return ActionScreenLocked
	case StatusUnlocked:
		return ActionScreenUnlocked
	default:
		return ""
	}
}

func (s Signal) String() string {
	switch s {
	case SignalScreenOn:
		return "ScreenOn"
	case SignalScreenOff:
		return "ScreenOff"
	case SignalUserPresent:
		return "UserPresent"
	default:
		return strconv.Itoa(int(s))
	}
}
