package screen

const actionPrefix = "io.github.trbjo.goscreen."

// Admin command actions.
const (
	ActionStart        = actionPrefix + "SENSOR_START"
	ActionStop         = actionPrefix + "SENSOR_STOP"
	ActionSetLabel     = actionPrefix + "SET_LABEL"
	ActionSync         = actionPrefix + "SENSOR_SYNC"
	ActionStartEnabled = actionPrefix + "SENSOR_START_ENABLED"
	ActionStopAll      = actionPrefix + "SENSOR_STOP_ALL"

	ExtraLabel = "label"
)

// Command is an administrative request addressed to the sensor.
type Command struct {
	Action string
	Extras map[string]string
}

func NewCommand(action string) Command {
	return Command{Action: action}
}

func SetLabelCommand(label string) Command {
	return Command{Action: ActionSetLabel, Extras: map[string]string{ExtraLabel: label}}
}

func (c Command) Extra(key string) (string, bool) {
	v, ok := c.Extras[key]
	return v, ok
}
