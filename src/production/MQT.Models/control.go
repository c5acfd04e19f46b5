package mqtmodels

import "time"

// ControlDevice is a device type that accepts commands
type ControlDevice string

const (
	ControlDoor    ControlDevice = "door"
	ControlLight   ControlDevice = "light"
	ControlCurtain ControlDevice = "curtain"
)

// Commands
const (
	CommandLock        = "LOCK"
	CommandUnlock      = "UNLOCK"
	CommandOn          = "ON"
	CommandOff         = "OFF"
	CommandSetPosition = "SET_POSITION"
)

// DefaultCommandSource is recorded when the caller does not name one
const DefaultCommandSource = "api"

// ControlCommand is an outbound request for a device
type ControlCommand struct {
	Device   ControlDevice `json:"device"`
	Command  string        `json:"command,omitempty"`
	Position *int          `json:"position,omitempty"`
	Source   string        `json:"source,omitempty"`
}

// ControlLogEntry records an issued command
type ControlLogEntry struct {
	ID         int64         `json:"id" db:"id"`
	DeviceType ControlDevice `json:"device_type" db:"device_type"`
	Command    string        `json:"command" db:"command"`
	Value      *string       `json:"value" db:"value"`
	Source     string        `json:"source" db:"source"`
	Timestamp  int64         `json:"timestamp" db:"timestamp"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}
