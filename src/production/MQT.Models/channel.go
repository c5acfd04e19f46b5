package mqtmodels

import "fmt"

// Channel is one of the fixed telemetry categories
type Channel string

const (
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
	ChannelGas         Channel = "gas"
	ChannelLight       Channel = "light"
	ChannelDoor        Channel = "door"
)

// Channels lists every channel in buffer order
var Channels = [...]Channel{
	ChannelTemperature,
	ChannelHumidity,
	ChannelGas,
	ChannelLight,
	ChannelDoor,
}

// SensorChannels lists the channels persisted as generic sensor records
var SensorChannels = [...]Channel{
	ChannelTemperature,
	ChannelHumidity,
	ChannelGas,
	ChannelLight,
}

// Index returns the buffer slot for the channel, or -1 when unknown
func (c Channel) Index() int {
	for i, ch := range Channels {
		if ch == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c is a known channel
func (c Channel) Valid() bool {
	return c.Index() >= 0
}

// IsSensor reports whether readings on c are stored as sensor records
func (c Channel) IsSensor() bool {
	return c.Valid() && c != ChannelDoor
}

// Unit returns the unit label stored with sensor records. Door has none.
func (c Channel) Unit() string {
	switch c {
	case ChannelTemperature:
		return "°C"
	case ChannelHumidity:
		return "%"
	case ChannelGas:
		return "PPM"
	case ChannelLight:
		return "LUX"
	default:
		return ""
	}
}

// ParseSensorChannel resolves a sensor type name used by the query API
func ParseSensorChannel(name string) (Channel, error) {
	c := Channel(name)
	if !c.IsSensor() {
		return "", fmt.Errorf("unknown sensor type %q", name)
	}
	return c, nil
}
