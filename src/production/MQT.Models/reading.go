package mqtmodels

// UnknownDevice is used when a message does not name its device
const UnknownDevice = "UNKNOWN"

// Reading is a decoded observation for one channel
type Reading struct {
	Channel   Channel  `json:"channel"`
	DeviceID  string   `json:"device_id"`
	Value     *float64 `json:"value,omitempty"`
	Status    string   `json:"status,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}
