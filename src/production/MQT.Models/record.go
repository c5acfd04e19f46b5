package mqtmodels

import "time"

// SensorRecord is a persisted temperature, humidity, gas or light reading
type SensorRecord struct {
	ID         int64     `json:"id" db:"id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	SensorType Channel   `json:"sensor_type" db:"sensor_type"`
	Value      float64   `json:"value" db:"value"`
	Unit       string    `json:"unit" db:"unit"`
	Status     *string   `json:"status" db:"status"`
	Timestamp  int64     `json:"timestamp" db:"timestamp"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DoorStatusRecord is a persisted door status observation
type DoorStatusRecord struct {
	ID        int64     `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Status    string    `json:"status" db:"status"`
	Timestamp int64     `json:"timestamp" db:"timestamp"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RecordCounts holds the number of rows in each durable table
type RecordCounts struct {
	SensorRecords int64 `json:"total_sensor_records"`
	DoorRecords   int64 `json:"total_door_records"`
	ControlLogs   int64 `json:"total_control_logs"`
}

// NewSensorRecord builds the durable shape of a sensor reading
func NewSensorRecord(r Reading) SensorRecord {
	rec := SensorRecord{
		DeviceID:   r.DeviceID,
		SensorType: r.Channel,
		Unit:       r.Channel.Unit(),
		Timestamp:  r.Timestamp,
	}
	if r.Value != nil {
		rec.Value = *r.Value
	}
	if r.Status != "" {
		status := r.Status
		rec.Status = &status
	}
	return rec
}

// NewDoorStatusRecord builds the durable shape of a door reading
func NewDoorStatusRecord(r Reading) DoorStatusRecord {
	return DoorStatusRecord{
		DeviceID:  r.DeviceID,
		Status:    r.Status,
		Timestamp: r.Timestamp,
	}
}
