package interfaces

import (
	"context"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type SensorRepository interface {
	// Append a sensor record
	InsertSensorRecord(ctx context.Context, rec mqtmodels.SensorRecord) error

	// Reads. GetLatestSensorRecord returns nil, nil when nothing is stored yet.
	GetLatestSensorRecord(ctx context.Context, sensorType mqtmodels.Channel) (*mqtmodels.SensorRecord, error)
	// GetSensorHistory returns the limit most recent records, oldest first
	GetSensorHistory(ctx context.Context, sensorType mqtmodels.Channel, limit int) ([]mqtmodels.SensorRecord, error)

	CountSensorRecords(ctx context.Context) (int64, error)
}
