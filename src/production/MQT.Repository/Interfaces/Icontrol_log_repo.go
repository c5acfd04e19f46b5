package interfaces

import (
	"context"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type ControlLogRepository interface {
	InsertControlLog(ctx context.Context, entry mqtmodels.ControlLogEntry) error

	// Newest first
	ListControlLogs(ctx context.Context, limit int) ([]mqtmodels.ControlLogEntry, error)

	CountControlLogs(ctx context.Context) (int64, error)
}
