package interfaces

import (
	"context"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

type DoorRepository interface {
	InsertDoorStatus(ctx context.Context, rec mqtmodels.DoorStatusRecord) error

	// Returns nil, nil when no status has been stored
	GetLatestDoorStatus(ctx context.Context) (*mqtmodels.DoorStatusRecord, error)

	CountDoorRecords(ctx context.Context) (int64, error)
}
