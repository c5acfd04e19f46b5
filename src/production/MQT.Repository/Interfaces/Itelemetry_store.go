package interfaces

import "context"

// TelemetryStore is the durable storage collaborator: every table plus lifecycle
type TelemetryStore interface {
	SensorRepository
	DoorRepository
	ControlLogRepository

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
