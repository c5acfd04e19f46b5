package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

// MockTelemetryStore is a mock implementation of interfaces.TelemetryStore
type MockTelemetryStore struct {
	mock.Mock
}

func (m *MockTelemetryStore) InsertSensorRecord(ctx context.Context, rec mqtmodels.SensorRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockTelemetryStore) GetLatestSensorRecord(ctx context.Context, sensorType mqtmodels.Channel) (*mqtmodels.SensorRecord, error) {
	args := m.Called(ctx, sensorType)
	rec, _ := args.Get(0).(*mqtmodels.SensorRecord)
	return rec, args.Error(1)
}

func (m *MockTelemetryStore) GetSensorHistory(ctx context.Context, sensorType mqtmodels.Channel, limit int) ([]mqtmodels.SensorRecord, error) {
	args := m.Called(ctx, sensorType, limit)
	recs, _ := args.Get(0).([]mqtmodels.SensorRecord)
	return recs, args.Error(1)
}

func (m *MockTelemetryStore) CountSensorRecords(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTelemetryStore) InsertDoorStatus(ctx context.Context, rec mqtmodels.DoorStatusRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockTelemetryStore) GetLatestDoorStatus(ctx context.Context) (*mqtmodels.DoorStatusRecord, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(*mqtmodels.DoorStatusRecord)
	return rec, args.Error(1)
}

func (m *MockTelemetryStore) CountDoorRecords(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTelemetryStore) InsertControlLog(ctx context.Context, entry mqtmodels.ControlLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTelemetryStore) ListControlLogs(ctx context.Context, limit int) ([]mqtmodels.ControlLogEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]mqtmodels.ControlLogEntry)
	return entries, args.Error(1)
}

func (m *MockTelemetryStore) CountControlLogs(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTelemetryStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTelemetryStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
