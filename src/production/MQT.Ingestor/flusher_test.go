package mqtingestor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	mocks "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Mocks"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

func flushConfig(mode string) config.FlushConfig {
	return config.FlushConfig{
		Interval:     time.Second,
		Mode:         mode,
		WriteTimeout: time.Second,
	}
}

func sensorRecord(channel mqtmodels.Channel) interface{} {
	return mock.MatchedBy(func(rec mqtmodels.SensorRecord) bool {
		return rec.SensorType == channel
	})
}

func TestFlushOnce_IdleIsNoop(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	f := NewFlusher(NewChannelBuffer(), store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil)

	res := f.FlushOnce(context.Background())

	assert.Equal(t, FlushResult{}, res)
	store.AssertNotCalled(t, "InsertSensorRecord", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "InsertDoorStatus", mock.Anything, mock.Anything)
}

func TestFlushOnce_ClearModeWritesRecordShapes(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	buffer.Set(mqtmodels.ChannelTemperature, tempReading("D1", 24.5, 1000))
	buffer.Set(mqtmodels.ChannelGas, mqtmodels.Reading{DeviceID: "G1", Value: mqtmodels.Float64(300), Status: "NORMAL", Timestamp: 1001})
	buffer.Set(mqtmodels.ChannelDoor, mqtmodels.Reading{DeviceID: "DOOR1", Status: "LOCKED", Timestamp: 1002})

	store.On("InsertSensorRecord", mock.Anything, mock.MatchedBy(func(rec mqtmodels.SensorRecord) bool {
		return rec.SensorType == mqtmodels.ChannelTemperature && rec.Unit == "°C" &&
			rec.Value == 24.5 && rec.DeviceID == "D1" && rec.Timestamp == 1000 && rec.Status == nil
	})).Return(nil).Once()
	store.On("InsertSensorRecord", mock.Anything, mock.MatchedBy(func(rec mqtmodels.SensorRecord) bool {
		return rec.SensorType == mqtmodels.ChannelGas && rec.Unit == "PPM" &&
			rec.Status != nil && *rec.Status == "NORMAL"
	})).Return(nil).Once()
	store.On("InsertDoorStatus", mock.Anything, mqtmodels.DoorStatusRecord{
		DeviceID: "DOOR1", Status: "LOCKED", Timestamp: 1002,
	}).Return(nil).Once()

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil)
	res := f.FlushOnce(context.Background())

	assert.Equal(t, FlushResult{Attempted: 3, Persisted: 3}, res)
	store.AssertExpectations(t)
	assert.Empty(t, buffer.Snapshot())

	// nothing new arrived, so the next tick writes nothing
	assert.Equal(t, FlushResult{}, f.FlushOnce(context.Background()))
}

func TestFlushOnce_RetainModeRewritesUnchangedReadings(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	buffer.Set(mqtmodels.ChannelHumidity, mqtmodels.Reading{DeviceID: "D1", Value: mqtmodels.Float64(55), Timestamp: 1})

	store.On("InsertSensorRecord", mock.Anything, sensorRecord(mqtmodels.ChannelHumidity)).Return(nil)

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeRetain), logger.Nop(), nil)
	f.FlushOnce(context.Background())
	f.FlushOnce(context.Background())

	store.AssertNumberOfCalls(t, "InsertSensorRecord", 2)
	_, ok := buffer.Get(mqtmodels.ChannelHumidity)
	assert.True(t, ok)
}

func TestFlushOnce_FailureIsIsolatedPerRecord(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	buffer.Set(mqtmodels.ChannelTemperature, tempReading("D1", 24.5, 1))
	buffer.Set(mqtmodels.ChannelHumidity, mqtmodels.Reading{DeviceID: "D1", Value: mqtmodels.Float64(60), Timestamp: 2})
	buffer.Set(mqtmodels.ChannelDoor, mqtmodels.Reading{DeviceID: "DOOR1", Status: "UNLOCKED", Timestamp: 3})

	store.On("InsertSensorRecord", mock.Anything, sensorRecord(mqtmodels.ChannelTemperature)).Return(errors.New("disk full")).Once()
	store.On("InsertSensorRecord", mock.Anything, sensorRecord(mqtmodels.ChannelHumidity)).Return(nil).Once()
	store.On("InsertDoorStatus", mock.Anything, mock.Anything).Return(nil).Once()

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil)
	res := f.FlushOnce(context.Background())

	assert.Equal(t, FlushResult{Attempted: 3, Persisted: 2, Failed: 1}, res)
	store.AssertExpectations(t)

	// the failed reading is back for the next tick, the others are gone
	snap := buffer.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, mqtmodels.ChannelTemperature, snap[0].Channel)
}

func TestFlushOnce_FailedWriteDoesNotOverrideNewerReading(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	buffer.Set(mqtmodels.ChannelTemperature, tempReading("D1", 20, 1))

	store.On("InsertSensorRecord", mock.Anything, sensorRecord(mqtmodels.ChannelTemperature)).
		Run(func(mock.Arguments) {
			// a newer message lands while the write is in flight
			buffer.Set(mqtmodels.ChannelTemperature, tempReading("D1", 30, 2))
		}).
		Return(errors.New("timeout")).Once()

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil)
	f.FlushOnce(context.Background())

	got, ok := buffer.Get(mqtmodels.ChannelTemperature)
	require.True(t, ok)
	assert.Equal(t, 30.0, *got.Value)
}

func TestFlushOnce_EachWriteHasDeadline(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	buffer.Set(mqtmodels.ChannelLight, mqtmodels.Reading{DeviceID: "L1", Value: mqtmodels.Float64(100), Timestamp: 1})

	store.On("InsertSensorRecord", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), sensorRecord(mqtmodels.ChannelLight)).Return(nil).Once()

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil)
	f.FlushOnce(context.Background())

	store.AssertExpectations(t)
}

func TestFlusher_RunFlushesOnTicksUntilCancelled(t *testing.T) {
	store := new(mocks.MockTelemetryStore)
	buffer := NewChannelBuffer()
	ticker := mocks.NewManualTicker()

	store.On("InsertSensorRecord", mock.Anything, mock.Anything).Return(nil)

	f := NewFlusher(buffer, store, store, flushConfig(config.FlushModeClear), logger.Nop(), nil,
		WithTicker(func(time.Duration) Ticker { return ticker }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()

	// idle tick
	require.True(t, ticker.Tick())

	buffer.Set(mqtmodels.ChannelTemperature, tempReading("D1", 22, 1))
	require.True(t, ticker.Tick())
	// a further tick is only received once the previous flush has returned
	require.True(t, ticker.Tick())

	store.AssertNumberOfCalls(t, "InsertSensorRecord", 1)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flush loop did not stop")
	}
	select {
	case <-ticker.Stopped():
	default:
		t.Fatal("ticker was not stopped")
	}
}
