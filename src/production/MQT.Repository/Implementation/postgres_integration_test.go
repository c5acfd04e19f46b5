package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	migrations "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Migrations"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_USER": "postgres", "POSTGRES_DB": "smart_home"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=postgres password=secret dbname=smart_home sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(ctx, dsn, logger.Nop()))
	// second run is a no-op
	require.NoError(t, migrations.Apply(ctx, dsn, logger.Nop()))
	return db
}

func TestMigrations_DoNotHoldCallerConnections(t *testing.T) {
	db := startPostgres(t)
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, db.PingContext(ctx))
	assert.Equal(t, 0, db.Stats().InUse)

	// only this pool's session remains once the migration pool is closed
	assert.Eventually(t, func() bool {
		var backends int
		err := db.QueryRowContext(ctx,
			"SELECT count(*) FROM pg_stat_activity WHERE datname = current_database()").Scan(&backends)
		return err == nil && backends == 1
	}, 4*time.Second, 100*time.Millisecond)
}

func TestPostgresTelemetryStore(t *testing.T) {
	db := startPostgres(t)
	store := NewPostgresTelemetryStore(db)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	t.Run("empty store", func(t *testing.T) {
		rec, err := store.GetLatestSensorRecord(ctx, mqtmodels.ChannelTemperature)
		require.NoError(t, err)
		assert.Nil(t, rec)

		door, err := store.GetLatestDoorStatus(ctx)
		require.NoError(t, err)
		assert.Nil(t, door)
	})

	t.Run("sensor records", func(t *testing.T) {
		for i, v := range []float64{21.0, 22.5, 24.5} {
			rec := mqtmodels.NewSensorRecord(mqtmodels.Reading{
				Channel:   mqtmodels.ChannelTemperature,
				DeviceID:  "D1",
				Value:     mqtmodels.Float64(v),
				Timestamp: int64(1000 + i),
			})
			require.NoError(t, store.InsertSensorRecord(ctx, rec))
		}
		gas := mqtmodels.NewSensorRecord(mqtmodels.Reading{
			Channel: mqtmodels.ChannelGas, DeviceID: "D2", Value: mqtmodels.Float64(410), Status: "WARNING", Timestamp: 2000,
		})
		require.NoError(t, store.InsertSensorRecord(ctx, gas))

		latest, err := store.GetLatestSensorRecord(ctx, mqtmodels.ChannelTemperature)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 24.5, latest.Value)
		assert.Equal(t, int64(1002), latest.Timestamp)
		assert.Equal(t, "°C", latest.Unit)
		assert.Nil(t, latest.Status)

		latestGas, err := store.GetLatestSensorRecord(ctx, mqtmodels.ChannelGas)
		require.NoError(t, err)
		require.NotNil(t, latestGas.Status)
		assert.Equal(t, "WARNING", *latestGas.Status)

		history, err := store.GetSensorHistory(ctx, mqtmodels.ChannelTemperature, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 22.5, history[0].Value)
		assert.Equal(t, 24.5, history[1].Value)

		n, err := store.CountSensorRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("door status", func(t *testing.T) {
		require.NoError(t, store.InsertDoorStatus(ctx, mqtmodels.DoorStatusRecord{DeviceID: "D1", Status: "LOCKED", Timestamp: 10}))
		require.NoError(t, store.InsertDoorStatus(ctx, mqtmodels.DoorStatusRecord{DeviceID: "D1", Status: "UNLOCKED", Timestamp: 5}))

		door, err := store.GetLatestDoorStatus(ctx)
		require.NoError(t, err)
		require.NotNil(t, door)
		assert.Equal(t, "UNLOCKED", door.Status)

		n, err := store.CountDoorRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("control logs", func(t *testing.T) {
		pos := "50"
		require.NoError(t, store.InsertControlLog(ctx, mqtmodels.ControlLogEntry{
			DeviceType: mqtmodels.ControlDoor, Command: mqtmodels.CommandLock, Timestamp: 1,
		}))
		require.NoError(t, store.InsertControlLog(ctx, mqtmodels.ControlLogEntry{
			DeviceType: mqtmodels.ControlCurtain, Command: mqtmodels.CommandSetPosition, Value: &pos, Source: "api", Timestamp: 2,
		}))

		logs, err := store.ListControlLogs(ctx, 10)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, mqtmodels.ControlCurtain, logs[0].DeviceType)
		require.NotNil(t, logs[0].Value)
		assert.Equal(t, "50", *logs[0].Value)
		assert.Nil(t, logs[1].Value)
		assert.Equal(t, mqtmodels.DefaultCommandSource, logs[1].Source)

		n, err := store.CountControlLogs(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
