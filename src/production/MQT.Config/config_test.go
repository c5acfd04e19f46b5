package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setPostgresCredentials(t *testing.T) {
	t.Setenv("POSTGRES_USER", "smarthome")
	t.Setenv("POSTGRES_PASSWORD", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setPostgresCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "smart_home", cfg.Storage.Postgres.DBName)
	assert.Equal(t, "smarthome", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 0, cfg.MQTT.QOS)
	assert.Equal(t, 5*time.Second, cfg.Flush.Interval)
	assert.Equal(t, FlushModeClear, cfg.Flush.Mode)
	assert.True(t, cfg.Flush.OnShutdown)
	assert.Equal(t, 100, cfg.Query.HistoryDefaultLimit)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setPostgresCredentials(t)
	t.Setenv("FLUSH_INTERVAL", "250ms")
	t.Setenv("FLUSH_MODE", "RETAIN")
	t.Setenv("MQTT_TOPIC_PREFIX", "/home/")
	t.Setenv("BROKER_TLS", "true")
	t.Setenv("BROKER_PORT", "8883")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Flush.Interval)
	assert.Equal(t, FlushModeRetain, cfg.Flush.Mode)
	assert.Equal(t, "home", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "tcps://broker.hivemq.com:8883", cfg.GetMQTTBrokerURL())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "FLUSH_INTERVAL", "soon"},
		{"bad int", "BROKER_PORT", "eighteen"},
		{"bad bool", "BROKER_TLS", "maybe"},
		{"bad flush mode", "FLUSH_MODE", "sometimes"},
		{"bad qos", "MQTT_QOS", "3"},
		{"bad driver", "STORAGE_DRIVER", "sqlite"},
		{"zero interval", "FLUSH_INTERVAL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setPostgresCredentials(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresRequiresCredentials(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestLoad_MongoDoesNotNeedPostgres(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.Mongo.URI)
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Postgres: DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "smart_home", SSLMode: "require",
	}}}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=smart_home sslmode=require", cfg.GetDatabaseDSN())
}
