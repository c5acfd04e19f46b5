package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	container "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Container"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
)

func TestRun_StoreFailureShutsDownContainer(t *testing.T) {
	ctr := container.New(&config.Config{
		Storage: config.StorageConfig{Driver: "sqlite", ConnectTimeout: time.Second},
		MQTT:    config.MQTTConfig{BrokerHost: "127.0.0.1", BrokerPort: 1, ClientID: "preflight"},
	}, logger.Nop())

	cleaned := false
	ctr.AddCleanupFunc(func(context.Context) error {
		cleaned = true
		return nil
	})

	assert.Equal(t, 1, run(ctr))
	assert.True(t, cleaned)
}
