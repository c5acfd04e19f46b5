package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	mocks "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Mocks"
)

func TestGetHealthStatus(t *testing.T) {
	tests := []struct {
		name      string
		pingErr   error
		connected bool
		healthy   bool
		status    string
	}{
		{"all ok", nil, true, true, "ok"},
		{"store down", errors.New("refused"), true, false, "degraded"},
		{"bus down", nil, false, false, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mocks.MockTelemetryStore)
			bus := new(mocks.MockBusClient)
			store.On("Ping", mock.Anything).Return(tt.pingErr)
			bus.On("IsConnected").Return(tt.connected)

			status, healthy := NewHealthChecker(store, bus, "1.0.0").GetHealthStatus(context.Background())

			assert.Equal(t, tt.healthy, healthy)
			assert.Equal(t, tt.status, status["status"])
			assert.Equal(t, "1.0.0", status["version"])
		})
	}
}

func TestCheckStore_NotConfigured(t *testing.T) {
	assert.Error(t, NewHealthChecker(nil, nil, "").CheckStore(context.Background()))
}
