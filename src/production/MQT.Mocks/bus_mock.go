package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
	mqtbus "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Bus"
)

// MockBusClient is a mock implementation of mqtbus.Client. Handlers passed to
// Subscribe are kept so tests can deliver messages with Deliver.
type MockBusClient struct {
	mock.Mock

	mu       sync.Mutex
	handlers map[string]mqtbus.Handler
}

func (m *MockBusClient) Subscribe(topic string, handler mqtbus.Handler) error {
	args := m.Called(topic, handler)
	if args.Error(0) == nil {
		m.mu.Lock()
		if m.handlers == nil {
			m.handlers = make(map[string]mqtbus.Handler)
		}
		m.handlers[topic] = handler
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockBusClient) Publish(topic string, payload []byte) error {
	args := m.Called(topic, payload)
	return args.Error(0)
}

func (m *MockBusClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

// Deliver invokes the handler registered for topic, reporting whether one existed
func (m *MockBusClient) Deliver(topic string, payload []byte) bool {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	h(mqtbus.Message{Topic: topic, Payload: payload})
	return true
}
