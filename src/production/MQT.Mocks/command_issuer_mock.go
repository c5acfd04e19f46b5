package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	mqtcontrol "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Control"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

// MockCommandIssuer is a mock implementation of controllers.CommandIssuer
type MockCommandIssuer struct {
	mock.Mock
}

func (m *MockCommandIssuer) Issue(ctx context.Context, cmd mqtmodels.ControlCommand) (*mqtcontrol.Issued, error) {
	args := m.Called(ctx, cmd)
	issued, _ := args.Get(0).(*mqtcontrol.Issued)
	return issued, args.Error(1)
}
