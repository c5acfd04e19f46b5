// Package mqtcontrol validates device commands, publishes them on the bus and
// records them in the control log.
package mqtcontrol

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtbus "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Bus"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	metrics "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Metrics"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

var (
	// ErrInvalidCommand is returned for commands outside a device's vocabulary
	ErrInvalidCommand = errors.New("invalid command")
	// ErrBusUnavailable is returned when the command could not be handed to the broker
	ErrBusUnavailable = errors.New("mqtt not connected")
)

const (
	minPosition = 0
	maxPosition = 100
)

// Issued describes a command that reached the broker
type Issued struct {
	Command mqtmodels.ControlCommand
	Topic   string
	Payload string
	// Logged is false when the audit insert failed after a successful publish
	Logged bool
}

// Validate normalises cmd and returns it with the raw payload to publish
func Validate(cmd mqtmodels.ControlCommand) (mqtmodels.ControlCommand, string, error) {
	if cmd.Source == "" {
		cmd.Source = mqtmodels.DefaultCommandSource
	}

	switch cmd.Device {
	case mqtmodels.ControlDoor:
		cmd.Command = strings.ToUpper(strings.TrimSpace(cmd.Command))
		if cmd.Command != mqtmodels.CommandLock && cmd.Command != mqtmodels.CommandUnlock {
			return cmd, "", fmt.Errorf("%w: use LOCK or UNLOCK", ErrInvalidCommand)
		}
		return cmd, cmd.Command, nil

	case mqtmodels.ControlLight:
		cmd.Command = strings.ToUpper(strings.TrimSpace(cmd.Command))
		if cmd.Command != mqtmodels.CommandOn && cmd.Command != mqtmodels.CommandOff {
			return cmd, "", fmt.Errorf("%w: use ON or OFF", ErrInvalidCommand)
		}
		return cmd, cmd.Command, nil

	case mqtmodels.ControlCurtain:
		pos := 0
		if cmd.Position != nil {
			pos = *cmd.Position
		}
		if pos < minPosition || pos > maxPosition {
			return cmd, "", fmt.Errorf("%w: position must be between %d-%d", ErrInvalidCommand, minPosition, maxPosition)
		}
		cmd.Position = &pos
		cmd.Command = mqtmodels.CommandSetPosition
		return cmd, strconv.Itoa(pos), nil

	default:
		return cmd, "", fmt.Errorf("%w: unknown device %q", ErrInvalidCommand, cmd.Device)
	}
}

// Publisher sends validated commands to the device control topics
type Publisher struct {
	bus     mqtbus.Client
	logs    interfaces.ControlLogRepository
	prefix  string
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPublisher(bus mqtbus.Client, logs interfaces.ControlLogRepository, topicPrefix string, log *logger.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		bus:     bus,
		logs:    logs,
		prefix:  topicPrefix,
		logger:  log.WithComponent("control"),
		metrics: m,
		now:     time.Now,
	}
}

// Topic returns the control topic for device
func (p *Publisher) Topic(device mqtmodels.ControlDevice) string {
	return mqtbus.JoinTopic(p.prefix, "control/"+string(device))
}

// Issue validates, publishes, then appends a control log entry. Nothing is
// published or logged for an invalid command or a disconnected bus.
func (p *Publisher) Issue(ctx context.Context, cmd mqtmodels.ControlCommand) (*Issued, error) {
	cmd, payload, err := Validate(cmd)
	if err != nil {
		p.metrics.ObserveCommand(string(cmd.Device), metrics.ResultInvalid)
		return nil, err
	}

	if !p.bus.IsConnected() {
		p.metrics.ObserveCommand(string(cmd.Device), metrics.ResultFailed)
		return nil, ErrBusUnavailable
	}

	topic := p.Topic(cmd.Device)
	if err := p.bus.Publish(topic, []byte(payload)); err != nil {
		p.metrics.ObserveCommand(string(cmd.Device), metrics.ResultFailed)
		p.logger.WithError(err).WithField("topic", topic).Error("Failed to publish control command")
		return nil, fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	p.metrics.ObserveCommand(string(cmd.Device), metrics.ResultOK)

	entry := mqtmodels.ControlLogEntry{
		DeviceType: cmd.Device,
		Command:    cmd.Command,
		Source:     cmd.Source,
		Timestamp:  p.now().Unix(),
	}
	if cmd.Device == mqtmodels.ControlCurtain {
		entry.Value = &payload
	}

	issued := &Issued{Command: cmd, Topic: topic, Payload: payload, Logged: true}
	if err := p.logs.InsertControlLog(ctx, entry); err != nil {
		issued.Logged = false
		p.logger.WithError(err).WithFields(map[string]interface{}{
			"device":  string(cmd.Device),
			"command": cmd.Command,
		}).Error("Command sent but control log insert failed")
	}

	p.logger.Logger.Info().Str("topic", topic).Str("payload", payload).Str("source", cmd.Source).Msg("Control command sent")
	return issued, nil
}
