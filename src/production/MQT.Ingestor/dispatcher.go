package mqtingestor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	mqtbus "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Bus"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	metrics "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Metrics"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

var (
	// ErrDecode marks a payload that is not a JSON object or lacks its channel's field
	ErrDecode = errors.New("decode payload")
	// ErrUnknownTopic marks a message on a topic with no channel mapping
	ErrUnknownTopic = errors.New("unknown topic")
)

const defaultGasStatus = "NORMAL"

// channelRoute describes where a channel is published and which payload field carries its value
type channelRoute struct {
	channel  mqtmodels.Channel
	suffix   string
	valueKey string
}

var routes = [...]channelRoute{
	{mqtmodels.ChannelTemperature, "sensor/temperature", "temperature"},
	{mqtmodels.ChannelHumidity, "sensor/humidity", "humidity"},
	{mqtmodels.ChannelGas, "sensor/gas", "gas_ppm"},
	{mqtmodels.ChannelLight, "sensor/light", "light_lux"},
	{mqtmodels.ChannelDoor, "door/status", "status"},
}

// Dispatcher decodes inbound messages and stores them in the channel buffer
type Dispatcher struct {
	buffer  *ChannelBuffer
	topics  map[string]channelRoute
	order   []string
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// DispatcherOption customises a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithClock overrides the time source used for missing timestamps
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func NewDispatcher(topicPrefix string, buffer *ChannelBuffer, log *logger.Logger, m *metrics.Metrics, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		buffer:  buffer,
		topics:  make(map[string]channelRoute, len(routes)),
		order:   make([]string, 0, len(routes)),
		logger:  log.WithComponent("dispatcher"),
		metrics: m,
		now:     time.Now,
	}
	for _, r := range routes {
		topic := mqtbus.JoinTopic(topicPrefix, r.suffix)
		d.topics[topic] = r
		d.order = append(d.order, topic)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Topics returns the subscribed topics in channel order
func (d *Dispatcher) Topics() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// HandleMessage is the bus callback. Failures are logged and the message dropped.
func (d *Dispatcher) HandleMessage(msg mqtbus.Message) {
	channel, err := d.Dispatch(msg.Topic, msg.Payload)
	switch {
	case err == nil:
		d.metrics.ObserveMessage(string(channel), metrics.ResultAccepted)
		d.logger.Logger.Debug().Str("topic", msg.Topic).Str("channel", string(channel)).Msg("Buffered reading")
	case errors.Is(err, ErrUnknownTopic):
		d.metrics.ObserveMessage("", metrics.ResultUnknown)
		d.logger.Logger.Debug().Str("topic", msg.Topic).Msg("Ignoring message on unmapped topic")
	default:
		d.metrics.ObserveMessage(string(channel), metrics.ResultDecode)
		d.logger.Logger.Warn().Err(err).Str("topic", msg.Topic).Int("bytes", len(msg.Payload)).Msg("Discarding undecodable message")
	}
}

// Dispatch decodes payload for topic and overwrites the matching buffer slot.
// The buffer is untouched on any error.
func (d *Dispatcher) Dispatch(topic string, payload []byte) (mqtmodels.Channel, error) {
	route, ok := d.topics[topic]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	fields, err := decodeObject(payload)
	if err != nil {
		return route.channel, err
	}

	reading := mqtmodels.Reading{
		Channel:   route.channel,
		DeviceID:  deviceID(fields["device"]),
		Timestamp: d.timestamp(fields["timestamp"]),
	}

	switch route.channel {
	case mqtmodels.ChannelDoor:
		status, ok := stringField(fields[route.valueKey])
		if !ok {
			return route.channel, fmt.Errorf("%w: missing %q", ErrDecode, route.valueKey)
		}
		reading.Status = status
	default:
		value, ok := numberField(fields[route.valueKey])
		if !ok {
			return route.channel, fmt.Errorf("%w: missing numeric %q", ErrDecode, route.valueKey)
		}
		reading.Value = mqtmodels.Float64(value)
		if route.channel == mqtmodels.ChannelGas {
			reading.Status = defaultGasStatus
			if status, ok := stringField(fields["status"]); ok {
				reading.Status = status
			}
		}
	}

	d.buffer.Set(route.channel, reading)
	return route.channel, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is not an object", ErrDecode)
	}
	return fields, nil
}

func deviceID(v any) string {
	switch t := v.(type) {
	case nil:
		return mqtmodels.UnknownDevice
	case string:
		if t == "" {
			return mqtmodels.UnknownDevice
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}

func (d *Dispatcher) timestamp(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive
		if f, err := t.Float64(); err == nil && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
	}
	return d.now().Unix()
}

func numberField(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func stringField(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
