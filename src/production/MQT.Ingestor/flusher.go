package mqtingestor

import (
	"context"
	"time"

	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
	metrics "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Metrics"
	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
	interfaces "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Repository/Interfaces"
)

// Ticker is the subset of time.Ticker the flush loop needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct {
	*time.Ticker
}

func (t stdTicker) C() <-chan time.Time { return t.Ticker.C }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{time.NewTicker(d)}
}

// FlushResult summarises one flush
type FlushResult struct {
	Attempted int
	Persisted int
	Failed    int
}

// Flusher periodically persists the channel buffer
type Flusher struct {
	buffer       *ChannelBuffer
	sensors      interfaces.SensorRepository
	doors        interfaces.DoorRepository
	interval     time.Duration
	mode         string
	writeTimeout time.Duration
	newTicker    TickerFactory
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

// FlusherOption customises a Flusher
type FlusherOption func(*Flusher)

// WithTicker replaces the wall-clock ticker
func WithTicker(factory TickerFactory) FlusherOption {
	return func(f *Flusher) {
		f.newTicker = factory
	}
}

func NewFlusher(buffer *ChannelBuffer, sensors interfaces.SensorRepository, doors interfaces.DoorRepository, cfg config.FlushConfig, log *logger.Logger, m *metrics.Metrics, opts ...FlusherOption) *Flusher {
	f := &Flusher{
		buffer:       buffer,
		sensors:      sensors,
		doors:        doors,
		interval:     cfg.Interval,
		mode:         cfg.Mode,
		writeTimeout: cfg.WriteTimeout,
		newTicker:    newStdTicker,
		logger:       log.WithComponent("flusher"),
		metrics:      m,
	}
	if f.interval <= 0 {
		f.interval = 5 * time.Second
	}
	if f.mode == "" {
		f.mode = config.FlushModeClear
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run flushes on every tick until ctx is cancelled. Tick timing does not depend
// on message arrival or on how long a flush takes.
func (f *Flusher) Run(ctx context.Context) {
	ticker := f.newTicker(f.interval)
	defer ticker.Stop()

	f.logger.Logger.Info().Dur("interval", f.interval).Str("mode", f.mode).Msg("Starting periodic flush")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			f.FlushOnce(ctx)
		}
	}
}

// FlushOnce writes every buffered reading once. Each record is written on its
// own so one failure never blocks the others. An empty buffer is a no-op.
func (f *Flusher) FlushOnce(ctx context.Context) FlushResult {
	var readings []mqtmodels.Reading
	if f.mode == config.FlushModeRetain {
		readings = f.buffer.Snapshot()
	} else {
		readings = f.buffer.Drain()
	}

	var res FlushResult
	if len(readings) == 0 {
		return res
	}

	start := time.Now()
	for _, r := range readings {
		res.Attempted++
		if err := f.persist(ctx, r); err != nil {
			res.Failed++
			f.metrics.ObserveRecord(string(r.Channel), metrics.ResultFailed)
			restored := false
			if f.mode == config.FlushModeClear {
				restored = f.buffer.Restore(r)
			}
			f.logger.WithError(err).WithFields(map[string]interface{}{
				"channel":   string(r.Channel),
				"device_id": r.DeviceID,
				"restored":  restored,
			}).Error("Failed to persist reading")
			continue
		}
		res.Persisted++
		f.metrics.ObserveRecord(string(r.Channel), metrics.ResultOK)
	}
	f.metrics.ObserveFlush(time.Since(start))

	if res.Persisted > 0 {
		f.logger.Logger.Info().Int("saved", res.Persisted).Int("failed", res.Failed).Msg("Saved records to database")
	}
	return res
}

func (f *Flusher) persist(ctx context.Context, r mqtmodels.Reading) error {
	if f.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.writeTimeout)
		defer cancel()
	}

	if r.Channel == mqtmodels.ChannelDoor {
		return f.doors.InsertDoorStatus(ctx, mqtmodels.NewDoorStatusRecord(r))
	}
	return f.sensors.InsertSensorRecord(ctx, mqtmodels.NewSensorRecord(r))
}
