// Package metrics holds the Prometheus collectors for ingestion, flushing and control.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "smarthome"

// Result labels
const (
	ResultAccepted = "accepted"
	ResultDecode   = "decode_error"
	ResultUnknown  = "unknown_topic"
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultInvalid  = "invalid"
)

// Metrics tracks ingestion, flush and control activity. A nil *Metrics is a no-op.
type Metrics struct {
	messages      *prometheus.CounterVec
	flushed       *prometheus.CounterVec
	flushDuration prometheus.Histogram
	commands      *prometheus.CounterVec
}

// NewMetrics constructs and registers the collectors with the provided registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "messages_total",
				Help:      "Inbound bus messages by channel and outcome.",
			},
			[]string{"channel", "result"},
		),
		flushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flush",
				Name:      "records_total",
				Help:      "Durable record writes attempted by the flush scheduler.",
			},
			[]string{"channel", "result"},
		),
		flushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "flush",
				Name:      "duration_seconds",
				Help:      "Time spent in a single non-idle flush.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "control",
				Name:      "commands_total",
				Help:      "Control commands by device and outcome.",
			},
			[]string{"device", "result"},
		),
	}
	reg.MustRegister(m.messages, m.flushed, m.flushDuration, m.commands)
	return m
}

// ObserveMessage counts one inbound message
func (m *Metrics) ObserveMessage(channel, result string) {
	if m == nil {
		return
	}
	if channel == "" {
		channel = "none"
	}
	m.messages.WithLabelValues(channel, result).Inc()
}

// ObserveRecord counts one durable write attempt
func (m *Metrics) ObserveRecord(channel, result string) {
	if m == nil {
		return
	}
	m.flushed.WithLabelValues(channel, result).Inc()
}

// ObserveFlush records the duration of a flush that had work to do
func (m *Metrics) ObserveFlush(d time.Duration) {
	if m == nil {
		return
	}
	m.flushDuration.Observe(d.Seconds())
}

// ObserveCommand counts one control command
func (m *Metrics) ObserveCommand(device, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(device, result).Inc()
}
