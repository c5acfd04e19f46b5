// Package mqtbus owns the publish/subscribe connection shared by the ingestion
// service and the control publisher.
package mqtbus

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotConnected is returned when an operation needs a live broker connection.
	ErrNotConnected = errors.New("mqtt client is not connected")
	// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

// Message is an inbound bus message
type Message struct {
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// Handler is invoked once per inbound message, possibly from several goroutines at once.
type Handler func(Message)

// Client is the bus handle injected into components that subscribe or publish
type Client interface {
	Subscribe(topic string, handler Handler) error
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// JoinTopic builds "<prefix>/<suffix>", tolerating an empty prefix
func JoinTopic(prefix, suffix string) string {
	prefix = strings.Trim(prefix, "/")
	suffix = strings.Trim(suffix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}
