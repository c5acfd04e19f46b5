package mqtbus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Config"
	logger "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Logger"
)

// MQTTClient is the subset of the paho client used by PahoClient
type MQTTClient interface {
	IsConnected() bool
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// PahoClient is a reconnecting MQTT client. Registered subscriptions are
// replayed on every (re)connect.
type PahoClient struct {
	cfg       config.MQTTConfig
	brokerURL string
	logger    *logger.Logger

	mu            sync.RWMutex
	client        MQTTClient
	subscriptions map[string]Handler
}

// NewPahoClient creates a client for the broker. Nothing is dialled until Connect.
func NewPahoClient(cfg config.MQTTConfig, brokerURL string, log *logger.Logger) *PahoClient {
	return &PahoClient{
		cfg:           cfg,
		brokerURL:     brokerURL,
		logger:        log.WithComponent("bus"),
		subscriptions: make(map[string]Handler),
	}
}

// NewPahoClientWith wraps an already constructed paho client
func NewPahoClientWith(client MQTTClient, cfg config.MQTTConfig, log *logger.Logger) *PahoClient {
	c := NewPahoClient(cfg, "", log)
	c.client = client
	return c
}

// Connect dials the broker and blocks until the first connection succeeds or ctx ends.
// When ctx ends first the client keeps retrying in the background and replays
// subscriptions once connected; call Disconnect to stop it.
func (c *PahoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.client == nil {
		opts, err := c.clientOptions()
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.client = mqtt.NewClient(opts)
	}
	client := c.client
	c.mu.Unlock()

	c.logger.Logger.Info().Str("broker", c.brokerURL).Str("client_id", c.cfg.ClientID).Msg("Connecting to MQTT broker")

	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to mqtt broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connect to mqtt broker: %w", ctx.Err())
	}
}

// Disconnect closes the broker connection, waiting up to quiesce for in-flight
// work. It also stops a connect still retrying in the background.
func (c *PahoClient) Disconnect(quiesce time.Duration) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return
	}
	client.Disconnect(uint(quiesce / time.Millisecond))
	c.logger.Logger.Info().Msg("Disconnected from MQTT broker")
}

// IsConnected reports whether the broker connection is currently up
func (c *PahoClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil && c.client.IsConnected()
}

// Subscribe registers handler for topic. If connected the subscription is made
// now, otherwise on the next connect.
func (c *PahoClient) Subscribe(topic string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("subscribe %s: nil handler", topic)
	}

	c.mu.Lock()
	c.subscriptions[topic] = handler
	client := c.client
	c.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return nil
	}
	return c.subscribe(client, topic, handler)
}

// Publish sends payload to topic with the configured QoS, not retained
func (c *PahoClient) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	token := client.Publish(topic, byte(c.cfg.QOS), false, payload)
	if !token.WaitTimeout(c.publishTimeout()) {
		return fmt.Errorf("publish %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// OnConnect replays every registered subscription on the given connection.
// It is installed as the paho OnConnect handler.
func (c *PahoClient) OnConnect(client MQTTClient) {
	c.mu.RLock()
	topics := make([]string, 0, len(c.subscriptions))
	handlers := make(map[string]Handler, len(c.subscriptions))
	for topic, handler := range c.subscriptions {
		topics = append(topics, topic)
		handlers[topic] = handler
	}
	c.mu.RUnlock()

	sort.Strings(topics)
	c.logger.Logger.Info().Strs("topics", topics).Msg("MQTT connected, subscribing to topics")

	for _, topic := range topics {
		if err := c.subscribe(client, topic, handlers[topic]); err != nil {
			c.logger.Logger.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to MQTT topic")
		}
	}
}

func (c *PahoClient) subscribe(client MQTTClient, topic string, handler Handler) error {
	callback := func(_ mqtt.Client, m mqtt.Message) {
		handler(Message{
			Topic:      m.Topic(),
			Payload:    m.Payload(),
			ReceivedAt: time.Now().UTC(),
		})
	}

	token := client.Subscribe(topic, byte(c.cfg.QOS), callback)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (c *PahoClient) publishTimeout() time.Duration {
	if c.cfg.PublishTimeout <= 0 {
		return 5 * time.Second
	}
	return c.cfg.PublishTimeout
}

func (c *PahoClient) clientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(c.brokerURL).
		SetClientID(c.cfg.ClientID).
		SetOrderMatters(false).
		SetKeepAlive(c.cfg.KeepAlive).
		SetPingTimeout(c.cfg.PingTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if c.cfg.BrokerUser != "" {
		opts.SetUsername(c.cfg.BrokerUser)
		opts.SetPassword(c.cfg.BrokerPass)
	}

	if c.cfg.UseTLS {
		tlsCfg, err := tlsConfig(c.cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.logger.Logger.Error().Err(err).Msg("MQTT connection lost")
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		c.logger.Logger.Warn().Msg("MQTT reconnecting")
	}
	opts.OnConnect = func(client mqtt.Client) {
		c.OnConnect(client)
	}

	return opts, nil
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read broker CA file: %w", err)
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file %s", caFile)
	}
	cfg.RootCAs = cp
	return cfg, nil
}
