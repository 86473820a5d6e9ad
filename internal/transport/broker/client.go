package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/oshokin/proximity-alarm/internal/logger"
)

const (
	// clientIDPrefix prefixes generated client identifiers.
	clientIDPrefix = "proximity-server-"
	// keepAlive is the MQTT keep-alive interval.
	keepAlive = 60 * time.Second
	// pingTimeout bounds a keep-alive round trip.
	pingTimeout = 10 * time.Second
	// disconnectQuiesce is how long Close waits for in-flight work, in milliseconds.
	disconnectQuiesce = 250
	// enqueueTimeout is how long a received message may wait for queue space.
	enqueueTimeout = time.Second
	// defaultAckTimeout is used when ClientConfig.Timeout is unset.
	defaultAckTimeout = 5 * time.Second
)

var (
	// ErrPublishTimeout is returned when the broker does not acknowledge a publish in time.
	ErrPublishTimeout = errors.New("publish timed out")
	// ErrNotConnected is returned by Publish while the connection is down.
	ErrNotConnected = errors.New("not connected to broker")
)

// Message is one received MQTT message.
type Message struct {
	// Topic the message arrived on.
	Topic string
	// Payload is the raw message body.
	Payload string
}

// ClientConfig holds the connection parameters.
type ClientConfig struct {
	// Broker is the broker URL.
	Broker string
	// ClientID is generated when empty.
	ClientID string
	// Username for broker authentication.
	Username string
	// Password for broker authentication.
	Password string
	// QoS for subscriptions and publishes.
	QoS byte
	// Topics are subscribed on every connect.
	Topics []string
	// Buffer is the inbound queue capacity.
	Buffer int
	// Timeout bounds connect, subscribe and publish acknowledgements.
	Timeout time.Duration
}

// Client is an MQTT connection feeding a single inbound queue.
type Client struct {
	// client is the underlying paho client.
	client mqtt.Client
	// config holds the connection parameters.
	config ClientConfig
	// inbound receives every subscribed message.
	inbound chan Message
	// ctx carries the logger for paho callbacks.
	ctx context.Context //nolint:containedctx // paho callbacks have no context of their own.
}

// NewClient prepares a client. Nothing is dialed until Connect.
func NewClient(ctx context.Context, config ClientConfig) *Client {
	if config.ClientID == "" {
		config.ClientID = clientIDPrefix + uuid.NewString()
	}

	if config.Timeout <= 0 {
		config.Timeout = defaultAckTimeout
	}

	c := &Client{
		config:  config,
		inbound: make(chan Message, config.Buffer),
		ctx:     logger.WithFields(logger.WithName(ctx, "broker"), "broker", config.Broker),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetUsername(config.Username).
		SetPassword(config.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetWriteTimeout(config.Timeout).
		SetCleanSession(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)

	return c
}

// Connect dials the broker and waits for the first connection or ctx.
// Subscriptions are made by the on-connect handler.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", c.config.Broker, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", c.config.Broker, err)
	}

	return nil
}

// Inbound returns the queue of received messages.
func (c *Client) Inbound() <-chan Message {
	return c.inbound
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends payload to topic and waits for the acknowledgement.
// It fails fast while the connection is down instead of queueing.
func (c *Client) Publish(ctx context.Context, topic, payload string) error {
	if !c.IsConnected() {
		return fmt.Errorf("publish to %s: %w", topic, ErrNotConnected)
	}

	token := c.client.Publish(topic, c.config.QoS, false, payload)

	timeout := c.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s: %w", topic, ErrPublishTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
	logger.Info(c.ctx, "Disconnected from broker")
}

func (c *Client) onConnect(client mqtt.Client) {
	logger.Info(c.ctx, "Connected to broker")

	for _, topic := range c.config.Topics {
		token := client.Subscribe(topic, c.config.QoS, c.onMessage)
		if !token.WaitTimeout(c.config.Timeout) {
			logger.ErrorKV(c.ctx, "Subscribe timed out", "topic", topic)

			continue
		}

		if err := token.Error(); err != nil {
			logger.ErrorKV(c.ctx, "Subscribe failed", "topic", topic, "error", err)

			continue
		}

		logger.InfoKV(c.ctx, "Subscribed", "topic", topic)
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	logger.WarnKV(c.ctx, "Connection to broker lost", "error", err)
}

func (c *Client) onReconnecting(mqtt.Client, *mqtt.ClientOptions) {
	logger.Info(c.ctx, "Reconnecting to broker")
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.enqueue(Message{Topic: msg.Topic(), Payload: string(msg.Payload())})
}

// enqueue waits up to enqueueTimeout for queue space, then drops the message.
func (c *Client) enqueue(msg Message) {
	timer := time.NewTimer(enqueueTimeout)
	defer timer.Stop()

	select {
	case c.inbound <- msg:
	case <-timer.C:
		logger.WarnKV(c.ctx, "Inbound queue full, dropping message", "topic", msg.Topic)
	}
}
