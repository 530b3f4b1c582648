package mqtt

import (
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MessageHandler handles one MQTT message
type MessageHandler func(topic string, payload []byte) error

// Client MQTT client wrapper
type Client struct {
	client mqtt.Client
	config *config.MQTTConfig
	logger *zap.Logger
}

// NewClient connects to the broker
func NewClient(cfg *config.MQTTConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", zap.String("broker", cfg.Broker), zap.String("client_id", cfg.ClientID))
	})

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// Subscribe handler errors are logged and do not stop the subscription.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		deliver(c.logger, handler, msg.Topic(), msg.Payload())
	}); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	c.logger.Info("MQTT subscribed", zap.String("topic", topic), zap.Uint8("qos", qos))
	return nil
}

// Publish publishes and waits for the broker ack
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

// Unsubscribe
func (c *Client) Unsubscribe(topics ...string) error {
	token := c.client.Unsubscribe(topics...)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to unsubscribe: %w", token.Error())
	}
	return nil
}

// Disconnect waits up to 250ms for in-flight work
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// IsConnected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func deliver(logger *zap.Logger, handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("MQTT handler panicked", zap.String("topic", topic), zap.Any("panic", r))
		}
	}()
	if err := handler(topic, payload); err != nil {
		logger.Warn("Error handling MQTT message", zap.String("topic", topic), zap.Error(err))
	}
}
