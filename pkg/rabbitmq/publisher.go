package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes payloads on MQTT topics.
type IPublisher interface {
	// PublishMessage publishes on the publisher's default topic.
	PublishMessage(message interface{}) error
	// PublishTo publishes on topic with explicit QoS and retain flag.
	PublishTo(topic string, qos byte, retained bool, message interface{}) error
	Close()
}

// Publisher wraps a shared MQTT client.
type Publisher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

// NewPublisher creates a publisher whose default topic is topic.
func NewPublisher(client mqtt.Client, topic string, qos byte) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qos, timeout: 5 * time.Second}
}

// PublishMessage publishes message on the default topic.
func (p *Publisher) PublishMessage(message interface{}) error {
	return p.PublishTo(p.topic, p.qos, false, message)
}

// PublishTo encodes message and publishes it. Strings and byte slices are sent
// as-is, anything else as JSON.
func (p *Publisher) PublishTo(topic string, qos byte, retained bool, message interface{}) error {
	if p.client == nil {
		return fmt.Errorf("publish %s: nil mqtt client", topic)
	}
	payload, err := encode(message)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish %s: timeout after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message on %s: %w", topic, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	CloseRabbitMQConn(p.client)
}

func encode(message interface{}) ([]byte, error) {
	switch m := message.(type) {
	case string:
		return []byte(m), nil
	case []byte:
		return m, nil
	default:
		return json.Marshal(m)
	}
}
