package rabbitmq

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message is the paho message type, re-exported so handlers and their tests
// need not import paho.
type Message = mqtt.Message

// Handler processes one message received on topic.
type Handler func(topic string, message Message) error

// IConsumer subscribes and dispatches messages until ctx is cancelled.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// QoSFor returns the subscription QoS for topic. Snapshots and decisions
// need at-least-once delivery.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "greenhouse/snapshot") ||
		strings.HasPrefix(t, "greenhouse/decision") {
		return 1
	}
	return 0
}

// Consumer subscribes to one or more topic filters on a shared client.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
}

// NewConsumer creates a consumer for topic.
func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return NewMultiConsumer(client, []string{topic}, handler)
}

// NewMultiConsumer creates a consumer for several topics sharing one handler.
func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler) *Consumer {
	return &Consumer{client: client, topics: topics, handler: handler}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// Dispatch invokes the handler for msg and logs failures.
func (c *Consumer) Dispatch(topic string, msg Message) {
	if c.handler == nil {
		log.Printf("mqtt: no handler set for topic %s", topic)
		return
	}
	if err := c.handler(msg.Topic(), msg); err != nil {
		log.Printf("mqtt: error handling message on %s: %v", msg.Topic(), err)
	}
}

// ConsumeMessage subscribes to every topic and blocks until ctx is done.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range c.topics {
		topic := topic
		token := c.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			c.Dispatch(topic, msg)
		})
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt: error subscribing to %s: %v", topic, err)
			continue
		}
		log.Printf("mqtt: subscribed to %s", topic)
	}

	<-ctx.Done()

	for _, topic := range c.topics {
		c.client.Unsubscribe(topic).Wait()
	}
}
