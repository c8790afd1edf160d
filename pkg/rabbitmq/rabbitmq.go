package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RabbitMQConfig describes the MQTT endpoint exposed by the RabbitMQ broker
// (mqtt plugin).
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	// CleanSession=false keeps QoS1 subscriptions across reconnects.
	CleanSession bool
	MaxRetries   int
}

// BrokerURL returns the tcp:// address of the broker.
func (c *RabbitMQConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

func (c *RabbitMQConfig) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.BrokerURL())
	opts.SetUsername(c.User)
	opts.SetPassword(c.Password)
	opts.SetClientID(c.ClientID)
	opts.SetCleanSession(c.CleanSession)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetOrderMatters(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt: connection lost (%s): %v", c.ClientID, err)
	})
	return opts
}

// NewRabbitMQConn connects to the broker, retrying with exponential backoff.
// The connection is closed when ctx is done.
func NewRabbitMQConn(cfg *RabbitMQConfig, ctx context.Context) (mqtt.Client, error) {
	opts := cfg.clientOptions()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt: connect to %s failed: %v", cfg.BrokerURL(), token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Printf("mqtt: connected to %s as %s", cfg.BrokerURL(), cfg.ClientID)

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(client)
	}()

	return client, nil
}

// CloseRabbitMQConn disconnects the client if it is still connected.
func CloseRabbitMQConn(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Println("mqtt: connection closed")
	}
}
