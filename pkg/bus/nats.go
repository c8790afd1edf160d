// Package bus publishes JSON notifications on NATS subjects.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
)

// Notifier is the publishing side used by services.
type Notifier interface {
	Publish(subject string, payload any) error
	Close()
}

type Publisher struct {
	Conn *nats.Conn
}

// NewPublisher connects to url, retrying with exponential backoff until
// maxElapsed has passed or ctx is done.
func NewPublisher(ctx context.Context, url, name string, maxElapsed time.Duration) (*Publisher, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxElapsed

	var conn *nats.Conn
	err := backoff.Retry(func() error {
		c, err := nats.Connect(url,
			nats.Name(name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Printf("bus: disconnected: %v", err)
				}
			}),
		)
		if err != nil {
			log.Printf("bus: connect to %s failed: %v", url, err)
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	log.Printf("bus: connected to %s", url)
	return &Publisher{Conn: conn}, nil
}

func (p *Publisher) Close() {
	if p.Conn != nil {
		// Drain chiude la connessione a fine flush
		if err := p.Conn.Drain(); err != nil {
			p.Conn.Close()
		}
	}
}

func (p *Publisher) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	return p.Conn.Publish(subject, data)
}

// Nop discards every notification. Services use it when no NATS URL is set.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }
func (Nop) Close()                    {}
