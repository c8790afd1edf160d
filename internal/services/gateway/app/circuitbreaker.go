package app

import (
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// NewBreaker builds a breaker that opens after failures consecutive errors
// and half-opens after openFor.
func NewBreaker(name string, failures int, openFor time.Duration, logger *log.Logger) *gobreaker.CircuitBreaker {
	if failures < 1 {
		failures = 1
	}
	if openFor <= 0 {
		openFor = 10 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // una sola prova in half-open
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(failures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Printf("gateway: breaker %s %s -> %s", name, from, to)
			}
		},
	})
}
