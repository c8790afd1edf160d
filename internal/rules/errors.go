package rules

import (
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

var (
	// ErrMissingChannel is returned when a required channel is absent from a snapshot.
	ErrMissingChannel = errors.New("missing channel")
	// ErrInvalidNumeric is returned when a channel value cannot be coerced to a number.
	ErrInvalidNumeric = errors.New("invalid numeric value")
)

// ChannelError reports which channel failed coercion.
type ChannelError struct {
	Channel entities.Channel
	Value   any
	Err     error
}

func (e *ChannelError) Error() string {
	if errors.Is(e.Err, ErrMissingChannel) {
		return fmt.Sprintf("%s: %v", e.Err, e.Channel)
	}
	return fmt.Sprintf("%s: %v=%v", e.Err, e.Channel, e.Value)
}

func (e *ChannelError) Unwrap() error { return e.Err }
