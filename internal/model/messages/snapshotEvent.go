package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// SnapshotEvent is published by the simulator (or any sensor gateway) once per cycle.
type SnapshotEvent struct {
	GreenhouseID string            `json:"greenhouse_id"`
	Readings     entities.Snapshot `json:"readings"`
	Timestamp    time.Time         `json:"timestamp"`
}
