package messages

import "time"

// EscalationEvent notifies subscribers that the recent alert history crossed a level.
type EscalationEvent struct {
	GreenhouseID string    `json:"greenhouse_id"`
	Level        string    `json:"level"`
	DecisionID   string    `json:"decision_id"`
	RecentAlerts []bool    `json:"recent_alerts"` // oldest first, at most 3
	Timestamp    time.Time `json:"timestamp"`
}
