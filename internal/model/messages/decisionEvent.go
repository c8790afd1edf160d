package messages

import "time"

// DecisionEvent is published by the controller after every evaluation cycle.
type DecisionEvent struct {
	ID             string    `json:"id"`
	GreenhouseID   string    `json:"greenhouse_id"`
	SoilMoisture   int       `json:"soil_moisture"`
	Watering       string    `json:"watering"`
	WateringAction string    `json:"watering_action"` // water | light_water | skip | none
	Shading        string    `json:"shading"`
	Alert          bool      `json:"alert"`
	AlertCount     int       `json:"alert_count"`
	Escalation     string    `json:"escalation"` // none | suboptimal | critical
	MoistureSMA    float64   `json:"moisture_sma"`
	MoistureEMA    float64   `json:"moisture_ema"`
	HistoryLen     int       `json:"history_len"`
	Timestamp      time.Time `json:"timestamp"`
}
