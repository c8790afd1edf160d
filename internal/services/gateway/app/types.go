package app

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/messages"
)

// ---------- Upstream payloads ----------

// Averages mirrors the controller's GET /greenhouses/{id}/averages.
type Averages struct {
	Greenhouse string    `json:"greenhouse"`
	History    []float64 `json:"history"`
	SMA        []float64 `json:"sma"`
	EMA        []float64 `json:"ema"`
}

// Alerts mirrors the controller's GET /greenhouses/{id}/alerts.
type Alerts struct {
	Greenhouse string `json:"greenhouse"`
	Alerts     []bool `json:"alerts"`
	Escalation string `json:"escalation"`
}

// RecentDecision is one row of the event service's decision log.
type RecentDecision struct {
	GreenhouseID string `json:"greenhouse_id"`
	SoilMoisture int    `json:"soil_moisture"`
	Watering     string `json:"watering"`
	Shading      string `json:"shading"`
	Alert        bool   `json:"alert"`
	Escalation   string `json:"escalation"`
	Time         string `json:"time"` // RFC3339
}

func (d *RecentDecision) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	d.GreenhouseID = str("greenhouse_id")
	d.Watering = str("watering")
	d.Shading = str("shading")
	d.Escalation = str("escalation")
	// time / timestamp
	if t := str("time"); t != "" {
		d.Time = t
	} else {
		d.Time = str("timestamp")
	}
	switch x := m["alert"].(type) {
	case bool:
		d.Alert = x
	case string:
		d.Alert, _ = strconv.ParseBool(x)
	}
	// soil_moisture come numero o stringa, troncato come fa il controller
	switch x := m["soil_moisture"].(type) {
	case float64:
		d.SoilMoisture = int(math.Trunc(x))
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			d.SoilMoisture = int(math.Trunc(f))
		}
	}
	return nil
}

type DashboardData struct {
	Greenhouse       string                  `json:"greenhouse"`
	Moisture         []float64               `json:"moisture"`
	SMA              []float64               `json:"sma"`
	EMA              []float64               `json:"ema"`
	Alerts           []bool                  `json:"alerts"`
	Escalation       string                  `json:"escalation"`
	Latest           *messages.DecisionEvent `json:"latest,omitempty"`
	Recent           []RecentDecision        `json:"recent"`
	Stats            map[string]float64      `json:"stats"`
	ControllerHealth string                  `json:"controller_health"`
	Stale            []string                `json:"stale,omitempty"` // sources served from cache
	Breakers         map[string]string       `json:"breakers"`
}
