package rules

import (
	"fmt"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// WateringDecision is the outcome of the watering ladder.
type WateringDecision struct {
	Action       WateringAction `json:"action"`
	SoilMoisture int            `json:"soil_moisture"`
	Message      string         `json:"message"`
}

func (d WateringDecision) String() string { return d.Message }

// Watering runs the watering ladder. Moisture values sitting exactly on a
// rule boundary (35, 50, 70 with the default policy) match no rule and
// yield ActionNone.
func (p Policy) Watering(s entities.Snapshot) (WateringDecision, error) {
	sm, err := channelInt(s, entities.SoilMoisture)
	if err != nil {
		return WateringDecision{}, err
	}
	hum, err := channelInt(s, entities.Humidity)
	if err != nil {
		return WateringDecision{}, err
	}
	temp, err := channelInt(s, entities.Temperature)
	if err != nil {
		return WateringDecision{}, err
	}

	w := p.WateringRules
	moist, h, t := float64(sm), float64(hum), float64(temp)
	switch {
	case moist < w.DryBelow && (h < w.DryHumidityBelow || t > w.DryTemperatureAbove):
		return WateringDecision{Action: ActionWater, SoilMoisture: sm, Message: fmt.Sprintf("%d: Watering plants...", sm)}, nil
	case moist > w.LightLower && moist < w.LightUpper && t > w.LightTemperatureAbove:
		return WateringDecision{Action: ActionLightWater, SoilMoisture: sm, Message: fmt.Sprintf("%d: Initiating Light watering", sm)}, nil
	case moist > w.SaturatedAbove:
		return WateringDecision{Action: ActionSkip, SoilMoisture: sm, Message: fmt.Sprintf("%d: No watering", sm)}, nil
	default:
		return WateringDecision{Action: ActionNone, SoilMoisture: sm, Message: "No action"}, nil
	}
}

// WateringControl evaluates the default policy and returns the display text.
func WateringControl(s entities.Snapshot) (string, error) {
	d, err := DefaultPolicy().Watering(s)
	if err != nil {
		return "", err
	}
	return d.Message, nil
}
