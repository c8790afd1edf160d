// Package rules evaluates greenhouse snapshots against threshold policy:
// watering, shading and the alert quorum, plus the escalation check over the
// alert history.
package rules

import (
	"math"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// WateringAction classifies a watering decision.
type WateringAction string

const (
	ActionWater      WateringAction = "water"
	ActionLightWater WateringAction = "light_water"
	ActionSkip       WateringAction = "skip"
	ActionNone       WateringAction = "none"
)

// ShadingAction is both the classification and the display text of a shading decision.
type ShadingAction string

const (
	ShadeOpen    ShadingAction = "Opening shades"
	ShadeNone    ShadingAction = "No action"
	ShadePartial ShadingAction = "Close partially"
	ShadeFull    ShadingAction = "Close fully"
	ShadeUnknown ShadingAction = "Unknown input format"
)

// WateringPolicy holds the soil-moisture ladder. All comparisons are strict.
type WateringPolicy struct {
	DryBelow              float64 // rule 1: moisture below
	DryHumidityBelow      float64 // rule 1: and humidity below ...
	DryTemperatureAbove   float64 // rule 1: ... or temperature above
	LightLower            float64 // rule 2: moisture above
	LightUpper            float64 // rule 2: and below
	LightTemperatureAbove float64 // rule 2: and temperature above
	SaturatedAbove        float64 // rule 3: moisture above
}

// ShadingBand maps a lux interval to an action.
type ShadingBand struct {
	Action       ShadingAction
	Min, Max     float64
	MinInclusive bool
	MaxInclusive bool
}

func (b ShadingBand) contains(v float64) bool {
	lowOK := v > b.Min || (b.MinInclusive && v == b.Min)
	highOK := v < b.Max || (b.MaxInclusive && v == b.Max)
	return lowOK && highOK
}

// Comparison is the direction of an alert condition.
type Comparison string

const (
	Above Comparison = ">"
	Below Comparison = "<"
)

// AlertCondition is one vote of the alert quorum.
type AlertCondition struct {
	Channel   entities.Channel
	Op        Comparison
	Threshold float64
}

func (c AlertCondition) holds(v float64) bool {
	switch c.Op {
	case Above:
		return v > c.Threshold
	case Below:
		return v < c.Threshold
	default:
		return false
	}
}

// Policy is the complete threshold set. The evaluator methods are pure
// functions of the policy and the snapshot.
type Policy struct {
	WateringRules WateringPolicy
	ShadingBands  []ShadingBand // checked in order, first match wins
	Alerts        []AlertCondition
	AlertQuorum   int
}

// DefaultPolicy returns the fixed greenhouse policy.
func DefaultPolicy() Policy {
	return Policy{
		WateringRules: WateringPolicy{
			DryBelow:              35,
			DryHumidityBelow:      40,
			DryTemperatureAbove:   30,
			LightLower:            35,
			LightUpper:            50,
			LightTemperatureAbove: 35,
			SaturatedAbove:        70,
		},
		ShadingBands: []ShadingBand{
			{Action: ShadeOpen, Min: math.Inf(-1), Max: 300, MinInclusive: true},
			{Action: ShadeNone, Min: 300, Max: 800, MinInclusive: true},
			{Action: ShadePartial, Min: 800, Max: 1000, MinInclusive: true, MaxInclusive: true},
			{Action: ShadeFull, Min: 1000, Max: math.Inf(1), MaxInclusive: true},
		},
		Alerts: []AlertCondition{
			{Channel: entities.Temperature, Op: Above, Threshold: 36},
			{Channel: entities.Humidity, Op: Below, Threshold: 25},
			{Channel: entities.CarbonDioxide, Op: Above, Threshold: 1200},
			{Channel: entities.SoilMoisture, Op: Below, Threshold: 30},
			{Channel: entities.Light, Op: Above, Threshold: 1100},
		},
		AlertQuorum: 3,
	}
}
