package rules

import (
	"math"

	"github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"
)

// Shading maps the Light channel onto the shading bands. Malformed input
// never fails: it yields ShadeUnknown.
func (p Policy) Shading(s entities.Snapshot) ShadingAction {
	raw, ok := s[entities.Light]
	if !ok || raw == nil {
		return ShadeUnknown
	}
	lux, ok := toFloat(raw)
	if !ok || math.IsNaN(lux) {
		return ShadeUnknown
	}
	if !math.IsInf(lux, 0) {
		lux = math.Trunc(lux)
	}
	for _, b := range p.ShadingBands {
		if b.contains(lux) {
			return b.Action
		}
	}
	return ShadeUnknown
}

// ShadingControl evaluates the default policy.
func ShadingControl(s entities.Snapshot) string {
	return string(DefaultPolicy().Shading(s))
}
