package rules

import "github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"

// Evaluation bundles the three per-snapshot decisions.
type Evaluation struct {
	Watering   WateringDecision `json:"watering"`
	Shading    ShadingAction    `json:"shading"`
	Alert      bool             `json:"alert"`
	AlertCount int              `json:"alert_count"`
}

// Evaluate runs watering, shading and alert over one snapshot. It fails if
// any channel the watering or alert rules read is missing or malformed, so a
// successful Evaluation implies a complete snapshot.
func (p Policy) Evaluate(s entities.Snapshot) (Evaluation, error) {
	w, err := p.Watering(s)
	if err != nil {
		return Evaluation{}, err
	}
	n, err := p.AlertCount(s)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Watering:   w,
		Shading:    p.Shading(s),
		Alert:      n >= p.AlertQuorum,
		AlertCount: n,
	}, nil
}
