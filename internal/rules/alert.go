package rules

import "github.com/LeonardoBeccarini/sdcc_greenhouse/internal/model/entities"

// AlertCount returns how many alert conditions hold for the snapshot.
func (p Policy) AlertCount(s entities.Snapshot) (int, error) {
	n := 0
	for _, c := range p.Alerts {
		v, err := channelInt(s, c.Channel)
		if err != nil {
			return 0, err
		}
		if c.holds(float64(v)) {
			n++
		}
	}
	return n, nil
}

// Alert reports whether at least AlertQuorum conditions hold. No single
// condition decides on its own.
func (p Policy) Alert(s entities.Snapshot) (bool, error) {
	n, err := p.AlertCount(s)
	if err != nil {
		return false, err
	}
	return n >= p.AlertQuorum, nil
}

// RaiseAlert evaluates the default policy.
func RaiseAlert(s entities.Snapshot) (bool, error) {
	return DefaultPolicy().Alert(s)
}
