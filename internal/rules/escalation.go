package rules

// Signal is the severity derived from the alert history.
type Signal string

const (
	SignalNone       Signal = "none"
	SignalSuboptimal Signal = "suboptimal"
	SignalCritical   Signal = "critical"
)

// criticalRun is the number of consecutive alerts that makes a critical signal.
const criticalRun = 3

// Escalate inspects the tail of an alert history, oldest entry first.
func Escalate(history []bool) Signal {
	n := len(history)
	if n == 0 {
		return SignalNone
	}
	if n >= criticalRun {
		critical := true
		for _, a := range history[n-criticalRun:] {
			if !a {
				critical = false
				break
			}
		}
		if critical {
			return SignalCritical
		}
	}
	if history[n-1] {
		return SignalSuboptimal
	}
	return SignalNone
}
