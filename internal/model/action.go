package model

import "math"

// Action is a human-friendly storage operating mode for a snapshot.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionEpsilonMW is the magnitude below which solver noise counts as idle.
const ActionEpsilonMW = 1e-6

// ActionFromStoreP classifies store power (positive = discharging into the bus).
func ActionFromStoreP(powerMW float64) Action {
	switch {
	case math.Abs(powerMW) <= ActionEpsilonMW:
		return ActionIdle
	case powerMW < 0:
		return ActionCharging
	default:
		return ActionDischarging
	}
}
