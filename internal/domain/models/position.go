package models

import "time"

// Side is the direction of the open position.
type Side int

const (
	SideFlat Side = iota
	SideLong
	SideShort
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "flat"
	}
}

// PositionState is the strategy's carry between bars.
// ExtremeSinceEntry is the highest price seen while long and the lowest while short.
type PositionState struct {
	Side              Side
	EntryPrice        float64
	EntryTime         time.Time
	ExtremeSinceEntry float64
}

// FlatPosition returns the initial/reset state.
func FlatPosition() PositionState {
	return PositionState{
		Side:              SideFlat,
		EntryPrice:        Missing,
		ExtremeSinceEntry: Missing,
	}
}
