package scenario

import (
	"fmt"

	"hydrogen-bypass/internal/model"
)

// DemandShape shifts demand before and after a split index to create a mismatch
// between peak wind and peak demand. The zero value leaves demand unchanged.
//
// Example: {SplitIndex: 15, Before: -50, After: 100} lowers the first 15
// snapshots by 50 MW and raises the rest by 100 MW.
type DemandShape struct {
	SplitIndex int
	Before     float64
	After      float64
}

func (s DemandShape) IsZero() bool {
	return s.Before == 0 && s.After == 0
}

// Apply returns a shaped copy of demand. Shaping that would produce negative
// consumption is a configuration error.
func (s DemandShape) Apply(demand model.Series) (model.Series, error) {
	if s.IsZero() {
		return demand, nil
	}
	if s.SplitIndex < 0 || s.SplitIndex > len(demand) {
		return nil, fmt.Errorf("demand shape split index %d outside [0, %d]", s.SplitIndex, len(demand))
	}
	out := demand.Clone()
	for i := range out {
		if i < s.SplitIndex {
			out[i] += s.Before
		} else {
			out[i] += s.After
		}
		if out[i] < 0 {
			return nil, fmt.Errorf("demand shape makes snapshot %d negative (%g MW)", i, out[i])
		}
	}
	return out, nil
}
