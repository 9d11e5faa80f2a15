package projection

import (
	"fmt"
	"math"

	"valux/pkg/core/assumption"
)

// MaxMagnitude is the largest absolute amount treated as plausible
const MaxMagnitude = 1e18

// CheckFinite fails with ErrNumericOverflow when v is NaN, infinite or implausibly large.
func CheckFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxMagnitude {
		return fmt.Errorf("%w: %s=%v", assumption.ErrNumericOverflow, name, v)
	}
	return nil
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}
