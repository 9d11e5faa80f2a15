package valuation

import (
	"errors"
	"fmt"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
)

var (
	ErrInvalidAssumption = assumption.ErrInvalidAssumption
	ErrNumericOverflow   = assumption.ErrNumericOverflow
)

// IsNotComputable reports whether err is one of the engine's input failures.
// Sensitivity cells with such errors are left blank instead of failing the grid.
func IsNotComputable(err error) bool {
	return errors.Is(err, ErrInvalidAssumption) || errors.Is(err, ErrNumericOverflow)
}

// MinSpread is the smallest WACC - g denominator accepted by the perpetuity formula
const MinSpread = 1e-6

// TerminalState describes the first post-horizon year and its capitalized value
type TerminalState struct {
	Year             int     `json:"year"`              // Horizon + 1
	Growth           float64 `json:"growth"`            // Derived stable growth g*
	ReinvestmentRate float64 `json:"reinvestment_rate"` // g* / RONIC
	NOPAT            float64 `json:"nopat"`
	FCFF             float64 `json:"fcff"`
	Value            float64 `json:"value"`         // Filled by Discount
	PresentValue     float64 `json:"present_value"` // Filled by Discount
}

// BuildTerminal rolls the last explicit year forward one year at the derived terminal growth.
// Reinvestment is sized so new capital earns exactly RONIC:
//
//	NOPAT(H+1) = NOPAT(H) * (1 + g*)
//	FCFF(H+1)  = NOPAT(H+1) * (1 - g*/RONIC)
//
// A perpetuity cannot reinvest more than it earns, so g* > RONIC is rejected.
func BuildTerminal(proj []projection.YearProjection, a assumption.AssumptionSet) (TerminalState, error) {
	if len(proj) == 0 {
		return TerminalState{}, fmt.Errorf("%w: empty projection", ErrInvalidAssumption)
	}
	last := proj[len(proj)-1]

	g := a.TerminalGrowth()
	rr := a.TerminalReinvestmentRate()
	if rr > 1 {
		return TerminalState{}, fmt.Errorf("%w: terminal growth %v exceeds ronic %v (reinvestment rate %v > 1); raise ronic or the final capital ratio",
			ErrInvalidAssumption, g, a.RONIC, rr)
	}
	nopat := last.NOPAT * (1 + g)

	ts := TerminalState{
		Year:             last.Year + 1,
		Growth:           g,
		ReinvestmentRate: rr,
		NOPAT:            nopat,
		FCFF:             nopat * (1 - rr),
	}
	if err := projection.CheckFinite("terminal fcff", ts.FCFF); err != nil {
		return TerminalState{}, err
	}
	return ts, nil
}
