package valuation

import (
	"fmt"
	"math"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
)

// ValuationResult holds the valuation outputs and the full trace that produced them.
// A result is never modified after it is returned.
type ValuationResult struct {
	PVExplicit        float64 `json:"pv_explicit"` // Sum of PV(FCFF), years 1..H
	PVTerminal        float64 `json:"pv_terminal"`
	EnterpriseValue   float64 `json:"enterprise_value"`
	NetDebtAdjustment float64 `json:"net_debt_adjustment"` // -NetDebt
	EquityValue       float64 `json:"equity_value"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	PerShareValue     float64 `json:"per_share_value"`
	WACC              float64 `json:"wacc"`

	Projection      []projection.YearProjection `json:"projection"`
	DiscountFactors []float64                   `json:"discount_factors"`
	Terminal        TerminalState               `json:"terminal"`
}

// Discount values a projection with year-end discounting: PV(n) = FCFF(n) / (1+WACC)^n.
// The terminal value is capitalized at WACC - g* and discounted from the horizon year.
func Discount(proj []projection.YearProjection, terminal TerminalState, wacc, sharesOutstanding, netDebt float64) (*ValuationResult, error) {
	if len(proj) == 0 {
		return nil, fmt.Errorf("%w: empty projection", ErrInvalidAssumption)
	}
	if math.IsNaN(wacc) || math.IsInf(wacc, 0) || wacc <= 0 {
		return nil, fmt.Errorf("%w: wacc must be positive and finite, got %v", ErrInvalidAssumption, wacc)
	}
	if !(wacc > terminal.Growth) {
		return nil, fmt.Errorf("%w: wacc %v must exceed terminal growth %v", ErrInvalidAssumption, wacc, terminal.Growth)
	}
	if wacc-terminal.Growth < MinSpread {
		return nil, fmt.Errorf("%w: wacc - terminal growth = %v is too close to zero", ErrNumericOverflow, wacc-terminal.Growth)
	}
	if math.IsNaN(sharesOutstanding) || sharesOutstanding <= 0 {
		return nil, fmt.Errorf("%w: shares outstanding must be positive, got %v", ErrInvalidAssumption, sharesOutstanding)
	}
	if err := projection.CheckFinite("net debt", netDebt); err != nil {
		return nil, err
	}

	factors := make([]float64, len(proj))
	var pvFCF float64

	// Track cumulative discount factor
	cumDiscountFactor := 1.0
	for i, year := range proj {
		cumDiscountFactor /= (1.0 + wacc)
		factors[i] = cumDiscountFactor
		pvFCF += year.FCFF * cumDiscountFactor
	}

	// Gordon growth on the first post-horizon cash flow
	tv := terminal.FCFF / (wacc - terminal.Growth)
	pvTerminal := tv * cumDiscountFactor

	ev := pvFCF + pvTerminal
	eqVal := ev - netDebt
	perShare := eqVal / sharesOutstanding

	checks := []struct {
		name string
		v    float64
	}{
		{"terminal value", tv},
		{"enterprise value", ev},
		{"per share value", perShare},
	}
	for _, c := range checks {
		if err := projection.CheckFinite(c.name, c.v); err != nil {
			return nil, err
		}
	}

	term := terminal
	term.Value = tv
	term.PresentValue = pvTerminal

	years := make([]projection.YearProjection, len(proj))
	copy(years, proj)

	return &ValuationResult{
		PVExplicit:        pvFCF,
		PVTerminal:        pvTerminal,
		EnterpriseValue:   ev,
		NetDebtAdjustment: -netDebt,
		EquityValue:       eqVal,
		SharesOutstanding: sharesOutstanding,
		PerShareValue:     perShare,
		WACC:              wacc,
		Projection:        years,
		DiscountFactors:   factors,
		Terminal:          term,
	}, nil
}

// Options configures a Valuator
type Options struct {
	Horizon int               // Explicit years; 0 selects projection.DefaultHorizon
	Bounds  assumption.Bounds // Sanity windows on top of the hard domain checks; nil selects DefaultBounds
	Fade    projection.FadePolicy

	// Unbounded skips the sanity windows and keeps only the hard domain checks
	Unbounded bool
}

// Valuator runs the full pipeline: projection, terminal state, discounting.
// It is stateless after construction and safe for concurrent use.
type Valuator struct {
	horizon int
	bounds  assumption.Bounds
	engine  *projection.ProjectionEngine
}

// NewValuator creates a Valuator from options
func NewValuator(opts Options) *Valuator {
	horizon := opts.Horizon
	if horizon == 0 {
		horizon = projection.DefaultHorizon
	}
	bounds := opts.Bounds
	if bounds == nil {
		bounds = assumption.DefaultBounds()
	}
	if opts.Unbounded {
		bounds = nil
	}
	return &Valuator{
		horizon: horizon,
		bounds:  bounds,
		engine:  projection.NewProjectionEngine(opts.Fade),
	}
}

// Horizon returns the explicit forecast length in years
func (v *Valuator) Horizon() int { return v.horizon }

// Value projects, builds the terminal state and discounts.
func (v *Valuator) Value(base projection.HistoricalSnapshot, a assumption.AssumptionSet) (*ValuationResult, error) {
	if v.bounds != nil {
		if err := a.ValidateBounds(v.bounds); err != nil {
			return nil, err
		}
	}
	proj, err := v.engine.Build(base, a, v.horizon)
	if err != nil {
		return nil, err
	}
	terminal, err := BuildTerminal(proj, a)
	if err != nil {
		return nil, err
	}
	return Discount(proj, terminal, a.WACC, base.SharesOutstanding, base.NetDebt)
}

// Value runs a single valuation with the linear fade and the default sanity bounds.
func Value(base projection.HistoricalSnapshot, a assumption.AssumptionSet, horizonYears int) (*ValuationResult, error) {
	return NewValuator(Options{Horizon: horizonYears}).Value(base, a)
}
