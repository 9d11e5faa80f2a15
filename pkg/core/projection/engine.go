package projection

import (
	"fmt"

	"valux/pkg/core/assumption"
)

const (
	// DefaultHorizon is the explicit forecast length in years
	DefaultHorizon = 10

	// MaxHorizon caps the explicit forecast length
	MaxHorizon = 30

	// FadeStart is the last year of the Year 2-5 CAGR phase
	FadeStart = 5
)

// ProjectionEngine builds explicit forecasts with a pluggable fade policy.
// It holds no mutable state and is safe for concurrent use.
type ProjectionEngine struct {
	Fade FadePolicy
}

// NewProjectionEngine creates an engine. A nil policy selects LinearFade.
func NewProjectionEngine(fade FadePolicy) *ProjectionEngine {
	if fade == nil {
		fade = LinearFade{}
	}
	return &ProjectionEngine{Fade: fade}
}

// BuildProjection projects horizonYears years with the default linear fade,
// rejecting assumptions outside assumption.DefaultBounds.
func BuildProjection(base HistoricalSnapshot, assumptions assumption.AssumptionSet, horizonYears int) ([]YearProjection, error) {
	if err := assumptions.ValidateBounds(assumption.DefaultBounds()); err != nil {
		return nil, err
	}
	return NewProjectionEngine(nil).Build(base, assumptions, horizonYears)
}

// Build returns one YearProjection per forecast year, ordered by year.
// Only the hard domain checks run here; sanity bounds belong to the caller.
func (e *ProjectionEngine) Build(base HistoricalSnapshot, a assumption.AssumptionSet, horizonYears int) ([]YearProjection, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if horizonYears < 1 || horizonYears > MaxHorizon {
		return nil, fmt.Errorf("%w: horizon must be within [1, %d] years, got %d", assumption.ErrInvalidAssumption, MaxHorizon, horizonYears)
	}
	if a.ConvergenceYears > horizonYears {
		return nil, fmt.Errorf("%w: convergence (%d years) exceeds the %d year horizon", assumption.ErrInvalidAssumption, a.ConvergenceYears, horizonYears)
	}
	if err := validateSnapshot(base); err != nil {
		return nil, err
	}

	startMargin := base.CurrentMargin()
	terminalGrowth := a.TerminalGrowth()
	if err := CheckFinite("terminal_growth", terminalGrowth); err != nil {
		return nil, err
	}

	prev := YearProjection{
		Year:            0,
		Revenue:         base.Revenue,
		EBITMargin:      startMargin,
		InvestedCapital: base.InvestedCapital,
	}
	years := make([]YearProjection, 0, horizonYears)

	for n := 1; n <= horizonYears; n++ {
		growth := e.growthFor(n, horizonYears, a, terminalGrowth)

		revenue := prev.Revenue * (1 + growth)
		if revenue <= 0 {
			return nil, fmt.Errorf("%w: year %d revenue would fall to %v at growth %v", assumption.ErrInvalidAssumption, n, revenue, growth)
		}

		// Linear convergence; exact assignment from year C so the target is hit bit-for-bit.
		margin := a.TargetEBITMargin
		if n < a.ConvergenceYears {
			margin = lerp(startMargin, a.TargetEBITMargin, float64(n)/float64(a.ConvergenceYears))
		}

		ebit := revenue * margin
		nopat := ebit * (1 - a.TaxRate)

		ratio := a.CapitalRatios.ForYear(n)
		if ratio <= 0 {
			return nil, fmt.Errorf("%w: year %d revenue/invested capital ratio must be positive, got %v", assumption.ErrInvalidAssumption, n, ratio)
		}
		reinvestment := (revenue - prev.Revenue) / ratio

		cur := YearProjection{
			Year:            n,
			Growth:          growth,
			Revenue:         revenue,
			EBITMargin:      margin,
			EBIT:            ebit,
			NOPAT:           nopat,
			Reinvestment:    reinvestment,
			FCFF:            nopat - reinvestment,
			InvestedCapital: prev.InvestedCapital + reinvestment,
		}
		if err := checkYear(cur); err != nil {
			return nil, err
		}

		years = append(years, cur)
		prev = cur
	}

	return years, nil
}

func (e *ProjectionEngine) growthFor(year, horizon int, a assumption.AssumptionSet, terminalGrowth float64) float64 {
	switch {
	case year == 1:
		return a.RevenueGrowthYear1
	case year <= FadeStart:
		return a.RevenueGrowthY2Y5
	default:
		return e.Fade.Growth(FadeContext{
			Year:           year,
			FadeStart:      FadeStart,
			Horizon:        horizon,
			StartGrowth:    a.RevenueGrowthY2Y5,
			TerminalGrowth: terminalGrowth,
		})
	}
}

func validateSnapshot(s HistoricalSnapshot) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"revenue", s.Revenue},
		{"ebit", s.EBIT},
		{"ebit_margin", s.EBITMargin},
		{"invested_capital", s.InvestedCapital},
		{"net_debt", s.NetDebt},
		{"shares_outstanding", s.SharesOutstanding},
	}
	for _, f := range fields {
		if err := CheckFinite("snapshot "+f.name, f.v); err != nil {
			return err
		}
	}
	if s.Revenue <= 0 {
		return fmt.Errorf("%w: base year revenue must be positive, got %v", assumption.ErrInvalidAssumption, s.Revenue)
	}
	return nil
}

func checkYear(y YearProjection) error {
	if err := CheckFinite(fmt.Sprintf("year %d revenue", y.Year), y.Revenue); err != nil {
		return err
	}
	if err := CheckFinite(fmt.Sprintf("year %d fcff", y.Year), y.FCFF); err != nil {
		return err
	}
	return CheckFinite(fmt.Sprintf("year %d invested_capital", y.Year), y.InvestedCapital)
}
