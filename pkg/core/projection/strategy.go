// Package projection expands an AssumptionSet into year-by-year operating line items.
// Core rule: year n is derived only from year n-1 and the assumptions (no lookahead).
package projection

import (
	"fmt"
	"sort"
)

// =============================================================================
// FADE POLICY (Growth path from the Year 2-5 CAGR into terminal growth)
// =============================================================================

// FadeContext provides the data a fade policy needs for one fade-period year
type FadeContext struct {
	Year           int     // Target projection year (> FadeStart)
	FadeStart      int     // Last year of the Year 2-5 CAGR phase
	Horizon        int     // Final explicit year; growth must equal TerminalGrowth here
	StartGrowth    float64 // Growth rate in year FadeStart
	TerminalGrowth float64 // Derived stable growth rate
}

// FadePolicy decides revenue growth for years after the CAGR phase.
// Every policy must return TerminalGrowth in the horizon year.
type FadePolicy interface {
	// Name returns the policy identifier used in configuration
	Name() string

	// Growth returns the revenue growth rate for ctx.Year
	Growth(ctx FadeContext) float64
}

// LinearFade moves growth in equal steps from StartGrowth to TerminalGrowth.
// Formula: g(n) = g5 + (g* - g5) * (n - 5) / (H - 5)
type LinearFade struct{}

func (LinearFade) Name() string { return "linear" }

func (LinearFade) Growth(ctx FadeContext) float64 {
	span := ctx.Horizon - ctx.FadeStart
	if span <= 0 || ctx.Year >= ctx.Horizon {
		return ctx.TerminalGrowth
	}
	t := float64(ctx.Year-ctx.FadeStart) / float64(span)
	return lerp(ctx.StartGrowth, ctx.TerminalGrowth, t)
}

// StepFade holds the CAGR until the horizon year, then drops to terminal growth
type StepFade struct{}

func (StepFade) Name() string { return "step" }

func (StepFade) Growth(ctx FadeContext) float64 {
	if ctx.Year >= ctx.Horizon {
		return ctx.TerminalGrowth
	}
	return ctx.StartGrowth
}

var fadePolicies = map[string]func() FadePolicy{
	"linear": func() FadePolicy { return LinearFade{} },
	"step":   func() FadePolicy { return StepFade{} },
}

// NewFadePolicy resolves a policy by name. An empty name selects LinearFade.
func NewFadePolicy(name string) (FadePolicy, error) {
	if name == "" {
		return LinearFade{}, nil
	}
	ctor, ok := fadePolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown fade policy '%s' (available: %v)", name, FadePolicyNames())
	}
	return ctor(), nil
}

// FadePolicyNames lists the registered policies
func FadePolicyNames() []string {
	names := make([]string, 0, len(fadePolicies))
	for name := range fadePolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
