// Package provider implements the interchangeable producers of an AssumptionSet.
// Manual entry, assumption files, batch defaults and accept-or-override review all
// yield the same value, so the valuation path never depends on how it was produced.
package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
	"valux/pkg/core/utils"
	"valux/pkg/core/valuation"
)

// Provider materializes a validated AssumptionSet for a company snapshot.
type Provider interface {
	Assumptions(ctx context.Context, snapshot projection.HistoricalSnapshot) (assumption.AssumptionSet, error)
}

// Ensure interface compliance
var (
	_ Provider = (*StaticProvider)(nil)
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*DefaultsProvider)(nil)
	_ Provider = (*OverrideProvider)(nil)
)

func finish(a assumption.AssumptionSet, src assumption.Source) (assumption.AssumptionSet, error) {
	if a.Source == "" {
		a.Source = src
	}
	if err := a.Validate(); err != nil {
		return assumption.AssumptionSet{}, err
	}
	return a, nil
}

// =============================================================================
// STATIC (Manual / programmatic entry)
// =============================================================================

// StaticProvider returns a fixed set
type StaticProvider struct {
	Set assumption.AssumptionSet
}

func (p *StaticProvider) Assumptions(ctx context.Context, _ projection.HistoricalSnapshot) (assumption.AssumptionSet, error) {
	return finish(p.Set, assumption.SourceManual)
}

// =============================================================================
// FILE (YAML, JSON or HJSON)
// =============================================================================

// FileProvider reads a set from disk. .yaml/.yml files are parsed as YAML; anything else
// goes through lenient JSON decoding (strict, HJSON, then repaired).
type FileProvider struct {
	Path string
}

func (p *FileProvider) Assumptions(ctx context.Context, _ projection.HistoricalSnapshot) (assumption.AssumptionSet, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return assumption.AssumptionSet{}, fmt.Errorf("read assumptions %s: %w", p.Path, err)
	}
	a, err := ParseAssumptions(p.Path, data)
	if err != nil {
		return assumption.AssumptionSet{}, err
	}
	return finish(a, assumption.SourceFile)
}

// ParseAssumptions decodes a set using the format implied by the file name
func ParseAssumptions(name string, data []byte) (assumption.AssumptionSet, error) {
	var a assumption.AssumptionSet
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.UnmarshalStrict(data, &a); err != nil {
			return a, fmt.Errorf("parse assumptions %s: %w", name, err)
		}
	default:
		if err := utils.DecodeLenient(data, &a); err != nil {
			return a, fmt.Errorf("parse assumptions %s: %w", name, err)
		}
	}
	return a, nil
}

// =============================================================================
// DEFAULTS (Batch auto mode)
// =============================================================================

// MarketProfile carries the market inputs needed to default the discount rates
type MarketProfile struct {
	Country string               `json:"country" yaml:"country"`
	WACC    *valuation.WACCInput `json:"wacc,omitempty" yaml:"wacc,omitempty"`

	// ExcessReturns lifts RONIC above terminal WACC by TerminalRONICPremium
	ExcessReturns bool `json:"excess_returns" yaml:"excess_returns"`
}

// DefaultsProvider derives a set from the snapshot without human input:
// current margin held as target, current sales-to-capital in every phase,
// CAPM WACC (terminal WACC when no market inputs) and RONIC at terminal WACC.
type DefaultsProvider struct {
	Market           MarketProfile `json:"market" yaml:"market"`
	GrowthYear1      float64       `json:"revenue_growth_1" yaml:"revenue_growth_1"`
	GrowthY2Y5       float64       `json:"revenue_growth_2" yaml:"revenue_growth_2"`
	ConvergenceYears int           `json:"convergence,omitempty" yaml:"convergence,omitempty"` // 0 selects 5
}

func (p *DefaultsProvider) Assumptions(ctx context.Context, s projection.HistoricalSnapshot) (assumption.AssumptionSet, error) {
	margin := s.CurrentMargin()
	if margin < 0 || margin > 1 {
		return assumption.AssumptionSet{}, fmt.Errorf("%w: current margin %v cannot be held as a target", assumption.ErrInvalidAssumption, margin)
	}
	if s.InvestedCapital <= 0 {
		return assumption.AssumptionSet{}, fmt.Errorf("%w: invested capital must be positive to derive capital ratios, got %v", assumption.ErrInvalidAssumption, s.InvestedCapital)
	}
	salesToCapital := s.Revenue / s.InvestedCapital

	tax := s.TaxRate
	if tax == 0 {
		tax = valuation.MarginalTaxRate
	}

	terminalWACC := valuation.TerminalWACC(p.Market.Country)
	wacc := terminalWACC
	if p.Market.WACC != nil {
		res, err := valuation.CalculateWACC(*p.Market.WACC)
		if err != nil {
			return assumption.AssumptionSet{}, err
		}
		wacc = res.WACC
	}

	ronic := terminalWACC
	if p.Market.ExcessReturns {
		ronic += valuation.TerminalRONICPremium
	}

	convergence := p.ConvergenceYears
	if convergence == 0 {
		convergence = 5
	}

	return finish(assumption.AssumptionSet{
		RevenueGrowthYear1: p.GrowthYear1,
		RevenueGrowthY2Y5:  p.GrowthY2Y5,
		TargetEBITMargin:   margin,
		ConvergenceYears:   convergence,
		CapitalRatios: assumption.CapitalRatios{
			Y1to2:  salesToCapital,
			Y3to5:  salesToCapital,
			Y6to10: salesToCapital,
		},
		TaxRate: tax,
		WACC:    wacc,
		RONIC:   ronic,
	}, assumption.SourceDefaults)
}

// =============================================================================
// OVERRIDE (Accept or override review)
// =============================================================================

// OverrideProvider accepts every value of Base except the overridden fields
type OverrideProvider struct {
	Base      Provider
	Overrides map[assumption.Field]float64
}

func (p *OverrideProvider) Assumptions(ctx context.Context, s projection.HistoricalSnapshot) (assumption.AssumptionSet, error) {
	a, err := p.Base.Assumptions(ctx, s)
	if err != nil {
		return assumption.AssumptionSet{}, err
	}
	if len(p.Overrides) == 0 {
		return a, nil
	}

	// Apply in a fixed order so error messages are stable
	fields := make([]string, 0, len(p.Overrides))
	for f := range p.Overrides {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	for _, name := range fields {
		f := assumption.Field(name)
		if a, err = a.With(f, p.Overrides[f]); err != nil {
			return assumption.AssumptionSet{}, err
		}
	}
	a.Source = assumption.SourceOverride
	return finish(a, "")
}

// WithOverrides wraps base when there is anything to override
func WithOverrides(base Provider, overrides map[assumption.Field]float64) Provider {
	if len(overrides) == 0 {
		return base
	}
	return &OverrideProvider{Base: base, Overrides: overrides}
}

// ParseOverrides reads "field=value" pairs such as "wacc=0.085"
func ParseOverrides(pairs []string) (map[assumption.Field]float64, error) {
	out := make(map[assumption.Field]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("override '%s' must look like field=value", pair)
		}
		f, err := assumption.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", f, err)
		}
		out[f] = v
	}
	return out, nil
}
