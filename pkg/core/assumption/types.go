// Package assumption implements the forecast AssumptionSet consumed by the DCF engine.
// An AssumptionSet is a plain value: it is built once per valuation run by a Provider,
// validated, and never mutated afterwards. Sensitivity sweeps derive new sets with With.
package assumption

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// SOURCE (Which producer materialized the set)
// =============================================================================

// Source records the producer that built an AssumptionSet
type Source string

const (
	SourceManual   Source = "MANUAL"
	SourceFile     Source = "FILE"
	SourceDefaults Source = "DEFAULTS"
	SourceOverride Source = "OVERRIDE"
)

// =============================================================================
// CAPITAL RATIOS (Revenue / Invested Capital per forecast phase)
// =============================================================================

// CapitalRatios holds the sales-to-capital ratio for each forecast phase.
// A ratio of 2.0 means each unit of new invested capital supports 2 units of new revenue.
type CapitalRatios struct {
	Y1to2  float64 `json:"y1_2" yaml:"y1_2" validate:"gt=0"`
	Y3to5  float64 `json:"y3_5" yaml:"y3_5" validate:"gt=0"`
	Y6to10 float64 `json:"y5_10" yaml:"y5_10" validate:"gt=0"`
}

// ForYear returns the ratio of the phase the forecast year belongs to.
func (c CapitalRatios) ForYear(year int) float64 {
	switch {
	case year <= 2:
		return c.Y1to2
	case year <= 5:
		return c.Y3to5
	default:
		return c.Y6to10
	}
}

// =============================================================================
// ASSUMPTION SET
// =============================================================================

// AssumptionSet holds every forecast driver of a single valuation run.
// All rates are fractions (0.10 = 10%).
type AssumptionSet struct {
	RevenueGrowthYear1 float64       `json:"revenue_growth_1" yaml:"revenue_growth_1"`
	RevenueGrowthY2Y5  float64       `json:"revenue_growth_2" yaml:"revenue_growth_2"`
	TargetEBITMargin   float64       `json:"ebit_margin" yaml:"ebit_margin" validate:"gte=0,lte=1"`
	ConvergenceYears   int           `json:"convergence" yaml:"convergence" validate:"gte=1"`
	CapitalRatios      CapitalRatios `json:"revenue_invested_capital_ratio" yaml:"revenue_invested_capital_ratio"`
	TaxRate            float64       `json:"tax_rate" yaml:"tax_rate" validate:"gte=0,lte=1"`
	WACC               float64       `json:"wacc" yaml:"wacc" validate:"gt=0"`
	RONIC              float64       `json:"ronic" yaml:"ronic" validate:"gte=0"`

	Source Source `json:"source,omitempty" yaml:"source,omitempty"`
}

// Field names one overridable driver of an AssumptionSet.
// The string values match the JSON keys so overrides can be read from flags and files.
type Field string

const (
	FieldRevenueGrowthYear1 Field = "revenue_growth_1"
	FieldRevenueGrowthY2Y5  Field = "revenue_growth_2"
	FieldTargetEBITMargin   Field = "ebit_margin"
	FieldConvergenceYears   Field = "convergence"
	FieldCapitalRatioY1to2  Field = "revenue_invested_capital_ratio_1"
	FieldCapitalRatioY3to5  Field = "revenue_invested_capital_ratio_2"
	FieldCapitalRatioY6to10 Field = "revenue_invested_capital_ratio_3"
	FieldTaxRate            Field = "tax_rate"
	FieldWACC               Field = "wacc"
	FieldRONIC              Field = "ronic"
)

// Fields lists every overridable field in display order.
var Fields = []Field{
	FieldRevenueGrowthYear1,
	FieldRevenueGrowthY2Y5,
	FieldTargetEBITMargin,
	FieldConvergenceYears,
	FieldCapitalRatioY1to2,
	FieldCapitalRatioY3to5,
	FieldCapitalRatioY6to10,
	FieldTaxRate,
	FieldWACC,
	FieldRONIC,
}

// ParseField resolves a field name, accepting the JSON key form.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown assumption field '%s'", name)
}

// Get returns the current value of a field.
func (a AssumptionSet) Get(f Field) (float64, error) {
	switch f {
	case FieldRevenueGrowthYear1:
		return a.RevenueGrowthYear1, nil
	case FieldRevenueGrowthY2Y5:
		return a.RevenueGrowthY2Y5, nil
	case FieldTargetEBITMargin:
		return a.TargetEBITMargin, nil
	case FieldConvergenceYears:
		return float64(a.ConvergenceYears), nil
	case FieldCapitalRatioY1to2:
		return a.CapitalRatios.Y1to2, nil
	case FieldCapitalRatioY3to5:
		return a.CapitalRatios.Y3to5, nil
	case FieldCapitalRatioY6to10:
		return a.CapitalRatios.Y6to10, nil
	case FieldTaxRate:
		return a.TaxRate, nil
	case FieldWACC:
		return a.WACC, nil
	case FieldRONIC:
		return a.RONIC, nil
	}
	return 0, fmt.Errorf("unknown assumption field '%s'", f)
}

// With returns a copy of the set with one field replaced. The receiver is untouched.
// ConvergenceYears only accepts whole numbers.
func (a AssumptionSet) With(f Field, v float64) (AssumptionSet, error) {
	out := a
	switch f {
	case FieldRevenueGrowthYear1:
		out.RevenueGrowthYear1 = v
	case FieldRevenueGrowthY2Y5:
		out.RevenueGrowthY2Y5 = v
	case FieldTargetEBITMargin:
		out.TargetEBITMargin = v
	case FieldConvergenceYears:
		if v != float64(int(v)) {
			return a, fmt.Errorf("%w: convergence must be a whole number of years, got %v", ErrInvalidAssumption, v)
		}
		out.ConvergenceYears = int(v)
	case FieldCapitalRatioY1to2:
		out.CapitalRatios.Y1to2 = v
	case FieldCapitalRatioY3to5:
		out.CapitalRatios.Y3to5 = v
	case FieldCapitalRatioY6to10:
		out.CapitalRatios.Y6to10 = v
	case FieldTaxRate:
		out.TaxRate = v
	case FieldWACC:
		out.WACC = v
	case FieldRONIC:
		out.RONIC = v
	default:
		return a, fmt.Errorf("unknown assumption field '%s'", f)
	}
	return out, nil
}

// ToJSON serializes the set
func (a AssumptionSet) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// FromJSON deserializes a set without validating it
func FromJSON(data []byte) (AssumptionSet, error) {
	var a AssumptionSet
	if err := json.Unmarshal(data, &a); err != nil {
		return AssumptionSet{}, err
	}
	return a, nil
}
