package assumption

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidAssumption marks an input outside its defined domain.
	ErrInvalidAssumption = errors.New("invalid assumption")

	// ErrNumericOverflow marks an intermediate result that left the representable or plausible range.
	ErrNumericOverflow = errors.New("numeric overflow")
)

var validate = validator.New()

// Range is an inclusive [Min, Max] sanity window for one field.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the window.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds holds the plausible economic range of each field.
// Values outside are rejected rather than clamped.
type Bounds map[Field]Range

// DefaultBounds mirrors the ranges analysts are warned about when reviewing parameters.
func DefaultBounds() Bounds {
	return Bounds{
		FieldRevenueGrowthYear1: {Min: -0.5, Max: 1.0},
		FieldRevenueGrowthY2Y5:  {Min: -0.2, Max: 0.5},
		FieldTargetEBITMargin:   {Min: 0, Max: 0.6},
		FieldConvergenceYears:   {Min: 1, Max: 10},
		FieldCapitalRatioY1to2:  {Min: 0, Max: 10},
		FieldCapitalRatioY3to5:  {Min: 0, Max: 10},
		FieldCapitalRatioY6to10: {Min: 0, Max: 10},
		FieldTaxRate:            {Min: 0, Max: 0.5},
		FieldWACC:               {Min: 0.03, Max: 0.25},
		FieldRONIC:              {Min: 0, Max: 0.5},
	}
}

// Validate checks the hard domain of every field: finite values, tax rate and margin in
// [0,1], WACC > 0, RONIC >= 0, capital ratios > 0 and ConvergenceYears >= 1.
func (a AssumptionSet) Validate() error {
	for _, f := range Fields {
		v, _ := a.Get(f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidAssumption, f, v)
		}
	}

	if err := validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s must satisfy %s=%s, got %v",
				ErrInvalidAssumption, strings.ToLower(fe.Namespace()), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidAssumption, err)
	}
	return nil
}

// ValidateBounds runs Validate and then checks each field against its sanity window.
// Fields missing from b are only subject to the hard domain checks.
func (a AssumptionSet) ValidateBounds(b Bounds) error {
	if err := a.Validate(); err != nil {
		return err
	}
	for _, f := range Fields {
		r, ok := b[f]
		if !ok {
			continue
		}
		v, _ := a.Get(f)
		if !r.Contains(v) {
			return fmt.Errorf("%w: %s=%v outside plausible range [%v, %v]", ErrInvalidAssumption, f, v, r.Min, r.Max)
		}
	}
	return nil
}
