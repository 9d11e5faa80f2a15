package assumption

import (
	"errors"
	"math"
	"testing"
)

func baseSet() AssumptionSet {
	return AssumptionSet{
		RevenueGrowthYear1: 0.10,
		RevenueGrowthY2Y5:  0.08,
		TargetEBITMargin:   0.25,
		ConvergenceYears:   5,
		CapitalRatios:      CapitalRatios{Y1to2: 1.5, Y3to5: 1.8, Y6to10: 2.0},
		TaxRate:            0.25,
		WACC:               0.09,
		RONIC:              0.09,
	}
}

func TestValidate_Base(t *testing.T) {
	if err := baseSet().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_DomainViolations(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value float64
	}{
		{"zero ratio", FieldCapitalRatioY3to5, 0},
		{"negative ratio", FieldCapitalRatioY1to2, -1},
		{"tax above one", FieldTaxRate, 1.2},
		{"negative margin", FieldTargetEBITMargin, -0.01},
		{"zero wacc", FieldWACC, 0},
		{"negative ronic", FieldRONIC, -0.01},
		{"zero convergence", FieldConvergenceYears, 0},
		{"nan growth", FieldRevenueGrowthYear1, math.NaN()},
		{"inf growth", FieldRevenueGrowthY2Y5, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := baseSet().With(tt.field, tt.value)
			if err != nil {
				t.Fatalf("With: %v", err)
			}
			err = a.Validate()
			if !errors.Is(err, ErrInvalidAssumption) {
				t.Errorf("expected ErrInvalidAssumption, got %v", err)
			}
		})
	}
}

func TestWith_LeavesReceiverUntouched(t *testing.T) {
	a := baseSet()
	b, err := a.With(FieldWACC, 0.12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.WACC != 0.09 {
		t.Errorf("receiver mutated: WACC %v", a.WACC)
	}
	if b.WACC != 0.12 {
		t.Errorf("expected WACC 0.12, got %v", b.WACC)
	}
}

func TestWith_ConvergenceWholeYears(t *testing.T) {
	if _, err := baseSet().With(FieldConvergenceYears, 3.5); !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("expected ErrInvalidAssumption for fractional convergence, got %v", err)
	}
	a, err := baseSet().With(FieldConvergenceYears, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ConvergenceYears != 3 {
		t.Errorf("expected 3, got %d", a.ConvergenceYears)
	}
}

func TestGetWith_EveryField(t *testing.T) {
	for _, f := range Fields {
		a, err := baseSet().With(f, 7)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		got, err := a.Get(f)
		if err != nil || got != 7 {
			t.Errorf("%s: expected 7, got %v (%v)", f, got, err)
		}
	}
	if _, err := baseSet().With("beta", 1); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("ebit_margin")
	if err != nil || f != FieldTargetEBITMargin {
		t.Errorf("expected ebit_margin, got %q (%v)", f, err)
	}
	if _, err := ParseField("margin"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestValidateBounds(t *testing.T) {
	b := DefaultBounds()
	if err := baseSet().ValidateBounds(b); err != nil {
		t.Fatalf("base set should be within default bounds: %v", err)
	}

	a, _ := baseSet().With(FieldWACC, 0.40)
	if err := a.ValidateBounds(b); !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("expected ErrInvalidAssumption for WACC 40%%, got %v", err)
	}

	// Missing fields only get the hard checks
	if err := a.ValidateBounds(Bounds{}); err != nil {
		t.Errorf("empty bounds should accept: %v", err)
	}
}

func TestTerminalGrowth(t *testing.T) {
	a := baseSet()

	// FadeROIC = 2.0 * 0.25 * 0.75 = 0.375; g* = 0.09 * 0.08 / 0.375
	if math.Abs(a.FadeROIC()-0.375) > 1e-12 {
		t.Errorf("expected fade ROIC 0.375, got %v", a.FadeROIC())
	}
	if math.Abs(a.TerminalGrowth()-0.0192) > 1e-12 {
		t.Errorf("expected g* 0.0192, got %v", a.TerminalGrowth())
	}
	if math.Abs(a.TerminalReinvestmentRate()-0.0192/0.09) > 1e-12 {
		t.Errorf("unexpected reinvestment rate %v", a.TerminalReinvestmentRate())
	}

	a.RONIC = 0
	if a.TerminalGrowth() != 0 || a.TerminalReinvestmentRate() != 0 {
		t.Errorf("RONIC 0 should give zero growth and reinvestment")
	}
}

func TestAssumptionSet_ToFromJSON(t *testing.T) {
	a := baseSet()
	a.Source = SourceFile
	data, err := a.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	b, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if b != a {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", b, a)
	}
}
