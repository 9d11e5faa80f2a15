package valuation

import (
	"errors"
	"math"
	"testing"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
)

func exampleSnapshot() projection.HistoricalSnapshot {
	return projection.HistoricalSnapshot{
		Ticker:            "ACME",
		Revenue:           100,
		EBITMargin:        0.20,
		TaxRate:           0.25,
		InvestedCapital:   200,
		SharesOutstanding: 50,
		NetDebt:           20,
	}
}

func exampleAssumptions() assumption.AssumptionSet {
	return assumption.AssumptionSet{
		RevenueGrowthYear1: 0.10,
		RevenueGrowthY2Y5:  0.08,
		TargetEBITMargin:   0.25,
		ConvergenceYears:   5,
		CapitalRatios:      assumption.CapitalRatios{Y1to2: 1.5, Y3to5: 1.8, Y6to10: 2.0},
		TaxRate:            0.25,
		WACC:               0.09,
		RONIC:              0.09,
	}
}

func TestValue_EndToEnd(t *testing.T) {
	res, err := Value(exampleSnapshot(), exampleAssumptions(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.IsNaN(res.PerShareValue) || res.PerShareValue <= 0 {
		t.Fatalf("expected finite positive per-share value, got %v", res.PerShareValue)
	}
	// Hand-computed reference: EV ~ 300.95, per share ~ 5.619
	if math.Abs(res.PerShareValue-5.619034817) > 1e-6 {
		t.Errorf("expected per share ~5.6190, got %v", res.PerShareValue)
	}
	if math.Abs(res.Projection[0].Revenue-110) > 1e-9 || math.Abs(res.Projection[0].EBIT-110*0.21) > 1e-9 {
		t.Errorf("unexpected year 1: %+v", res.Projection[0])
	}

	// Bridge identities
	if math.Abs(res.EnterpriseValue-(res.PVExplicit+res.PVTerminal)) > 1e-9 {
		t.Errorf("EV must equal PV explicit + PV terminal")
	}
	if math.Abs(res.EquityValue-(res.EnterpriseValue-20)) > 1e-9 {
		t.Errorf("equity must equal EV - net debt")
	}
	if res.NetDebtAdjustment != -20 {
		t.Errorf("expected net debt adjustment -20, got %v", res.NetDebtAdjustment)
	}

	// Terminal state
	if math.Abs(res.Terminal.Growth-0.0192) > 1e-12 {
		t.Errorf("expected g* 0.0192, got %v", res.Terminal.Growth)
	}
	if res.Terminal.Year != 11 {
		t.Errorf("expected terminal year 11, got %d", res.Terminal.Year)
	}
	last := res.Projection[9]
	if math.Abs(res.Terminal.NOPAT-last.NOPAT*1.0192) > 1e-9 {
		t.Errorf("terminal NOPAT must roll forward at g*")
	}
	wantDF := math.Pow(1.09, -10)
	if math.Abs(res.DiscountFactors[9]-wantDF) > 1e-12 {
		t.Errorf("expected DF10 %v, got %v", wantDF, res.DiscountFactors[9])
	}
	if math.Abs(res.PVTerminal-res.Terminal.Value*wantDF) > 1e-9 {
		t.Errorf("terminal value must be discounted from the horizon year")
	}
}

func TestValue_MonotonicInYearOneGrowth(t *testing.T) {
	prev := math.Inf(-1)
	for _, g := range []float64{0.0, 0.05, 0.10, 0.15, 0.20} {
		a := exampleAssumptions()
		a.RevenueGrowthYear1 = g
		res, err := Value(exampleSnapshot(), a, 10)
		if err != nil {
			t.Fatalf("g1=%v: %v", g, err)
		}
		if res.PerShareValue <= prev {
			t.Errorf("g1=%v: per share %v did not increase from %v", g, res.PerShareValue, prev)
		}
		prev = res.PerShareValue
	}
}

func TestValue_MonotonicInWACC(t *testing.T) {
	prev := math.Inf(1)
	for _, w := range []float64{0.06, 0.08, 0.09, 0.10, 0.12} {
		a := exampleAssumptions()
		a.WACC = w
		res, err := Value(exampleSnapshot(), a, 10)
		if err != nil {
			t.Fatalf("wacc=%v: %v", w, err)
		}
		if res.PerShareValue >= prev {
			t.Errorf("wacc=%v: per share %v did not decrease from %v", w, res.PerShareValue, prev)
		}
		prev = res.PerShareValue
	}
}

// unbounded reaches the terminal checks with WACC values below the sanity window
var unbounded = NewValuator(Options{Unbounded: true})

func TestValue_WACCNotAboveTerminalGrowth(t *testing.T) {
	a := exampleAssumptions()
	a.WACC = a.TerminalGrowth()
	_, err := unbounded.Value(exampleSnapshot(), a)
	if !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("WACC = g*: expected ErrInvalidAssumption, got %v", err)
	}

	a.WACC = 0.01
	_, err = unbounded.Value(exampleSnapshot(), a)
	if !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("WACC < g*: expected ErrInvalidAssumption, got %v", err)
	}
}

func TestValue_TinySpreadOverflows(t *testing.T) {
	a := exampleAssumptions()
	a.WACC = a.TerminalGrowth() + 1e-9
	_, err := unbounded.Value(exampleSnapshot(), a)
	if !errors.Is(err, ErrNumericOverflow) {
		t.Errorf("expected ErrNumericOverflow, got %v", err)
	}
}

func TestValue_TerminalReinvestmentAboveEarnings(t *testing.T) {
	// Every field sits inside DefaultBounds, but g* = 0.05 * 0.1125 / (1.0 * 0.10 * 0.75) = 0.075
	// exceeds RONIC, so the perpetuity would reinvest 150% of NOPAT.
	a := exampleAssumptions()
	a.RONIC = 0.05
	a.CapitalRatios.Y6to10 = 1.0
	a.TargetEBITMargin = 0.10
	a.RevenueGrowthY2Y5 = 0.1125
	if rr := a.TerminalReinvestmentRate(); math.Abs(rr-1.5) > 1e-9 {
		t.Fatalf("expected reinvestment rate 1.5, got %v", rr)
	}

	v := NewValuator(Options{Bounds: assumption.DefaultBounds()})
	res, err := v.Value(exampleSnapshot(), a)
	if !errors.Is(err, ErrInvalidAssumption) {
		t.Fatalf("expected ErrInvalidAssumption, got %v (result %+v)", err, res)
	}

	// Reinvesting most, but not all, of NOPAT is still a valid perpetuity
	a.RevenueGrowthY2Y5 = 0.07
	res, err = v.Value(exampleSnapshot(), a)
	if err != nil {
		t.Fatalf("reinvestment rate below 1: unexpected error: %v", err)
	}
	if res.Terminal.FCFF <= 0 || res.Terminal.FCFF >= res.Terminal.NOPAT {
		t.Errorf("expected 0 < terminal FCFF < NOPAT, got %+v", res.Terminal)
	}
}

func TestValue_DefaultBounds(t *testing.T) {
	a := exampleAssumptions()
	a.WACC = 3.0
	if _, err := Value(exampleSnapshot(), a, 10); !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("WACC 300%%: expected ErrInvalidAssumption, got %v", err)
	}
	if _, err := NewValuator(Options{}).Value(exampleSnapshot(), a); !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("nil bounds should select the defaults, got %v", err)
	}
	if _, err := unbounded.Value(exampleSnapshot(), a); err != nil {
		t.Errorf("unbounded valuator should accept WACC 300%%, got %v", err)
	}
}

func TestValue_SharesMustBeFinite(t *testing.T) {
	s := exampleSnapshot()
	s.SharesOutstanding = math.Inf(1)
	_, err := Value(s, exampleAssumptions(), 10)
	if !errors.Is(err, ErrNumericOverflow) {
		t.Errorf("expected ErrNumericOverflow, got %v", err)
	}
}

func TestValue_SharesMustBePositive(t *testing.T) {
	for _, shares := range []float64{0, -5} {
		s := exampleSnapshot()
		s.SharesOutstanding = shares
		_, err := Value(s, exampleAssumptions(), 10)
		if !errors.Is(err, ErrInvalidAssumption) {
			t.Errorf("shares=%v: expected ErrInvalidAssumption, got %v", shares, err)
		}
	}
}

func TestValue_ZeroRONICMeansNoGrowth(t *testing.T) {
	a := exampleAssumptions()
	a.RONIC = 0
	res, err := Value(exampleSnapshot(), a, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Terminal.Growth != 0 || res.Terminal.ReinvestmentRate != 0 {
		t.Errorf("expected zero terminal growth and reinvestment, got %+v", res.Terminal)
	}
	if math.Abs(res.Terminal.FCFF-res.Projection[9].NOPAT) > 1e-9 {
		t.Errorf("terminal FCFF should equal NOPAT when nothing is reinvested")
	}
}

func TestValuator_Bounds(t *testing.T) {
	v := NewValuator(Options{Bounds: assumption.DefaultBounds()})
	if v.Horizon() != projection.DefaultHorizon {
		t.Errorf("expected default horizon, got %d", v.Horizon())
	}
	a := exampleAssumptions()
	a.TargetEBITMargin = 0.8
	if _, err := v.Value(exampleSnapshot(), a); !errors.Is(err, ErrInvalidAssumption) {
		t.Errorf("expected margin outside bounds to be rejected, got %v", err)
	}
}

func TestValuator_StepFadeValuesHigher(t *testing.T) {
	linear, err := NewValuator(Options{Fade: projection.LinearFade{}}).Value(exampleSnapshot(), exampleAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	step, err := NewValuator(Options{Fade: projection.StepFade{}}).Value(exampleSnapshot(), exampleAssumptions())
	if err != nil {
		t.Fatal(err)
	}
	// Holding the CAGR longer grows revenue more before the terminal year
	if step.Projection[8].Revenue <= linear.Projection[8].Revenue {
		t.Errorf("step fade should project more year 9 revenue")
	}
}

func TestIsNotComputable(t *testing.T) {
	if IsNotComputable(errors.New("boom")) {
		t.Error("plain errors are not engine input failures")
	}
	a := exampleAssumptions()
	a.CapitalRatios.Y1to2 = 0
	_, err := Value(exampleSnapshot(), a, 10)
	if !IsNotComputable(err) {
		t.Errorf("expected not computable, got %v", err)
	}
}
