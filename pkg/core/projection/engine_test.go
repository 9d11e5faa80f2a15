package projection_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
)

const eps = 1e-9

func snapshot() projection.HistoricalSnapshot {
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

func assumptions() assumption.AssumptionSet {
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

func TestBuildProjection_YearOne(t *testing.T) {
	years, err := projection.BuildProjection(snapshot(), assumptions(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(years) != 10 {
		t.Fatalf("expected 10 years, got %d", len(years))
	}

	y1 := years[0]
	if y1.Year != 1 {
		t.Errorf("expected year 1, got %d", y1.Year)
	}
	if math.Abs(y1.Revenue-110) > eps {
		t.Errorf("expected revenue 110, got %v", y1.Revenue)
	}
	// Margin moves one fifth of the way from 20% to 25%
	if math.Abs(y1.EBITMargin-0.21) > eps {
		t.Errorf("expected margin 0.21, got %v", y1.EBITMargin)
	}
	if math.Abs(y1.EBIT-110*0.21) > eps {
		t.Errorf("expected EBIT 23.1, got %v", y1.EBIT)
	}
	if math.Abs(y1.NOPAT-110*0.21*0.75) > eps {
		t.Errorf("expected NOPAT 17.325, got %v", y1.NOPAT)
	}
	// Reinvestment = 10 / 1.5
	if math.Abs(y1.Reinvestment-10/1.5) > eps {
		t.Errorf("expected reinvestment 6.667, got %v", y1.Reinvestment)
	}
	if math.Abs(y1.FCFF-(y1.NOPAT-y1.Reinvestment)) > eps {
		t.Errorf("FCFF must equal NOPAT - reinvestment")
	}
	if math.Abs(y1.InvestedCapital-(200+10/1.5)) > eps {
		t.Errorf("unexpected invested capital %v", y1.InvestedCapital)
	}
}

func TestBuildProjection_GrowthPhases(t *testing.T) {
	a := assumptions()
	years, err := projection.BuildProjection(snapshot(), a, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, y := range years[1:5] {
		if y.Growth != a.RevenueGrowthY2Y5 {
			t.Errorf("year %d: expected CAGR %v, got %v", y.Year, a.RevenueGrowthY2Y5, y.Growth)
		}
	}

	gStar := a.TerminalGrowth()
	if years[9].Growth != gStar {
		t.Errorf("horizon year growth must equal g* %v, got %v", gStar, years[9].Growth)
	}
	// Linear fade: year 6 is one fifth of the way to g*
	want6 := 0.08 + (gStar-0.08)*0.2
	if math.Abs(years[5].Growth-want6) > eps {
		t.Errorf("year 6: expected %v, got %v", want6, years[5].Growth)
	}
	for i := 5; i < 10; i++ {
		if years[i].Growth > years[i-1].Growth {
			t.Errorf("year %d: fade should not increase growth", years[i].Year)
		}
	}
}

func TestBuildProjection_MarginConvergence(t *testing.T) {
	for _, c := range []int{1, 3, 5, 10} {
		a := assumptions()
		a.ConvergenceYears = c
		years, err := projection.BuildProjection(snapshot(), a, 10)
		if err != nil {
			t.Fatalf("C=%d: unexpected error: %v", c, err)
		}
		for _, y := range years {
			if y.Year >= c && y.EBITMargin != a.TargetEBITMargin {
				t.Errorf("C=%d year %d: expected exact target margin, got %v", c, y.Year, y.EBITMargin)
			}
			if y.Year < c && y.EBITMargin == a.TargetEBITMargin {
				t.Errorf("C=%d year %d: margin reached target early", c, y.Year)
			}
		}
	}
}

func TestBuildProjection_ReinvestmentRatiosByPhase(t *testing.T) {
	years, err := projection.BuildProjection(snapshot(), assumptions(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prev := 100.0
	for _, y := range years {
		ratio := 2.0
		switch {
		case y.Year <= 2:
			ratio = 1.5
		case y.Year <= 5:
			ratio = 1.8
		}
		want := (y.Revenue - prev) / ratio
		if math.Abs(y.Reinvestment-want) > eps {
			t.Errorf("year %d: expected reinvestment %v, got %v", y.Year, want, y.Reinvestment)
		}
		prev = y.Revenue
	}
}

func TestBuildProjection_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*projection.HistoricalSnapshot, *assumption.AssumptionSet)
		horizon int
		want    error
	}{
		{"zero capital ratio", func(_ *projection.HistoricalSnapshot, a *assumption.AssumptionSet) { a.CapitalRatios.Y6to10 = 0 }, 10, assumption.ErrInvalidAssumption},
		{"revenue collapses", func(_ *projection.HistoricalSnapshot, a *assumption.AssumptionSet) { a.RevenueGrowthYear1 = -1 }, 10, assumption.ErrInvalidAssumption},
		{"zero base revenue", func(s *projection.HistoricalSnapshot, _ *assumption.AssumptionSet) { s.Revenue = 0 }, 10, assumption.ErrInvalidAssumption},
		{"convergence beyond horizon", func(_ *projection.HistoricalSnapshot, a *assumption.AssumptionSet) { a.ConvergenceYears = 12 }, 10, assumption.ErrInvalidAssumption},
		{"zero horizon", func(*projection.HistoricalSnapshot, *assumption.AssumptionSet) {}, 0, assumption.ErrInvalidAssumption},
		{"horizon too long", func(*projection.HistoricalSnapshot, *assumption.AssumptionSet) {}, projection.MaxHorizon + 1, assumption.ErrInvalidAssumption},
		{"non-finite snapshot", func(s *projection.HistoricalSnapshot, _ *assumption.AssumptionSet) { s.InvestedCapital = math.Inf(1) }, 10, assumption.ErrNumericOverflow},
		{"non-finite shares", func(s *projection.HistoricalSnapshot, _ *assumption.AssumptionSet) { s.SharesOutstanding = math.Inf(1) }, 10, assumption.ErrNumericOverflow},
		{"implausible wacc", func(_ *projection.HistoricalSnapshot, a *assumption.AssumptionSet) { a.WACC = 3.0 }, 10, assumption.ErrInvalidAssumption},
		{"overflowing revenue", func(s *projection.HistoricalSnapshot, _ *assumption.AssumptionSet) { s.Revenue = 9e17 }, 10, assumption.ErrNumericOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, a := snapshot(), assumptions()
			tt.mutate(&s, &a)
			_, err := projection.BuildProjection(s, a, tt.horizon)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildProjection_Deterministic(t *testing.T) {
	first, err := projection.BuildProjection(snapshot(), assumptions(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := projection.BuildProjection(snapshot(), assumptions(), 10)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("projection is not deterministic")
		}
	}
}

func TestBuildProjection_ShortHorizon(t *testing.T) {
	a := assumptions()
	a.ConvergenceYears = 3
	years, err := projection.BuildProjection(snapshot(), a, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(years) != 3 {
		t.Errorf("expected 3 years, got %d", len(years))
	}
}

func TestCurrentMargin_DerivedFromEBIT(t *testing.T) {
	s := projection.HistoricalSnapshot{Revenue: 200, EBIT: 30}
	if math.Abs(s.CurrentMargin()-0.15) > eps {
		t.Errorf("expected 0.15, got %v", s.CurrentMargin())
	}
}
