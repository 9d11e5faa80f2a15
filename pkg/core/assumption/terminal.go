package assumption

// FadeROIC is the marginal return on capital implied by the last explicit phase once the
// margin has converged: ratio(6-10) x target margin x (1 - tax).
func (a AssumptionSet) FadeROIC() float64 {
	return a.CapitalRatios.Y6to10 * a.TargetEBITMargin * (1 - a.TaxRate)
}

// TerminalGrowth derives the stable growth rate from RONIC and the reinvestment rate.
//
// The reinvestment rate is the share of NOPAT the fade phase reinvests at the Year 2-5
// growth rate (g5 / FadeROIC). Terminal growth is RONIC times that rate, so new capital
// earns exactly RONIC in perpetuity. With no return on new capital there is no growth.
func (a AssumptionSet) TerminalGrowth() float64 {
	roic := a.FadeROIC()
	if a.RONIC == 0 || roic <= 0 {
		return 0
	}
	return a.RONIC * (a.RevenueGrowthY2Y5 / roic)
}

// TerminalReinvestmentRate is the share of terminal NOPAT reinvested to sustain TerminalGrowth.
func (a AssumptionSet) TerminalReinvestmentRate() float64 {
	if a.RONIC == 0 {
		return 0
	}
	return a.TerminalGrowth() / a.RONIC
}
