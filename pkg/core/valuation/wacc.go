package valuation

import "fmt"

const (
	// MarginalTaxRate shields the cost of debt
	MarginalTaxRate = 0.25

	// TerminalRiskPremium is added to the risk-free rate for the mature-company WACC
	TerminalRiskPremium = 0.05

	// TerminalRONICPremium lifts RONIC above terminal WACC for firms with a lasting edge
	TerminalRONICPremium = 0.05

	// DefaultEquityRiskPremium applies when no country premium is known
	DefaultEquityRiskPremium = 0.05
)

var riskFreeRates = map[string]float64{
	"US":            0.04,
	"United States": 0.04,
	"CN":            0.03,
	"China":         0.03,
}

// RiskFreeRate returns the risk-free rate for a country name or ISO code (3% when unknown)
func RiskFreeRate(country string) float64 {
	if rf, ok := riskFreeRates[country]; ok {
		return rf
	}
	return 0.03
}

// TerminalWACC is the cost of capital of a mature company: rf + 5%
func TerminalWACC(country string) float64 {
	return RiskFreeRate(country) + TerminalRiskPremium
}

// WACCInput parameters for calculating Cost of Capital
type WACCInput struct {
	RiskFreeRate      float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	EquityRiskPremium float64 `json:"equity_risk_premium" yaml:"equity_risk_premium"`
	Beta              float64 `json:"beta" yaml:"beta"`
	UnleveredBeta     float64 `json:"unlevered_beta,omitempty" yaml:"unlevered_beta,omitempty"` // Relevered at D/E when Beta is 0
	PreTaxCostOfDebt  float64 `json:"cost_of_debt" yaml:"cost_of_debt"`
	TaxRate           float64 `json:"tax_rate" yaml:"tax_rate"` // 0 selects MarginalTaxRate
	TotalDebt         float64 `json:"total_debt" yaml:"total_debt"`
	MarketCap         float64 `json:"market_cap" yaml:"market_cap"`
}

// WACCResult holds the calculated rates
type WACCResult struct {
	Beta         float64 `json:"beta"` // Levered
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"` // After-tax
	WeightDebt   float64 `json:"weight_debt"`
	WeightEquity float64 `json:"weight_equity"`
	WACC         float64 `json:"wacc"`
}

// CalculateWACC computes the Weighted Average Cost of Capital from CAPM and market-value weights
func CalculateWACC(input WACCInput) (WACCResult, error) {
	if input.TotalDebt < 0 || input.MarketCap < 0 {
		return WACCResult{}, fmt.Errorf("%w: debt and market cap must be non-negative", ErrInvalidAssumption)
	}
	capital := input.TotalDebt + input.MarketCap
	if capital == 0 {
		return WACCResult{}, fmt.Errorf("%w: debt plus market cap is zero, cannot weight capital", ErrInvalidAssumption)
	}
	tax := input.TaxRate
	if tax == 0 {
		tax = MarginalTaxRate
	}

	// 1. Levered beta (Hamada) when only the asset beta is known
	beta := input.Beta
	if beta == 0 && input.UnleveredBeta != 0 {
		if input.MarketCap == 0 {
			return WACCResult{}, fmt.Errorf("%w: market cap is zero, cannot relever beta", ErrInvalidAssumption)
		}
		beta = ReleverBeta(input.UnleveredBeta, tax, input.TotalDebt/input.MarketCap)
	}

	// 2. Cost of Equity (CAPM)
	// Ke = Rf + Beta * ERP
	ke := input.RiskFreeRate + beta*input.EquityRiskPremium

	// 3. Cost of Debt (After-tax)
	// Kd = PreTaxKd * (1 - t)
	kd := input.PreTaxCostOfDebt * (1 - tax)

	// 4. Weights at market value
	wd := input.TotalDebt / capital
	we := input.MarketCap / capital

	wacc := (ke * we) + (kd * wd)
	if wacc <= 0 {
		return WACCResult{}, fmt.Errorf("%w: computed wacc %v is not positive", ErrInvalidAssumption, wacc)
	}

	return WACCResult{
		Beta:         beta,
		CostOfEquity: ke,
		CostOfDebt:   kd,
		WeightDebt:   wd,
		WeightEquity: we,
		WACC:         wacc,
	}, nil
}

// ReleverBeta applies the Hamada equation: BetaL = BetaU * (1 + (1-t) * D/E)
func ReleverBeta(unlevered, taxRate, debtToEquity float64) float64 {
	return unlevered * (1 + (1-taxRate)*debtToEquity)
}
