package valuation

import (
	"fmt"
	"math"
)

// ValuationLineItem represents one row of the valuation bridge
type ValuationLineItem struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Summarize lays out the bridge from discounted cash flows to the per-share value
func Summarize(res *ValuationResult) []ValuationLineItem {
	horizon := len(res.Projection)
	return []ValuationLineItem{
		{Label: fmt.Sprintf("PV (FCFF over next %d years)", horizon), Value: res.PVExplicit},
		{Label: "PV (Terminal value)", Value: res.PVTerminal},
		{Label: "Enterprise Value", Value: res.EnterpriseValue},
		{Label: "- Net Debt", Value: res.NetDebtAdjustment},
		{Label: "Equity Value", Value: res.EquityValue},
		{Label: "Outstanding Shares", Value: res.SharesOutstanding},
		{Label: "Equity Value per Share", Value: res.PerShareValue},
	}
}

// GapAnalysis compares the DCF value per share with the market price
type GapAnalysis struct {
	DCFPrice    float64 `json:"dcf_price"`
	MarketPrice float64 `json:"market_price"`
	GapPct      float64 `json:"gap_pct"` // (DCF - market) / market * 100
	Undervalued bool    `json:"undervalued"`
}

// Direction describes the gap in words
func (g GapAnalysis) Direction() string {
	if g.Undervalued {
		return "DCF value above market price: market may be undervaluing"
	}
	return "DCF value below market price: market may be overvaluing"
}

// AnalyzeGap measures how far the market price sits from the DCF value.
// Both prices must be in the same currency.
func AnalyzeGap(res *ValuationResult, marketPrice float64) (GapAnalysis, error) {
	if math.IsNaN(marketPrice) || marketPrice <= 0 {
		return GapAnalysis{}, fmt.Errorf("%w: market price must be positive, got %v", ErrInvalidAssumption, marketPrice)
	}
	gap := (res.PerShareValue - marketPrice) / marketPrice * 100
	return GapAnalysis{
		DCFPrice:    res.PerShareValue,
		MarketPrice: marketPrice,
		GapPct:      gap,
		Undervalued: gap > 0,
	}, nil
}
