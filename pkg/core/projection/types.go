package projection

// HistoricalSnapshot is the normalized base year (year 0) of a projection.
// Amounts share one unit (typically millions of the reporting currency).
type HistoricalSnapshot struct {
	Ticker      string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	CompanyName string `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	BaseYear    int    `json:"base_year,omitempty" yaml:"base_year,omitempty"`
	Currency    string `json:"currency,omitempty" yaml:"currency,omitempty"`

	Revenue           float64 `json:"revenue" yaml:"revenue"`
	EBIT              float64 `json:"ebit" yaml:"ebit"`
	EBITMargin        float64 `json:"ebit_margin" yaml:"ebit_margin"`
	TaxRate           float64 `json:"tax_rate" yaml:"tax_rate"`
	InvestedCapital   float64 `json:"invested_capital" yaml:"invested_capital"`
	SharesOutstanding float64 `json:"shares_outstanding" yaml:"shares_outstanding"`
	NetDebt           float64 `json:"net_debt" yaml:"net_debt"`
	Cash              float64 `json:"cash" yaml:"cash"`
}

// CurrentMargin returns the base year EBIT margin, deriving it from EBIT when not supplied.
func (s HistoricalSnapshot) CurrentMargin() float64 {
	if s.EBITMargin != 0 || s.Revenue == 0 {
		return s.EBITMargin
	}
	return s.EBIT / s.Revenue
}

// YearProjection is one explicit forecast year
type YearProjection struct {
	Year            int     `json:"year"`
	Growth          float64 `json:"revenue_growth"`
	Revenue         float64 `json:"revenue"`
	EBITMargin      float64 `json:"ebit_margin"`
	EBIT            float64 `json:"ebit"`
	NOPAT           float64 `json:"nopat"` // EBIT(1-t)
	Reinvestment    float64 `json:"reinvestment"`
	FCFF            float64 `json:"fcff"`
	InvestedCapital float64 `json:"invested_capital"`
}

// ReinvestmentRate is reinvestment as a share of NOPAT (0 when NOPAT is 0)
func (y YearProjection) ReinvestmentRate() float64 {
	if y.NOPAT == 0 {
		return 0
	}
	return y.Reinvestment / y.NOPAT
}
