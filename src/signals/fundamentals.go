package signals

import (
	"fmt"

	"stock-screener/src/models"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// FundamentalsAnalyzer checks a snapshot against the configured thresholds.
// Comparisons run on decimals so a value printed as the threshold passes.
type FundamentalsAnalyzer struct {
	Thresholds models.MScoringConfig
}

// -----------------------------------------------------------------------------

func NewFundamentalsAnalyzer(thresholds models.MScoringConfig) *FundamentalsAnalyzer {
	return &FundamentalsAnalyzer{Thresholds: thresholds}
}

// -----------------------------------------------------------------------------

// Analyze evaluates every present metric. The snapshot passes when enough
// metrics are present and enough criteria pass.
func (a *FundamentalsAnalyzer) Analyze(f models.MFundamentals) models.MFundamentalsVerdict {
	t := a.Thresholds
	v := models.MFundamentalsVerdict{Ticker: f.Ticker}

	maxPE := decimal.NewFromFloat(t.MaxPERatio)
	addCriterion(&v, f.PERatio, "pe_ratio", fmt.Sprintf("(0, %s]", maxPE), func(d decimal.Decimal) bool {
		return d.IsPositive() && d.LessThanOrEqual(maxPE)
	})
	addCriterion(&v, f.ProfitMargin, "profit_margin", atLeast(t.MinProfitMargin), minimum(t.MinProfitMargin))
	addCriterion(&v, f.RevenueGrowth, "revenue_growth", atLeast(t.MinRevenueGrowth), minimum(t.MinRevenueGrowth))
	addCriterion(&v, f.EarningsGrowth, "earnings_growth", atLeast(t.MinEarningsGrowth), minimum(t.MinEarningsGrowth))

	v.Pass = v.Evaluated >= t.MinMetricsPresent && v.Passed >= t.MinCriteriaPassed
	return v
}

func atLeast(floor float64) string {
	return ">= " + decimal.NewFromFloat(floor).String()
}

func minimum(floor float64) func(decimal.Decimal) bool {
	bound := decimal.NewFromFloat(floor)
	return func(d decimal.Decimal) bool { return d.GreaterThanOrEqual(bound) }
}

// -----------------------------------------------------------------------------

func addCriterion(v *models.MFundamentalsVerdict, value null.Float, metric, threshold string, test func(decimal.Decimal) bool) {
	if !value.Valid {
		return
	}
	passed := test(decimal.NewFromFloat(value.Float64))
	v.Criteria = append(v.Criteria, models.MCriterion{
		Metric:    metric,
		Value:     value.Float64,
		Threshold: threshold,
		Passed:    passed,
	})
	v.Evaluated++
	if passed {
		v.Passed++
	}
}
