package interfaces

import "stock-screener/src/models"

// IFundamentalsAnalyzer turns a fundamentals snapshot into a pass verdict.
type IFundamentalsAnalyzer interface {
	Analyze(f models.MFundamentals) models.MFundamentalsVerdict
}
