package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"
	"stock-screener/src/network"
	"stock-screener/src/ticker"

	"github.com/guregu/null/v6"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// quoteSummary modules that carry the fundamentals we read.
const summaryModules = "price,summaryDetail,financialData,defaultKeyStatistics,assetProfile"

// -----------------------------------------------------------------------------

type YahooFinanceSource struct {
	Config       *models.MConfig
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
	baseURL      string
	now          func() time.Time
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	base := strings.TrimRight(sourceCfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &YahooFinanceSource{
		Config:       cfg,
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       log,
		baseURL:      base,
		now:          time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Source() models.MSourceTag {
	return models.SourceForTier(s.SourceConfig.Tier)
}

// -----------------------------------------------------------------------------

// FetchPrice downloads the v8 chart for ticker. Yahoo accepts our timeframe
// and period spellings as interval and range directly.
func (s *YahooFinanceSource) FetchPrice(ctx context.Context, tkr, timeframe, period string) models.MFetchResult {
	symbol := ticker.ForYahoo(tkr)
	params := map[string]string{
		"interval":       timeframe,
		"range":          period,
		"includePrePost": "false",
		"events":         "div,splits",
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", s.baseURL, url.PathEscape(symbol))
	respBytes, err := s.Network.Get(ctx, endpoint, params)
	if err != nil {
		return models.MFetchResult{Kind: network.Classify(err), Err: errors.Wrapf(err, "yahoo chart %s", symbol)}
	}

	bars, kind, err := s.parseChartResponse(symbol, respBytes)
	if err != nil {
		return models.MFetchResult{Kind: kind, Err: err}
	}

	return models.MFetchResult{
		Kind: models.FetchOK,
		Series: models.MPriceSeries{
			Ticker:    tkr,
			Timeframe: timeframe,
			Period:    period,
			Bars:      bars,
			Source:    s.Source(),
			FetchedAt: s.now().UTC(),
		},
	}
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency             string  `json:"currency"`
				Symbol               string  `json:"symbol"`
				ExchangeName         string  `json:"exchangeName"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				DataGranularity      string  `json:"dataGranularity"`
				Range                string  `json:"range"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"` // Use pointers to handle null
					Low    []*float64 `json:"low"`
					Open   []*float64 `json:"open"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MBar, models.MFetchKind, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, models.FetchMalformed, fmt.Errorf("json unmarshal failed: %w", err)
	}

	if resp.Chart.Error != nil {
		kind := models.FetchMalformed
		if resp.Chart.Error.Code == "Not Found" {
			kind = models.FetchEmpty
		}
		return nil, kind, fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, models.FetchEmpty, fmt.Errorf("no result in response for %s", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, models.FetchEmpty, fmt.Errorf("no timestamps in response for %s", symbol)
	}

	indicators := result.Indicators.Quote
	if len(indicators) == 0 {
		return nil, models.FetchMalformed, fmt.Errorf("no quote data in response for %s", symbol)
	}
	quote := indicators[0]

	// 1. Alignment check
	n := len(result.Timestamp)
	if n != len(quote.Close) || n != len(quote.Open) || n != len(quote.High) || n != len(quote.Low) || n != len(quote.Volume) {
		s.Logger.Warning("Data alignment error for %s: Mismatched array lengths", symbol)
		return nil, models.FetchMalformed, fmt.Errorf("data alignment error for %s", symbol)
	}

	// 2. Build bars, skipping rows with any null column
	bars := make([]models.MBar, 0, n)
	for i := 0; i < n; i++ {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			s.Logger.Debug("Null OHLC for %s at index %d", symbol, i)
			continue
		}
		closeVal := *quote.Close[i]
		volume := 0.0
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		if closeVal <= 0 || volume < 0 {
			s.Logger.Debug("Skipping invalid point for %s: close=%f, volume=%f", symbol, closeVal, volume)
			continue
		}

		bars = append(bars, models.MBar{
			Timestamp: time.Unix(result.Timestamp[i], 0).UTC(),
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     closeVal,
			Volume:    int64(volume),
		})
	}

	if len(bars) == 0 {
		return nil, models.FetchEmpty, fmt.Errorf("no valid data points for %s", symbol)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	s.Logger.Info("Fetched %s: %d bars [%s -> %s]", symbol, len(bars),
		bars[0].Timestamp.Format("2006-01-02"), bars[len(bars)-1].Timestamp.Format("2006-01-02"))

	return bars, models.FetchOK, nil
}

// -----------------------------------------------------------------------------

// FetchFundamentals reads the quoteSummary modules. Fields Yahoo omits stay null.
func (s *YahooFinanceSource) FetchFundamentals(ctx context.Context, tkr string) models.MFundamentalsResult {
	symbol := ticker.ForYahoo(tkr)
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", s.baseURL, url.PathEscape(symbol))

	respBytes, err := s.Network.Get(ctx, endpoint, map[string]string{"modules": summaryModules})
	if err != nil {
		return models.MFundamentalsResult{Kind: network.Classify(err), Err: errors.Wrapf(err, "yahoo quoteSummary %s", symbol)}
	}

	f, kind, err := parseQuoteSummary(tkr, respBytes)
	if err != nil {
		return models.MFundamentalsResult{Kind: kind, Err: err}
	}
	f.Source = s.Source()
	f.FetchedAt = s.now().UTC()
	return models.MFundamentalsResult{Kind: models.FetchOK, Fundamentals: f}
}

// -----------------------------------------------------------------------------

func parseQuoteSummary(tkr string, data []byte) (models.MFundamentals, models.MFetchKind, error) {
	if !gjson.ValidBytes(data) {
		return models.MFundamentals{}, models.FetchMalformed, fmt.Errorf("invalid quoteSummary json for %s", tkr)
	}

	if desc := gjson.GetBytes(data, "quoteSummary.error.description"); desc.Exists() {
		return models.MFundamentals{}, models.FetchEmpty, fmt.Errorf("yahoo api error: %s", desc.String())
	}

	res := gjson.GetBytes(data, "quoteSummary.result.0")
	if !res.Exists() {
		return models.MFundamentals{}, models.FetchEmpty, fmt.Errorf("no quoteSummary result for %s", tkr)
	}

	f := models.MFundamentals{
		Ticker:         tkr,
		Name:           rawString(res, "price.longName", "price.shortName"),
		Currency:       rawString(res, "price.currency", "financialData.financialCurrency"),
		Sector:         rawString(res, "assetProfile.sector"),
		PERatio:        rawFloat(res, "summaryDetail.trailingPE.raw", "defaultKeyStatistics.forwardPE.raw"),
		ProfitMargin:   rawFloat(res, "financialData.profitMargins.raw", "defaultKeyStatistics.profitMargins.raw"),
		RevenueGrowth:  rawFloat(res, "financialData.revenueGrowth.raw"),
		EarningsGrowth: rawFloat(res, "financialData.earningsGrowth.raw", "defaultKeyStatistics.earningsQuarterlyGrowth.raw"),
		BookValue:      rawFloat(res, "defaultKeyStatistics.bookValue.raw"),
		MarketCap:      rawFloat(res, "price.marketCap.raw", "summaryDetail.marketCap.raw"),
		DividendYield:  rawFloat(res, "summaryDetail.dividendYield.raw"),
	}
	if f.MetricCount() == 0 && !f.Name.Valid {
		return models.MFundamentals{}, models.FetchEmpty, fmt.Errorf("quoteSummary for %s carries no metrics", tkr)
	}
	return f, models.FetchOK, nil
}

// -----------------------------------------------------------------------------

// rawFloat returns the first numeric value among paths.
func rawFloat(res gjson.Result, paths ...string) null.Float {
	for _, p := range paths {
		if v := res.Get(p); v.Type == gjson.Number {
			return null.FloatFrom(v.Float())
		}
	}
	return null.Float{}
}

func rawString(res gjson.Result, paths ...string) null.String {
	for _, p := range paths {
		if v := res.Get(p); v.Type == gjson.String && v.String() != "" {
			return null.StringFrom(v.String())
		}
	}
	return null.String{}
}
