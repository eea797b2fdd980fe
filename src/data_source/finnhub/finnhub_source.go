package finnhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/models"
	"stock-screener/src/network"
	"stock-screener/src/ticker"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go"
	"github.com/antihax/optional"
	"github.com/guregu/null/v6"
	"github.com/pkg/errors"
)

// Finnhub candle resolutions for our timeframes.
var resolutions = map[string]string{
	"1d":  "D",
	"1wk": "W",
	"1mo": "M",
}

// -----------------------------------------------------------------------------

// FinnhubSource is the secondary provider. It needs an API key; without one
// every call reports FetchUnsupported so the chain moves on.
type FinnhubSource struct {
	Config       *models.MConfig
	SourceConfig models.MSourceConfig
	Client       *finnhub.DefaultApiService
	Logger       *logger.Logger
	now          func() time.Time
}

// -----------------------------------------------------------------------------

func NewFinnhubSource(cfg *models.MConfig, sourceCfg models.MSourceConfig, log *logger.Logger) *FinnhubSource {
	apiCfg := finnhub.NewConfiguration()
	apiCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second}
	if cfg.Network.UserAgent != "" {
		apiCfg.UserAgent = cfg.Network.UserAgent
	}

	return &FinnhubSource{
		Config:       cfg,
		SourceConfig: sourceCfg,
		Client:       finnhub.NewAPIClient(apiCfg).DefaultApi,
		Logger:       log,
		now:          time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *FinnhubSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

func (s *FinnhubSource) Source() models.MSourceTag {
	return models.SourceForTier(s.SourceConfig.Tier)
}

// -----------------------------------------------------------------------------

func (s *FinnhubSource) authContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, finnhub.ContextAPIKey, finnhub.APIKey{Key: s.SourceConfig.APIKey})
}

// -----------------------------------------------------------------------------

func (s *FinnhubSource) FetchPrice(ctx context.Context, tkr, timeframe, period string) models.MFetchResult {
	if s.SourceConfig.APIKey == "" {
		return models.MFetchResult{Kind: models.FetchUnsupported, Err: fmt.Errorf("finnhub: no api key configured")}
	}
	symbol, ok := ticker.ForFinnhub(tkr)
	if !ok {
		return models.MFetchResult{Kind: models.FetchUnsupported, Err: fmt.Errorf("finnhub: %s has no finnhub symbol", tkr)}
	}
	resolution, ok := resolutions[timeframe]
	if !ok {
		return models.MFetchResult{Kind: models.FetchUnsupported, Err: fmt.Errorf("finnhub: unsupported timeframe %s", timeframe)}
	}

	now := s.now()
	from := models.PeriodStart(period, now)
	candles, httpResp, err := s.Client.StockCandles(s.authContext(ctx), symbol, resolution, from.Unix(), now.Unix(), nil)
	if err != nil {
		err = handleErr(fmt.Sprintf("error while requesting candles for %q", symbol), httpResp, err)
		return models.MFetchResult{Kind: classify(ctx, httpResp, err), Err: err}
	}

	bars, err := TransformCandles(symbol, candles)
	if err != nil {
		return models.MFetchResult{Kind: models.FetchMalformed, Err: err}
	}
	if len(bars) == 0 {
		return models.MFetchResult{Kind: models.FetchEmpty, Err: fmt.Errorf("finnhub: no candles for %s (status %q)", symbol, candles.S)}
	}

	s.Logger.Info("Fetched %s from finnhub: %d bars", symbol, len(bars))
	return models.MFetchResult{
		Kind: models.FetchOK,
		Series: models.MPriceSeries{
			Ticker:    tkr,
			Timeframe: timeframe,
			Period:    period,
			Bars:      bars,
			Source:    s.Source(),
			FetchedAt: now.UTC(),
		},
	}
}

// -----------------------------------------------------------------------------

// FetchFundamentals uses the company profile. Finnhub's free profile carries
// no ratio metrics, so only descriptive fields and market cap are filled.
func (s *FinnhubSource) FetchFundamentals(ctx context.Context, tkr string) models.MFundamentalsResult {
	if s.SourceConfig.APIKey == "" {
		return models.MFundamentalsResult{Kind: models.FetchUnsupported, Err: fmt.Errorf("finnhub: no api key configured")}
	}
	symbol, ok := ticker.ForFinnhub(tkr)
	if !ok {
		return models.MFundamentalsResult{Kind: models.FetchUnsupported, Err: fmt.Errorf("finnhub: %s has no finnhub symbol", tkr)}
	}

	profile, httpResp, err := s.Client.CompanyProfile2(s.authContext(ctx), &finnhub.CompanyProfile2Opts{Symbol: optional.NewString(symbol)})
	if err != nil {
		err = handleErr(fmt.Sprintf("error while getting company profile %q", symbol), httpResp, err)
		return models.MFundamentalsResult{Kind: classify(ctx, httpResp, err), Err: err}
	}
	if profile.Name == "" && profile.Ticker == "" {
		return models.MFundamentalsResult{Kind: models.FetchEmpty, Err: fmt.Errorf("finnhub: empty profile for %s", symbol)}
	}

	f := TransformCompanyProfile(tkr, profile)
	f.Source = s.Source()
	f.FetchedAt = s.now().UTC()
	return models.MFundamentalsResult{Kind: models.FetchOK, Fundamentals: f}
}

// -----------------------------------------------------------------------------

// TransformCandles converts the column-oriented candle payload into bars.
func TransformCandles(symbol string, in finnhub.StockCandles) ([]models.MBar, error) {
	l := len(in.T)
	switch {
	case l == 0:
		return nil, nil
	case len(in.O) != l:
		return nil, fmt.Errorf("len(open) = %d, len(timestamp) = %d for stock %q", len(in.O), l, symbol)
	case len(in.H) != l:
		return nil, fmt.Errorf("len(high) = %d, len(timestamp) = %d for stock %q", len(in.H), l, symbol)
	case len(in.L) != l:
		return nil, fmt.Errorf("len(low) = %d, len(timestamp) = %d for stock %q", len(in.L), l, symbol)
	case len(in.C) != l:
		return nil, fmt.Errorf("len(close) = %d, len(timestamp) = %d for stock %q", len(in.C), l, symbol)
	case len(in.V) != l:
		return nil, fmt.Errorf("len(volume) = %d, len(timestamp) = %d for stock %q", len(in.V), l, symbol)
	}

	out := make([]models.MBar, l)
	for ndx, ts := range in.T {
		out[ndx] = models.MBar{
			Timestamp: time.Unix(int64(ts), 0).UTC(),
			Open:      float64(in.O[ndx]),
			High:      float64(in.H[ndx]),
			Low:       float64(in.L[ndx]),
			Close:     float64(in.C[ndx]),
			Volume:    int64(in.V[ndx]),
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func TransformCompanyProfile(tkr string, in finnhub.CompanyProfile2) models.MFundamentals {
	f := models.MFundamentals{
		Ticker:   tkr,
		Name:     null.NewString(in.Name, in.Name != ""),
		Currency: null.NewString(in.Currency, in.Currency != ""),
		Sector:   null.NewString(in.FinnhubIndustry, in.FinnhubIndustry != ""),
	}
	// Finnhub reports market capitalization in millions.
	if mc := float64(in.MarketCapitalization); mc > 0 {
		f.MarketCap = null.FloatFrom(mc * 1e6)
	}
	return f
}

// -----------------------------------------------------------------------------

func handleErr(msg string, resp *http.Response, err error) error {
	switch {
	case resp == nil:
		break
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.Wrap(network.ErrTooManyRequests, msg)
	case resp.Body != nil:
		defer resp.Body.Close()
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			msg = fmt.Sprintf("error while parsing error response %v. %s", readErr, msg)
			break
		}
		msg = fmt.Sprintf("%s (%s)", msg, body)
	}
	return errors.Wrap(err, msg)
}

// -----------------------------------------------------------------------------

func classify(ctx context.Context, resp *http.Response, err error) models.MFetchKind {
	if ctx.Err() != nil {
		return models.FetchTimeout
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusForbidden:
			return models.FetchRateLimited
		case resp.StatusCode == http.StatusNotFound:
			return models.FetchEmpty
		}
	}
	return network.Classify(err)
}
