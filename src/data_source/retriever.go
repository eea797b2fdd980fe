package datasource

import (
	"context"
	"encoding/json"
	"time"

	"stock-screener/src/cache"
	"stock-screener/src/helpers"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/metrics"
	"stock-screener/src/models"
	"stock-screener/src/ticker"

	"github.com/pkg/errors"
)

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 10 * time.Second

const (
	kindPrice        = "price"
	kindFundamentals = "fundamentals"
)

// Retriever resolves a request through cache, live providers, stale cache
// and finally synthetic data. Only invalid input is reported as an error.
type Retriever struct {
	Config    *models.MConfig
	Sources   *MultiSourceManager
	Synthetic interfaces.IPriceProvider
	Store     interfaces.ICacheStore
	Policy    *cache.Policy
	Errors    *helpers.ErrorHandler
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
	Timeout   time.Duration
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewRetriever(
	cfg *models.MConfig,
	sources *MultiSourceManager,
	synthetic interfaces.IPriceProvider,
	store interfaces.ICacheStore,
	policy *cache.Policy,
	m *metrics.Metrics,
	log *logger.Logger,
) *Retriever {
	timeout := time.Duration(cfg.DataSource.ProviderTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Retriever{
		Config:    cfg,
		Sources:   sources,
		Synthetic: synthetic,
		Store:     store,
		Policy:    policy,
		Errors:    helpers.NewErrorHandler(log.Named("Errors")),
		Metrics:   m,
		Logger:    log,
		Timeout:   timeout,
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// Validate normalizes the ticker and checks timeframe and period. Empty
// timeframe and period take the defaults.
func Validate(raw, timeframe, period string) (tkr, tf, p string, err error) {
	tkr, err = ticker.Normalize(raw)
	if err != nil {
		return "", "", "", err
	}
	tf, p = timeframe, period
	if tf == "" {
		tf = models.DefaultTimeframe
	}
	if p == "" {
		p = models.DefaultPeriod
	}
	if !models.IsValidTimeframe(tf) {
		return "", "", "", helpers.NewValidationError("unsupported timeframe %q", timeframe)
	}
	if !models.IsValidPeriod(p) {
		return "", "", "", helpers.NewValidationError("unsupported period %q", period)
	}
	return tkr, tf, p, nil
}

// -----------------------------------------------------------------------------

// GetStockData returns a non-empty series for every valid request.
func (r *Retriever) GetStockData(ctx context.Context, raw, timeframe, period string) (models.MPriceSeries, error) {
	tkr, tf, p, err := Validate(raw, timeframe, period)
	if err != nil {
		return models.MPriceSeries{}, err
	}

	sources := r.Sources.GetAllSources()

	// Cache lookup, one row per live tier.
	var (
		stale   *models.MPriceSeries
		staleAt time.Time
	)
	for _, src := range sources {
		key := models.MCacheKey{Ticker: tkr, Timeframe: tf, Period: p, Source: src.Source()}
		rec, ok := r.lookup(ctx, key)
		if !ok {
			continue
		}

		var series models.MPriceSeries
		if err := json.Unmarshal(rec.Blob, &series); err != nil || len(series.Bars) == 0 {
			r.Logger.Warning("Ignoring unreadable cache row %s: %v", key, err)
			continue
		}

		if r.Policy.IsFresh(rec) {
			r.Metrics.ObserveCache("hit")
			series.Source = models.SourceCache
			series.Stale = false
			return r.resolvedSeries(series), nil
		}
		if stale == nil || rec.CachedAt.After(staleAt) {
			stale, staleAt = &series, rec.CachedAt
		}
	}
	r.Metrics.ObserveCache("miss")

	// Live providers in tier order. No new tier starts once ctx is done.
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		res := r.fetchPrice(ctx, src, tkr, tf, p)
		if !res.OK() {
			continue
		}

		series := res.Series
		series.Ticker, series.Timeframe, series.Period = tkr, tf, p
		series.Source = src.Source()
		series.Stale = false
		if series.FetchedAt.IsZero() {
			series.FetchedAt = r.now().UTC()
		}
		r.write(ctx, models.MCacheKey{Ticker: tkr, Timeframe: tf, Period: p, Source: src.Source()}, series)
		return r.resolvedSeries(series), nil
	}

	if stale != nil && r.Config.Cache.ServeStaleOnFailure {
		r.Metrics.ObserveCache("stale")
		r.Logger.Warning("All providers failed for %s %s/%s. Serving cache row from %s", tkr, tf, p, staleAt.Format(time.RFC3339))
		stale.Source = models.SourceCache
		stale.Stale = true
		return r.resolvedSeries(*stale), nil
	}

	res := r.Synthetic.FetchPrice(ctx, tkr, tf, p)
	series := res.Series
	series.Ticker, series.Timeframe, series.Period = tkr, tf, p
	series.Source = models.SourceSynthetic
	return r.resolvedSeries(series), nil
}

// -----------------------------------------------------------------------------

// GetFundamentals follows the same chain under the flat fundamentals TTL.
func (r *Retriever) GetFundamentals(ctx context.Context, raw string) (models.MFundamentals, error) {
	tkr, err := ticker.Normalize(raw)
	if err != nil {
		return models.MFundamentals{}, err
	}

	sources := r.Sources.GetAllSources()

	var (
		stale   *models.MFundamentals
		staleAt time.Time
	)
	for _, src := range sources {
		key := models.FundamentalsKey(tkr, src.Source())
		rec, ok := r.lookup(ctx, key)
		if !ok {
			continue
		}

		var f models.MFundamentals
		if err := json.Unmarshal(rec.Blob, &f); err != nil {
			r.Logger.Warning("Ignoring unreadable cache row %s: %v", key, err)
			continue
		}

		if r.Policy.IsFresh(rec) {
			r.Metrics.ObserveCache("hit")
			f.Source = models.SourceCache
			f.Stale = false
			return r.resolvedFundamentals(f), nil
		}
		if stale == nil || rec.CachedAt.After(staleAt) {
			stale, staleAt = &f, rec.CachedAt
		}
	}
	r.Metrics.ObserveCache("miss")

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		res := r.fetchFundamentals(ctx, src, tkr)
		if !res.OK() {
			continue
		}

		f := res.Fundamentals
		f.Ticker = tkr
		f.Source = src.Source()
		f.Stale = false
		if f.FetchedAt.IsZero() {
			f.FetchedAt = r.now().UTC()
		}
		r.write(ctx, models.FundamentalsKey(tkr, src.Source()), f)
		return r.resolvedFundamentals(f), nil
	}

	if stale != nil && r.Config.Cache.ServeStaleOnFailure {
		r.Metrics.ObserveCache("stale")
		stale.Source = models.SourceCache
		stale.Stale = true
		return r.resolvedFundamentals(*stale), nil
	}

	res := r.Synthetic.FetchFundamentals(ctx, tkr)
	f := res.Fundamentals
	f.Ticker = tkr
	f.Source = models.SourceSynthetic
	return r.resolvedFundamentals(f), nil
}

// -----------------------------------------------------------------------------

// lookup reads one cache row. A failing store counts as a miss.
func (r *Retriever) lookup(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool) {
	rec, found, err := r.Store.Get(ctx, key)
	if err != nil {
		r.Metrics.ObserveCache("error")
		_ = r.Errors.Handle(err, "cache get")
		return models.MCacheRecord{}, false
	}
	return rec, found
}

// -----------------------------------------------------------------------------

// write stores value under key. The write outlives a cancelled request so
// that an in-flight fetch still lands in the cache.
func (r *Retriever) write(ctx context.Context, key models.MCacheKey, value interface{}) {
	blob, err := json.Marshal(value)
	if err != nil {
		r.Logger.Error("Encode cache row %s: %v", key, err)
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()

	rec := models.MCacheRecord{Key: key, Blob: blob, CachedAt: r.now().UTC()}
	if err := r.Store.Put(wctx, rec); err != nil {
		_ = r.Errors.Handle(errors.Wrapf(err, "write %s", key), "cache put")
		return
	}
	_ = r.Errors.Handle(nil, "cache put")
}

// -----------------------------------------------------------------------------

func (r *Retriever) fetchPrice(ctx context.Context, src interfaces.IPriceProvider, tkr, tf, period string) models.MFetchResult {
	// A started fetch runs to its own timeout even if the request is abandoned.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()

	start := time.Now()
	res := src.FetchPrice(cctx, tkr, tf, period)
	if res.Kind == models.FetchOK && len(res.Series.Bars) == 0 {
		res.Kind = models.FetchEmpty
	}
	r.Metrics.ObserveProvider(src.Name(), res.Kind, time.Since(start))
	r.logOutcome(src.Name(), tkr, res.Kind, res.Err)
	return res
}

// -----------------------------------------------------------------------------

func (r *Retriever) fetchFundamentals(ctx context.Context, src interfaces.IPriceProvider, tkr string) models.MFundamentalsResult {
	// A started fetch runs to its own timeout even if the request is abandoned.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.Timeout)
	defer cancel()

	start := time.Now()
	res := src.FetchFundamentals(cctx, tkr)
	r.Metrics.ObserveProvider(src.Name(), res.Kind, time.Since(start))
	r.logOutcome(src.Name(), tkr, res.Kind, res.Err)
	return res
}

// -----------------------------------------------------------------------------

func (r *Retriever) logOutcome(provider, tkr string, kind models.MFetchKind, err error) {
	switch kind {
	case models.FetchOK:
		r.Logger.Debug("%s served %s", provider, tkr)
	case models.FetchUnsupported:
		r.Logger.Debug("%s does not serve %s", provider, tkr)
	case models.FetchEmpty:
		r.Logger.Info("%s has no data for %s", provider, tkr)
	case models.FetchTimeout, models.FetchRateLimited, models.FetchNetwork, models.FetchMalformed:
		r.Logger.Warning("%s failed for %s (%s): %v. Trying next tier.", provider, tkr, kind, err)
	default:
		r.Logger.Warning("%s returned unknown outcome %q for %s", provider, kind, tkr)
	}
}

// -----------------------------------------------------------------------------

func (r *Retriever) resolvedSeries(s models.MPriceSeries) models.MPriceSeries {
	r.Metrics.ObserveResolved(kindPrice, s.Source)
	r.Logger.Debug("%s %s/%s resolved from %s (%d bars)", s.Ticker, s.Timeframe, s.Period, s.Source, len(s.Bars))
	return s
}

// -----------------------------------------------------------------------------

func (r *Retriever) resolvedFundamentals(f models.MFundamentals) models.MFundamentals {
	r.Metrics.ObserveResolved(kindFundamentals, f.Source)
	r.Logger.Debug("%s fundamentals resolved from %s", f.Ticker, f.Source)
	return f
}

// -----------------------------------------------------------------------------

// StoreName reports the cache backend for health output.
func (r *Retriever) StoreName() string {
	return r.Store.Name()
}

// -----------------------------------------------------------------------------

// ErrorCounts exposes the rolling cache failure counters.
func (r *Retriever) ErrorCounts() map[string]int {
	return r.Errors.Counts()
}
