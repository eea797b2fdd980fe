package datasource

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"stock-screener/src/cache"
	"stock-screener/src/data_source/synthetic"
	"stock-screener/src/helpers"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/market"
	"stock-screener/src/metrics"
	"stock-screener/src/models"
	"stock-screener/src/storage"

	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 10:00 in New York, market open.
var testNow = time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(nil, "datasource-test")
	l.SetOutput(io.Discard)
	return l
}

// fakeProvider returns a fixed outcome and counts its calls.
type fakeProvider struct {
	name  string
	tag   models.MSourceTag
	kind  models.MFetchKind
	bars  []models.MBar
	fund  models.MFundamentals
	block bool
	delay time.Duration // honoured against ctx before answering
	calls atomic.Int32
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) Source() models.MSourceTag { return f.tag }

func (f *fakeProvider) FetchPrice(ctx context.Context, tkr, timeframe, period string) models.MFetchResult {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return models.MFetchResult{Kind: models.FetchTimeout, Err: ctx.Err()}
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return models.MFetchResult{Kind: models.FetchTimeout, Err: ctx.Err()}
		case <-time.After(f.delay):
		}
	}
	if f.kind != models.FetchOK {
		return models.MFetchResult{Kind: f.kind, Err: errors.New(string(f.kind))}
	}
	return models.MFetchResult{Kind: models.FetchOK, Series: models.MPriceSeries{Ticker: tkr, Bars: f.bars}}
}

func (f *fakeProvider) FetchFundamentals(ctx context.Context, tkr string) models.MFundamentalsResult {
	f.calls.Add(1)
	if f.kind != models.FetchOK {
		return models.MFundamentalsResult{Kind: f.kind, Err: errors.New(string(f.kind))}
	}
	out := f.fund
	out.Ticker = tkr
	return models.MFundamentalsResult{Kind: models.FetchOK, Fundamentals: out}
}

func bars(n int) []models.MBar {
	out := make([]models.MBar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = models.MBar{Timestamp: testNow.AddDate(0, 0, i-n), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

// failingStore fails every call, standing in for an unreachable database.
type failingStore struct{}

func (failingStore) Name() string      { return "failing" }
func (failingStore) Initialize() error { return nil }
func (failingStore) Close() error      { return nil }
func (failingStore) Get(context.Context, models.MCacheKey) (models.MCacheRecord, bool, error) {
	return models.MCacheRecord{}, false, errors.New("connection refused")
}
func (failingStore) Put(context.Context, models.MCacheRecord) error {
	return errors.New("connection refused")
}

func testConfig() *models.MConfig {
	cfg := &models.MConfig{}
	cfg.DataSource.ProviderTimeoutSeconds = 10
	cfg.DataSource.BatchWorkers = 2
	cfg.Cache.TradingHoursTTLMinutes = 240
	cfg.Cache.FundamentalsTTLHours = 24
	cfg.Cache.ServeStaleOnFailure = true
	return cfg
}

func newTestRetriever(t *testing.T, cfg *models.MConfig, store interfaces.ICacheStore, providers ...interfaces.IPriceProvider) *Retriever {
	t.Helper()
	cal := market.NewStaticCalendar("")
	nyse, err := market.NewExchange("xnys", "NYSE", "America/New_York", "09:30", "16:00", nil)
	require.NoError(t, err)
	cal.Register(nyse)

	clock := func() time.Time { return testNow }
	policy := cache.NewPolicy(cal, cfg.Cache)
	policy.Now = clock

	syn := synthetic.NewSyntheticSource(quietLogger())
	r := NewRetriever(cfg, NewMultiSourceManager(providers, quietLogger()), syn, store, policy, metrics.NewMetrics(), quietLogger())
	r.now = clock
	return r
}

func TestValidationFailsBeforeAnyProvider(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(5)}
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(), primary)

	tests := []struct {
		name, ticker, timeframe, period string
	}{
		{"empty ticker", "", "1d", "1y"},
		{"bad characters", "AB$C", "1d", "1y"},
		{"bad timeframe", "AAPL", "4h", "1y"},
		{"bad period", "AAPL", "1d", "7y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.GetStockData(context.Background(), tt.ticker, tt.timeframe, tt.period)
			require.Error(t, err)
			assert.True(t, helpers.IsValidationError(err))
		})
	}

	_, err := r.GetFundamentals(context.Background(), "  ")
	assert.True(t, helpers.IsValidationError(err))
	assert.Zero(t, primary.calls.Load())
}

func TestPrimaryWriteThroughUnderCanonicalKey(t *testing.T) {
	store := storage.NewMemoryCacheStore()
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(30)}
	r := newTestRetriever(t, testConfig(), store, primary)
	ctx := context.Background()

	got, err := r.GetStockData(ctx, "abc.sto", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, "ABC.ST", got.Ticker)
	assert.Equal(t, models.SourcePrimary, got.Source)
	assert.Len(t, got.Bars, 30)

	assert.Equal(t, 1, store.Len())
	rec, found, err := store.Get(ctx, models.MCacheKey{Ticker: "ABC.ST", Timeframe: "1d", Period: "1y", Source: models.SourcePrimary})
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, testNow.Equal(rec.CachedAt))

	// Second request is a fresh cache hit; the provider is not called again.
	again, err := r.GetStockData(ctx, "ABC.ST", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, again.Source)
	assert.Len(t, again.Bars, 30)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Metrics.ResolvedTotal.WithLabelValues("price", "cache")))
}

func TestDefaultsForEmptyTimeframeAndPeriod(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(3)}
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(), primary)

	got, err := r.GetStockData(context.Background(), "AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultTimeframe, got.Timeframe)
	assert.Equal(t, models.DefaultPeriod, got.Period)
}

func TestSecondaryAfterPrimaryFailure(t *testing.T) {
	for _, kind := range []models.MFetchKind{models.FetchTimeout, models.FetchRateLimited, models.FetchEmpty, models.FetchMalformed, models.FetchNetwork, models.FetchUnsupported} {
		t.Run(string(kind), func(t *testing.T) {
			store := storage.NewMemoryCacheStore()
			primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: kind}
			secondary := &fakeProvider{name: "s", tag: models.SourceSecondary, kind: models.FetchOK, bars: bars(10)}
			r := newTestRetriever(t, testConfig(), store, secondary, primary)

			got, err := r.GetStockData(context.Background(), "VOLV-B.ST", "1d", "1y")
			require.NoError(t, err)
			assert.Equal(t, models.SourceSecondary, got.Source)
			assert.Equal(t, int32(1), primary.calls.Load())

			_, found, _ := store.Get(context.Background(), models.MCacheKey{Ticker: "VOLV-B.ST", Timeframe: "1d", Period: "1y", Source: models.SourceSecondary})
			assert.True(t, found)
		})
	}
}

func TestOKWithoutBarsCountsAsEmpty(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK}
	secondary := &fakeProvider{name: "s", tag: models.SourceSecondary, kind: models.FetchOK, bars: bars(2)}
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(), primary, secondary)

	got, err := r.GetStockData(context.Background(), "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSecondary, got.Source)
}

func TestSyntheticWhenEverythingFails(t *testing.T) {
	store := storage.NewMemoryCacheStore()
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchNetwork}
	secondary := &fakeProvider{name: "s", tag: models.SourceSecondary, kind: models.FetchTimeout}
	r := newTestRetriever(t, testConfig(), store, primary, secondary)

	got, err := r.GetStockData(context.Background(), "ERIC-B.ST", "1wk", "6mo")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSynthetic, got.Source)
	assert.Equal(t, "ERIC-B.ST", got.Ticker)
	assert.NotEmpty(t, got.Bars)
	assert.Zero(t, store.Len(), "synthetic data is never cached")
}

func TestProviderTimeoutMovesOn(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, block: true}
	secondary := &fakeProvider{name: "s", tag: models.SourceSecondary, kind: models.FetchOK, bars: bars(4)}
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(), primary, secondary)
	r.Timeout = 20 * time.Millisecond

	start := time.Now()
	got, err := r.GetStockData(context.Background(), "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSecondary, got.Source)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAbandonedRequestFinishesInFlightFetch(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(6), delay: 100 * time.Millisecond}
	secondary := &fakeProvider{name: "s", tag: models.SourceSecondary, kind: models.FetchOK, bars: bars(3)}
	store := storage.NewMemoryCacheStore()
	r := newTestRetriever(t, testConfig(), store, primary, secondary)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	got, err := r.GetStockData(ctx, "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourcePrimary, got.Source)
	assert.Len(t, got.Bars, 6)
	assert.Equal(t, 1, store.Len(), "the finished fetch is cached")
	assert.Zero(t, secondary.calls.Load())
}

func TestCancelledRequestStartsNoProvider(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(6)}
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(), primary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := r.GetStockData(ctx, "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSynthetic, got.Source)
	assert.Zero(t, primary.calls.Load())
}

func TestStaleCacheBeforeSynthetic(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T, store *storage.MemoryCacheStore) {
		r := newTestRetriever(t, testConfig(), store)
		r.now = func() time.Time { return testNow.Add(-48 * time.Hour) }
		r.write(ctx, models.MCacheKey{Ticker: "AAPL", Timeframe: "1d", Period: "1y", Source: models.SourcePrimary},
			models.MPriceSeries{Ticker: "AAPL", Timeframe: "1d", Period: "1y", Bars: bars(7), Source: models.SourcePrimary})
	}

	t.Run("served when enabled", func(t *testing.T) {
		store := storage.NewMemoryCacheStore()
		seed(t, store)
		primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchNetwork}
		r := newTestRetriever(t, testConfig(), store, primary)

		got, err := r.GetStockData(ctx, "AAPL", "1d", "1y")
		require.NoError(t, err)
		assert.Equal(t, models.SourceCache, got.Source)
		assert.True(t, got.Stale)
		assert.Len(t, got.Bars, 7)
		assert.Equal(t, int32(1), primary.calls.Load(), "stale rows still trigger a refetch")
	})

	t.Run("synthetic when disabled", func(t *testing.T) {
		store := storage.NewMemoryCacheStore()
		seed(t, store)
		cfg := testConfig()
		cfg.Cache.ServeStaleOnFailure = false
		r := newTestRetriever(t, cfg, store, &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchNetwork})

		got, err := r.GetStockData(ctx, "AAPL", "1d", "1y")
		require.NoError(t, err)
		assert.Equal(t, models.SourceSynthetic, got.Source)
	})

	t.Run("live data wins over stale rows", func(t *testing.T) {
		store := storage.NewMemoryCacheStore()
		seed(t, store)
		r := newTestRetriever(t, testConfig(), store, &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(9)})

		got, err := r.GetStockData(ctx, "AAPL", "1d", "1y")
		require.NoError(t, err)
		assert.Equal(t, models.SourcePrimary, got.Source)
		assert.Len(t, got.Bars, 9)
	})
}

func TestStoreFailureIsAMiss(t *testing.T) {
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(5)}
	r := newTestRetriever(t, testConfig(), failingStore{}, primary)

	got, err := r.GetStockData(context.Background(), "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourcePrimary, got.Source)
	assert.Equal(t, 1, r.ErrorCounts()["cache get"])
	assert.Equal(t, 1, r.ErrorCounts()["cache put"])
}

func TestUnreadableCacheRowIsIgnored(t *testing.T) {
	store := storage.NewMemoryCacheStore()
	key := models.MCacheKey{Ticker: "AAPL", Timeframe: "1d", Period: "1y", Source: models.SourcePrimary}
	require.NoError(t, store.Put(context.Background(), models.MCacheRecord{Key: key, Blob: []byte("{not json"), CachedAt: testNow}))

	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK, bars: bars(3)}
	r := newTestRetriever(t, testConfig(), store, primary)

	got, err := r.GetStockData(context.Background(), "AAPL", "1d", "1y")
	require.NoError(t, err)
	assert.Equal(t, models.SourcePrimary, got.Source)
}

func TestFundamentalsChain(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryCacheStore()
	primary := &fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchOK,
		fund: models.MFundamentals{PERatio: null.FloatFrom(12), ProfitMargin: null.FloatFrom(0.2)}}
	r := newTestRetriever(t, testConfig(), store, primary)

	got, err := r.GetFundamentals(ctx, "volv-b.sto")
	require.NoError(t, err)
	assert.Equal(t, "VOLV-B.ST", got.Ticker)
	assert.Equal(t, models.SourcePrimary, got.Source)
	assert.Equal(t, 12.0, got.PERatio.Float64)

	_, found, _ := store.Get(ctx, models.FundamentalsKey("VOLV-B.ST", models.SourcePrimary))
	assert.True(t, found)

	// Fresh within the flat TTL, even though the market state changes.
	r.Policy.Now = func() time.Time { return testNow.Add(20 * time.Hour) }
	cached, err := r.GetFundamentals(ctx, "VOLV-B.ST")
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, cached.Source)
	assert.Equal(t, int32(1), primary.calls.Load())

	// Past the TTL with the provider down: stale row.
	primary.kind = models.FetchNetwork
	r.Policy.Now = func() time.Time { return testNow.Add(25 * time.Hour) }
	stale, err := r.GetFundamentals(ctx, "VOLV-B.ST")
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, stale.Source)
	assert.True(t, stale.Stale)
}

func TestFundamentalsSyntheticFallback(t *testing.T) {
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore(),
		&fakeProvider{name: "p", tag: models.SourcePrimary, kind: models.FetchRateLimited})

	got, err := r.GetFundamentals(context.Background(), "HM-B.ST")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSynthetic, got.Source)
	assert.Equal(t, "HM-B.ST", got.Ticker)
}

func TestSyntheticIsDeterministicThroughRetriever(t *testing.T) {
	r := newTestRetriever(t, testConfig(), storage.NewMemoryCacheStore())
	a, err := r.GetStockData(context.Background(), "INVE-B.ST", "1d", "3mo")
	require.NoError(t, err)
	b, err := r.GetStockData(context.Background(), "inve-b.st", "1d", "3mo")
	require.NoError(t, err)
	assert.Equal(t, a.Bars, b.Bars)
}
