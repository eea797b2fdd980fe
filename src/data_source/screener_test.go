package datasource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stock-screener/src/helpers"
	"stock-screener/src/metrics"
	"stock-screener/src/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzer returns canned analyses and tracks concurrency.
type fakeAnalyzer struct {
	results  map[string]models.MTickerAnalysis
	hold     time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (f *fakeAnalyzer) AnalyzeTicker(ctx context.Context, ticker, timeframe, period string) (models.MTickerAnalysis, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.seen = append(f.seen, ticker)
	f.mu.Unlock()

	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	a, ok := f.results[ticker]
	if !ok {
		return models.MTickerAnalysis{}, helpers.NewValidationError("ticker %q is malformed", ticker)
	}
	return a, nil
}

func analysisFor(ticker string, score float64, action models.MAction, source models.MSourceTag) models.MTickerAnalysis {
	return models.MTickerAnalysis{
		Ticker:  ticker,
		Source:  source,
		Signals: models.MSignalSet{Ticker: ticker, TechScore: score, LastClose: 10},
		Action:  action,
	}
}

func newTestScreener(a *fakeAnalyzer, workers int, delay time.Duration) *Screener {
	cfg := testConfig()
	cfg.DataSource.BatchWorkers = workers
	cfg.DataSource.BatchDelayMillis = int(delay / time.Millisecond)
	return NewScreener(cfg, a, metrics.NewMetrics(), quietLogger())
}

func TestScreenerRanksAndSummarizes(t *testing.T) {
	a := &fakeAnalyzer{results: map[string]models.MTickerAnalysis{
		"A.ST": analysisFor("A.ST", 40, models.ActionHold, models.SourcePrimary),
		"B.ST": analysisFor("B.ST", 90, models.ActionBuy, models.SourceCache),
		"C.ST": analysisFor("C.ST", 20, models.ActionSell, models.SourceSynthetic),
	}}
	s := newTestScreener(a, 2, 0)

	summary, err := s.Run(context.Background(), []string{"A.ST", "BAD$", "B.ST", "C.ST"}, "1d", "1y")
	require.NoError(t, err)

	require.Len(t, summary.Results, 4)
	assert.Equal(t, []string{"B.ST", "A.ST", "C.ST", "BAD$"}, []string{
		summary.Results[0].Ticker, summary.Results[1].Ticker, summary.Results[2].Ticker, summary.Results[3].Ticker,
	})
	assert.NotEmpty(t, summary.Results[3].Error)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.ByAction[models.ActionBuy])
	assert.Equal(t, 1, summary.BySource[models.SourceSynthetic])
	assert.InDelta(t, 50.0, summary.MeanScore, 1e-9)
	assert.Greater(t, summary.StdScore, 0.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.ScreenRuns))
}

func TestScreenerRespectsWorkerLimit(t *testing.T) {
	results := make(map[string]models.MTickerAnalysis)
	var tickers []string
	for _, tk := range []string{"A", "B", "C", "D", "E", "F"} {
		results[tk] = analysisFor(tk, 50, models.ActionHold, models.SourcePrimary)
		tickers = append(tickers, tk)
	}
	a := &fakeAnalyzer{results: results, hold: 30 * time.Millisecond}
	s := newTestScreener(a, 2, 0)

	summary, err := s.Run(context.Background(), tickers, "1d", "1y")
	require.NoError(t, err)
	assert.Zero(t, summary.Failed)
	assert.LessOrEqual(t, a.peak.Load(), int32(2))
	assert.Len(t, a.seen, 6)
}

func TestScreenerThrottlesStarts(t *testing.T) {
	a := &fakeAnalyzer{results: map[string]models.MTickerAnalysis{
		"A": analysisFor("A", 1, models.ActionSell, models.SourcePrimary),
		"B": analysisFor("B", 1, models.ActionSell, models.SourcePrimary),
		"C": analysisFor("C", 1, models.ActionSell, models.SourcePrimary),
	}}
	s := newTestScreener(a, 4, 25*time.Millisecond)

	start := time.Now()
	_, err := s.Run(context.Background(), []string{"A", "B", "C"}, "1d", "1y")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestScreenerCancellationSkipsQueuedTickers(t *testing.T) {
	a := &fakeAnalyzer{results: map[string]models.MTickerAnalysis{
		"A": analysisFor("A", 10, models.ActionSell, models.SourcePrimary),
	}}
	s := newTestScreener(a, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.Run(ctx, []string{"A", "B", "C"}, "1d", "1y")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 3, summary.Failed)
	assert.Empty(t, a.seen)
	for _, r := range summary.Results {
		assert.Equal(t, "cancelled", r.Error)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.MeanScore)
	assert.NotNil(t, summary.ByAction)
}

// gatedAnalyzer blocks every call until release is closed and records whether
// the context it was handed had been cancelled by then.
type gatedAnalyzer struct {
	started  chan string
	release  chan struct{}
	mu       sync.Mutex
	ctxAlive map[string]bool
}

func (g *gatedAnalyzer) AnalyzeTicker(ctx context.Context, ticker, timeframe, period string) (models.MTickerAnalysis, error) {
	g.started <- ticker
	<-g.release
	g.mu.Lock()
	g.ctxAlive[ticker] = ctx.Err() == nil
	g.mu.Unlock()
	return analysisFor(ticker, 40, models.ActionBuy, models.SourcePrimary), nil
}

func TestScreenerStartedTickerSurvivesCancellation(t *testing.T) {
	a := &gatedAnalyzer{
		started:  make(chan string, 3),
		release:  make(chan struct{}),
		ctxAlive: make(map[string]bool),
	}
	cfg := testConfig()
	cfg.DataSource.BatchWorkers = 1
	cfg.DataSource.BatchDelayMillis = 0
	s := NewScreener(cfg, a, metrics.NewMetrics(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		assert.Equal(t, "A", <-a.started)
		cancel()
		close(a.release)
	}()

	summary, err := s.Run(ctx, []string{"A", "B", "C"}, "1d", "1y")
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, summary.Results, 3)

	// A was running when the batch was abandoned and still completes.
	assert.Equal(t, "A", summary.Results[0].Ticker)
	assert.Empty(t, summary.Results[0].Error)
	assert.Equal(t, models.ActionBuy, summary.Results[0].Action)
	assert.True(t, a.ctxAlive["A"])

	assert.Equal(t, 2, summary.Failed)
	for _, r := range summary.Results[1:] {
		assert.Equal(t, "cancelled", r.Error)
	}
	assert.Len(t, a.started, 0)
}
