package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/market"
	"stock-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(nil, "scheduler-test")
	l.SetOutput(io.Discard)
	return l
}

type recordingScreener struct {
	mu    sync.Mutex
	calls [][]string
	hold  chan struct{}
}

func (r *recordingScreener) Run(ctx context.Context, tickers []string, timeframe, period string) (models.MScreenSummary, error) {
	r.mu.Lock()
	r.calls = append(r.calls, tickers)
	r.mu.Unlock()
	if r.hold != nil {
		<-r.hold
	}
	out := models.MScreenSummary{Total: len(tickers)}
	for _, t := range tickers {
		out.Results = append(out.Results, models.MScreenResult{Ticker: t, Action: models.ActionHold})
	}
	return out, nil
}

type recordingPublisher struct {
	summaries []models.MScreenSummary
}

func (p *recordingPublisher) Publish(s models.MScreenSummary) {
	p.summaries = append(p.summaries, s)
}

// prunableStore records prune cutoffs.
type prunableStore struct {
	cutoffs []time.Time
}

func (p *prunableStore) Name() string      { return "prunable" }
func (p *prunableStore) Initialize() error { return nil }
func (p *prunableStore) Close() error      { return nil }
func (p *prunableStore) Get(context.Context, models.MCacheKey) (models.MCacheRecord, bool, error) {
	return models.MCacheRecord{}, false, nil
}
func (p *prunableStore) Put(context.Context, models.MCacheRecord) error { return nil }
func (p *prunableStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 3, nil
}

func newWarmup(t *testing.T, now time.Time) (*WarmupScheduler, *recordingScreener, *recordingPublisher, *prunableStore) {
	t.Helper()
	cal := market.NewStaticCalendar("")
	nyse, err := market.NewExchange("xnys", "NYSE", "America/New_York", "09:30", "16:00", nil)
	require.NoError(t, err)
	cal.Register(nyse)

	cfg := &models.MConfig{}
	cfg.DataSource.Universe = []string{"AAPL", "MSFT"}
	cfg.Storage.RetentionDays = 30
	cfg.Scheduler.Schedule = "*/15 * * * *"

	scr := &recordingScreener{}
	pub := &recordingPublisher{}
	store := &prunableStore{}
	w := NewWarmupScheduler(cfg, scr, market.NewMarketScheduler(cal, cfg.DataSource.Universe, quietLogger()), store, pub, quietLogger())
	w.now = func() time.Time { return now }
	return w, scr, pub, store
}

func TestRunOnceWhileMarketOpen(t *testing.T) {
	now := time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC) // 10:00 New York
	w, scr, pub, store := newWarmup(t, now)

	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	require.Len(t, scr.calls, 1)
	assert.Equal(t, []string{"AAPL", "MSFT"}, scr.calls[0])
	require.Len(t, pub.summaries, 1)
	assert.Equal(t, 2, pub.summaries[0].Total)

	require.Len(t, store.cutoffs, 1)
	assert.True(t, now.AddDate(0, 0, -30).Equal(store.cutoffs[0]))
}

func TestRunOnceSkipsClosedMarket(t *testing.T) {
	sunday := time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)
	w, scr, pub, store := newWarmup(t, sunday)

	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, scr.calls)
	assert.Empty(t, pub.summaries)
	assert.Len(t, store.cutoffs, 1, "pruning runs regardless of market state")
}

func TestRunOnceSkipsOverlap(t *testing.T) {
	w, scr, _, _ := newWarmup(t, time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC))
	scr.hold = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.RunOnce(context.Background())
	}()

	require.Eventually(t, func() bool {
		scr.mu.Lock()
		defer scr.mu.Unlock()
		return len(scr.calls) == 1
	}, time.Second, 5*time.Millisecond)

	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)

	close(scr.hold)
	<-done
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w, _, _, _ := newWarmup(t, time.Now())
	w.Config.Scheduler.Schedule = "not a schedule"
	assert.Error(t, w.Start())
}

func TestStartStop(t *testing.T) {
	w, _, _, _ := newWarmup(t, time.Now())
	require.NoError(t, w.Start())
	assert.False(t, w.NextRun().IsZero())
	w.Stop()
	assert.True(t, w.NextRun().IsZero())
}
