package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/market"
	"stock-screener/src/models"
	"stock-screener/src/storage"

	"github.com/robfig/cron/v3"
)

// WarmupScheduler refreshes the configured universe on a cron schedule while
// at least one of its exchanges is open, and prunes old cache rows.
type WarmupScheduler struct {
	Config    *models.MConfig
	Screener  interfaces.IScreener
	Market    *market.MarketScheduler
	Store     interfaces.ICacheStore
	Publisher interfaces.IWatchlistPublisher
	Logger    *logger.Logger

	cron    *cron.Cron
	entryID cron.EntryID
	running atomic.Bool
	started bool
	mu      sync.Mutex
	now     func() time.Time
}

// -----------------------------------------------------------------------------

func NewWarmupScheduler(
	cfg *models.MConfig,
	screener interfaces.IScreener,
	ms *market.MarketScheduler,
	store interfaces.ICacheStore,
	pub interfaces.IWatchlistPublisher,
	log *logger.Logger,
) *WarmupScheduler {
	return &WarmupScheduler{
		Config:    cfg,
		Screener:  screener,
		Market:    ms,
		Store:     store,
		Publisher: pub,
		Logger:    log,
		cron:      cron.New(),
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------

// Start registers the job and starts the cron runner.
func (w *WarmupScheduler) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	id, err := w.cron.AddFunc(w.Config.Scheduler.Schedule, func() {
		if _, err := w.RunOnce(context.Background()); err != nil {
			w.Logger.Error("Warm-up run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register warm-up job %q: %w", w.Config.Scheduler.Schedule, err)
	}
	w.entryID = id
	w.cron.Start()
	w.started = true

	w.Logger.Info("Warm-up scheduled with %q for %d tickers", w.Config.Scheduler.Schedule, len(w.Config.DataSource.Universe))
	return nil
}

// -----------------------------------------------------------------------------

// Stop halts the runner and waits for a running job to finish.
func (w *WarmupScheduler) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	<-w.cron.Stop().Done()
	w.started = false
	w.Logger.Info("Warm-up scheduler stopped")
}

// -----------------------------------------------------------------------------

// NextRun returns the next scheduled run, zero when not started.
func (w *WarmupScheduler) NextRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return time.Time{}
	}
	return w.cron.Entry(w.entryID).Next
}

// -----------------------------------------------------------------------------

// RunOnce screens the universe if any of its markets is open. It reports
// whether a screen ran. Overlapping calls are skipped.
func (w *WarmupScheduler) RunOnce(ctx context.Context) (bool, error) {
	if !w.running.CompareAndSwap(false, true) {
		w.Logger.Info("Previous warm-up still running, skipping")
		return false, nil
	}
	defer w.running.Store(false)

	now := w.now()
	w.prune(ctx, now)

	if !w.Market.AnyMarketOpen(now) {
		w.Logger.Debug("No tracked market open at %s, skipping warm-up", now.Format(time.RFC3339))
		return false, nil
	}

	summary, err := w.Screener.Run(ctx, w.Config.DataSource.Universe, models.DefaultTimeframe, models.DefaultPeriod)
	if w.Publisher != nil {
		w.Publisher.Publish(summary)
	}
	if err != nil {
		return true, err
	}
	w.Logger.Info("Warm-up refreshed %d tickers (%d failed)", summary.Total-summary.Failed, summary.Failed)
	return true, nil
}

// -----------------------------------------------------------------------------

func (w *WarmupScheduler) prune(ctx context.Context, now time.Time) {
	days := w.Config.Storage.RetentionDays
	if days <= 0 {
		return
	}
	pruner, ok := w.Store.(storage.Pruner)
	if !ok {
		return
	}
	cutoff := now.AddDate(0, 0, -days)
	n, err := pruner.Prune(ctx, cutoff)
	if err != nil {
		w.Logger.Warning("Pruning cache rows before %s failed: %v", cutoff.Format("2006-01-02"), err)
		return
	}
	if n > 0 {
		w.Logger.Info("Pruned %d cache rows older than %d days", n, days)
	}
}
