package datasource

import (
	"context"
	"sort"
	"time"

	"stock-screener/src/analysis/core"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/metrics"
	"stock-screener/src/models"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchDelay separates worker starts in a batch run.
const DefaultBatchDelay = 500 * time.Millisecond

// Screener runs the single-ticker pipeline over a list of tickers on a
// bounded worker pool.
type Screener struct {
	Analyzer interfaces.ITickerAnalyzer
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Workers  int
	Delay    time.Duration
}

// -----------------------------------------------------------------------------

func NewScreener(cfg *models.MConfig, analyzer interfaces.ITickerAnalyzer, m *metrics.Metrics, log *logger.Logger) *Screener {
	workers := cfg.DataSource.BatchWorkers
	if workers <= 0 {
		workers = 1
	}
	delay := time.Duration(cfg.DataSource.BatchDelayMillis) * time.Millisecond
	if delay < 0 {
		delay = DefaultBatchDelay
	}
	return &Screener{
		Analyzer: analyzer,
		Metrics:  m,
		Logger:   log,
		Workers:  workers,
		Delay:    delay,
	}
}

// -----------------------------------------------------------------------------

// Run analyzes every ticker and returns the ranked summary. A failing ticker
// becomes a row with Error set. Cancelling ctx stops tickers that have not
// started yet; the partial summary is returned together with ctx.Err().
func (s *Screener) Run(ctx context.Context, tickers []string, timeframe, period string) (models.MScreenSummary, error) {
	started := time.Now()
	results := make([]models.MScreenResult, len(tickers))

	var g errgroup.Group
	g.SetLimit(s.Workers)

	var runErr error
	for i, t := range tickers {
		if i > 0 && s.Delay > 0 {
			timer := time.NewTimer(s.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			for j := i; j < len(tickers); j++ {
				results[j] = models.MScreenResult{Ticker: tickers[j], Error: "cancelled"}
			}
			break
		}

		g.Go(func() error {
			// A ticker still waiting for a worker when ctx ends never starts.
			// One that does start finishes its pipeline.
			if err := ctx.Err(); err != nil {
				results[i] = models.MScreenResult{Ticker: t, Error: "cancelled"}
				return err
			}
			a, err := s.Analyzer.AnalyzeTicker(context.WithoutCancel(ctx), t, timeframe, period)
			if err != nil {
				s.Logger.Warning("Screening %s failed: %v", t, err)
				results[i] = models.MScreenResult{Ticker: t, Error: err.Error()}
				return nil
			}
			results[i] = a.ScreenResult()
			return nil
		})
	}
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	summary := Summarize(results)
	summary.StartedAt = started.Unix()
	summary.Elapsed = time.Since(started).Seconds()
	s.Metrics.ObserveScreen(summary)
	s.Logger.Info("Screened %d tickers (%d failed) in %.1fs", summary.Total, summary.Failed, summary.Elapsed)
	return summary, runErr
}

// -----------------------------------------------------------------------------

// Summarize ranks results by tech score (failures last) and aggregates counts.
func Summarize(results []models.MScreenResult) models.MScreenSummary {
	ranked := append([]models.MScreenResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ei, ej := ranked[i].Error != "", ranked[j].Error != ""
		if ei != ej {
			return !ei
		}
		return ranked[i].TechScore > ranked[j].TechScore
	})

	summary := models.MScreenSummary{
		Results:  ranked,
		Total:    len(ranked),
		BySource: make(map[models.MSourceTag]int),
		ByAction: make(map[models.MAction]int),
	}

	var scores []float64
	for _, r := range ranked {
		if r.Error != "" {
			summary.Failed++
			continue
		}
		summary.BySource[r.Source]++
		summary.ByAction[r.Action]++
		scores = append(scores, r.TechScore)
	}
	summary.MeanScore, summary.StdScore = core.CalculateMeanStd(scores)
	return summary
}
