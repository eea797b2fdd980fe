package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-screener/src/market"
	"stock-screener/src/scheduler"
	"stock-screener/src/server"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// serveCmd runs the HTTP API, the watchlist feed and the optional warm-up job.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket watchlist feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := server.NewAPIServer(app.Config.MConfig, app.Facade, app.Screener, app.Retriever, app.Metrics, app.Logger.Named("Server"))

		var warmup *scheduler.WarmupScheduler
		if app.Config.Scheduler.Enabled {
			ms := market.NewMarketScheduler(app.Calendar, app.Config.DataSource.Universe, app.Logger.Named("MarketScheduler"))
			warmup = scheduler.NewWarmupScheduler(app.Config.MConfig, app.Screener, ms, app.Store, srv, app.Logger.Named("Warmup"))
			if err := warmup.Start(); err != nil {
				return err
			}
			defer warmup.Stop()
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
			app.Logger.Info("Shutting down...")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(ctx)
	},
}

// -----------------------------------------------------------------------------

var stockCmd = &cobra.Command{
	Use:   "stock <ticker>",
	Short: "Print the price series for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()

		series, err := app.Facade.GetStockData(cmd.Context(), args[0], timeframe, period)
		if err != nil {
			return err
		}
		return printJSON(series)
	},
}

// -----------------------------------------------------------------------------

var signalsCmd = &cobra.Command{
	Use:   "signals <ticker>",
	Short: "Print signals, tech score, fundamentals verdict and final action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()

		analysis, err := app.Facade.AnalyzeTicker(cmd.Context(), args[0], timeframe, period)
		if err != nil {
			return err
		}
		return printJSON(analysis)
	},
}

// -----------------------------------------------------------------------------

var screenCmd = &cobra.Command{
	Use:   "screen [tickers...]",
	Short: "Screen tickers (or the configured universe) and print the ranked summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := setupApp(configPath)
		if err != nil {
			return err
		}
		defer app.Close()

		tickers := args
		if len(tickers) == 0 {
			tickers = app.Config.DataSource.Universe
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := app.Screener.Run(ctx, tickers, timeframe, period)
		if perr := printJSON(summary); perr != nil {
			return perr
		}
		return err
	},
}

// -----------------------------------------------------------------------------

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
