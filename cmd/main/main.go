package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	timeframe  string
	period     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Stock screener: market-aware cached retrieval, indicators and signals",
	Long: `screener pulls price history and fundamentals through a cache-first
chain of providers, computes technical indicators and a composite score, and
serves the results over HTTP, a websocket watchlist feed and this CLI.`,
	SilenceUsage: true,
}

// -----------------------------------------------------------------------------

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&timeframe, "timeframe", "", "bar size: 1d, 1wk or 1mo")
	rootCmd.PersistentFlags().StringVar(&period, "period", "", "history length: 1mo, 3mo, 6mo, 1y, 2y, 5y or max")

	rootCmd.AddCommand(serveCmd, stockCmd, signalsCmd, screenCmd)
}

// -----------------------------------------------------------------------------

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
