package main

import (
	"fmt"
	"os"

	"stock-screener/src/analysis"
	"stock-screener/src/cache"
	"stock-screener/src/config"
	datasource "stock-screener/src/data_source"
	"stock-screener/src/data_source/synthetic"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/market"
	"stock-screener/src/metrics"
	"stock-screener/src/network"
	"stock-screener/src/storage"
)

// App holds every long-lived component, built once per process.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Calendar  *market.Calendar
	Store     interfaces.ICacheStore
	Metrics   *metrics.Metrics
	Retriever *datasource.Retriever
	Facade    *analysis.AnalysisFacade
	Screener  *datasource.Screener
}

// -----------------------------------------------------------------------------

// setupApp wires config -> logger -> calendar -> store -> providers ->
// retriever -> facade -> screener.
func setupApp(path string) (*App, error) {
	conf, err := config.NewConfig(path)
	if err != nil {
		return nil, err
	}

	appLogger := logger.NewLogger(conf, conf.Name)
	// Stdout is reserved for command output.
	appLogger.SetOutput(os.Stderr)

	cal, err := market.NewCalendar(conf.Market, appLogger.Named("Calendar"))
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}

	store, err := storage.NewCacheStore(conf.MConfig, appLogger.Named("CacheStore"))
	if err != nil {
		return nil, fmt.Errorf("cache store: %w", err)
	}
	appLogger.Info("Cache store: %s", store.Name())

	netMgr := network.NewNetworkManager(conf.MConfig, appLogger.Named("NetworkManager"))
	sources, err := datasource.BuildSources(conf.MConfig, netMgr, appLogger)
	if err != nil {
		store.Close()
		return nil, err
	}
	if len(sources) == 0 {
		appLogger.Warning("No live data sources configured. Every request will be served from cache or synthetic data.")
	}

	m := metrics.NewMetrics()
	retriever := datasource.NewRetriever(
		conf.MConfig,
		datasource.NewMultiSourceManager(sources, appLogger.Named("MultiSourceManager")),
		synthetic.NewSyntheticSource(appLogger.Named("Synthetic")),
		store,
		cache.NewPolicy(cal, conf.Cache),
		m,
		appLogger.Named("Retriever"),
	)
	facade := analysis.NewAnalysisFacade(conf.MConfig, retriever, appLogger.Named("Analysis"))

	return &App{
		Config:    conf,
		Logger:    appLogger,
		Calendar:  cal,
		Store:     store,
		Metrics:   m,
		Retriever: retriever,
		Facade:    facade,
		Screener:  datasource.NewScreener(conf.MConfig, facade, m, appLogger.Named("Screener")),
	}, nil
}

// -----------------------------------------------------------------------------

func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Warning("Closing cache store: %v", err)
	}
}
