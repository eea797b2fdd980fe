package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/metrics"
	"stock-screener/src/models"
	"stock-screener/src/utils"

	"github.com/gin-gonic/gin"
)

// maxScreenTickers bounds one POST /api/screen request.
const maxScreenTickers = 200

// historySize is how many screen runs /api/screen/history keeps.
const historySize = 50

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config   *models.MConfig
	Facade   interfaces.IAnalysisFacade
	Screener interfaces.IScreener
	Health   interfaces.IHealthReporter
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	engine   *gin.Engine
	srv      *http.Server

	// WebSocket clients, owned by the hub goroutine
	clients     map[*Client]struct{}
	connections atomic.Int32
	broadcast   chan *models.MWatchlistUpdate
	register    chan *Client
	unregister  chan *Client
	replies     chan reply
	quit        chan struct{}
	stopOnce    sync.Once

	// Last published watchlist snapshot
	latestState *models.MWatchlistUpdate
	stateMutex  sync.RWMutex

	// Recent screen runs, without per-ticker rows
	history *utils.RingBuffer[models.MScreenSummary]
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(
	cfg *models.MConfig,
	facade interfaces.IAnalysisFacade,
	screener interfaces.IScreener,
	health interfaces.IHealthReporter,
	m *metrics.Metrics,
	log *logger.Logger,
) *APIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:   cfg,
		Facade:   facade,
		Screener: screener,
		Health:   health,
		Metrics:  m,
		Logger:   log,
		engine:   gin.New(),
		clients:  make(map[*Client]struct{}),
		// Buffered so publishers never wait on the hub
		broadcast:  make(chan *models.MWatchlistUpdate, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply),
		quit:       make(chan struct{}),
		latestState: &models.MWatchlistUpdate{
			Type:    "SNAPSHOT",
			Results: make(map[string]models.MScreenResult),
		},
		history: utils.NewRingBuffer[models.MScreenSummary](historySize),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// CORS for local dashboards
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.Logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/stock/:ticker", s.getStock)
	api.GET("/fundamentals/:ticker", s.getFundamentals)
	api.GET("/indicators/:ticker", s.getIndicators)
	api.GET("/signals/:ticker", s.getSignals)
	api.POST("/screen", s.postScreen)
	api.GET("/screen/history", s.getScreenHistory)
	api.GET("/config", s.getConfig)
	api.GET("/health", s.getHealth)

	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for tests.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called.
func (s *APIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.srv = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop shuts the HTTP listener down and ends the hub loop.
func (s *APIServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.quit) })
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getStock(c *gin.Context) {
	series, err := s.Facade.GetStockData(c.Request.Context(), c.Param("ticker"), c.Query("timeframe"), c.Query("period"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getFundamentals(c *gin.Context) {
	f, err := s.Facade.GetFundamentals(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fundamentals": f,
		"verdict":      s.Facade.AnalyzeFundamentals(f),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getIndicators(c *gin.Context) {
	series, err := s.Facade.GetStockData(c.Request.Context(), c.Param("ticker"), c.Query("timeframe"), c.Query("period"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Facade.CalculateAllIndicators(series))
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSignals(c *gin.Context) {
	analysis, err := s.Facade.AnalyzeTicker(c.Request.Context(), c.Param("ticker"), c.Query("timeframe"), c.Query("period"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// -----------------------------------------------------------------------------

type screenRequest struct {
	Tickers   []string `json:"tickers" binding:"max=200,dive,required"`
	Timeframe string   `json:"timeframe"`
	Period    string   `json:"period"`
}

// -----------------------------------------------------------------------------

// postScreen runs a batch. An empty ticker list screens the configured universe.
func (s *APIServer) postScreen(c *gin.Context) {
	var req screenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timeframe != "" && !models.IsValidTimeframe(req.Timeframe) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported timeframe %q", req.Timeframe)})
		return
	}
	if req.Period != "" && !models.IsValidPeriod(req.Period) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported period %q", req.Period)})
		return
	}

	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = s.Config.DataSource.Universe
	}
	if len(tickers) > maxScreenTickers {
		tickers = tickers[:maxScreenTickers]
	}

	summary, err := s.Screener.Run(c.Request.Context(), tickers, req.Timeframe, req.Period)
	if err != nil {
		s.Logger.Warning("Screen request ended early: %v", err)
	}
	s.Publish(summary)
	c.JSON(http.StatusOK, summary)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	type sourceView struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		Tier string `json:"tier"`
	}
	sources := make([]sourceView, 0, len(s.Config.DataSource.Sources))
	for _, src := range s.Config.DataSource.Sources {
		sources = append(sources, sourceView{Name: src.Name, Kind: src.Kind, Tier: src.Tier})
	}

	c.JSON(http.StatusOK, gin.H{
		"timeframes":        models.Timeframes,
		"periods":           models.Periods,
		"default_timeframe": models.DefaultTimeframe,
		"default_period":    models.DefaultPeriod,
		"universe":          s.Config.DataSource.Universe,
		"sources":           sources,
	})
}

// -----------------------------------------------------------------------------

// getScreenHistory returns recent run summaries, newest first.
func (s *APIServer) getScreenHistory(c *gin.Context) {
	runs := s.history.GetAll()
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	body := gin.H{
		"status":        "ok",
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
		"screen_runs":   s.history.Size(),
	}
	if s.Health != nil {
		body["store"] = s.Health.StoreName()
		body["errors"] = s.Health.ErrorCounts()
	}
	c.JSON(http.StatusOK, body)
}
