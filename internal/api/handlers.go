package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
		status = "degraded"
		dbStatus = err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"database":   dbStatus,
		"ws_clients": s.hub.GetClientCount(),
	})
}

func (s *Server) handleSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbols":   s.cfg.AnalysisConfig.Symbols,
		"intervals": s.cfg.AnalysisConfig.Intervals,
	})
}

func (s *Server) handleSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"analysis": s.cfg.AnalysisConfig,
		"trading":  s.cfg.TradingConfig,
		"alerts":   s.cfg.AlertsConfig,
	})
}

func (s *Server) handleCandles(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.Param("interval")
	limit := intQuery(c, "limit", 100)

	candles, err := s.repo.GetCandles(c.Request.Context(), symbol, interval, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
	})
}

// handleScores serves the latest snapshot for a symbol: Redis first,
// then the engine's in-memory copy, then the database.
func (s *Server) handleScores(c *gin.Context) {
	symbol := c.Param("symbol")
	ctx := c.Request.Context()

	if s.snapshots != nil {
		if snap, err := s.snapshots.Get(ctx, symbol); err == nil && snap != nil {
			c.JSON(http.StatusOK, snap)
			return
		}
	}

	if snap, ok := s.engine.LatestSnapshot(symbol); ok {
		c.JSON(http.StatusOK, snap)
		return
	}

	rows, err := s.repo.GetScoreSnapshots(ctx, symbol, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scores for symbol"})
		return
	}
	c.JSON(http.StatusOK, rows[0])
}

func (s *Server) handleScoreHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := intQuery(c, "limit", 100)

	rows, err := s.repo.GetScoreSnapshots(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"snapshots": rows,
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	positions, err := s.repo.ListOpenPositions(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleTrades(c *gin.Context) {
	limit := intQuery(c, "limit", 50)

	trades, err := s.repo.GetRecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.repo.GetTradingStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleSignals(c *gin.Context) {
	limit := intQuery(c, "limit", 50)

	signals, err := s.repo.GetRecentSignals(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
