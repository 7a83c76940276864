package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trading-signal-bot/config"
	"trading-signal-bot/internal/cache"
	"trading-signal-bot/internal/database"
	"trading-signal-bot/internal/engine"
	"trading-signal-bot/internal/events"
)

// Server exposes read-only projections of the engine state over REST
// and streams engine events over a websocket.
type Server struct {
	cfg        *config.Config
	repo       *database.Repository
	snapshots  *cache.SnapshotCache // may be nil
	engine     *engine.Engine
	hub        *WSHub
	router     *gin.Engine
	httpServer *http.Server
	log        zerolog.Logger
}

func NewServer(cfg *config.Config, repo *database.Repository, snapshots *cache.SnapshotCache, eng *engine.Engine, bus *events.EventBus, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.ServerConfig.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.ServerConfig.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		cfg:       cfg,
		repo:      repo,
		snapshots: snapshots,
		engine:    eng,
		hub:       InitWebSocket(bus),
		router:    router,
		log:       log.With().Str("component", "api").Logger(),
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/symbols", s.handleSymbols)
		api.GET("/settings", s.handleSettings)
		api.GET("/candles/:symbol/:interval", s.handleCandles)
		api.GET("/scores/:symbol", s.handleScores)
		api.GET("/scores/:symbol/history", s.handleScoreHistory)
		api.GET("/positions", s.handlePositions)
		api.GET("/trades", s.handleTrades)
		api.GET("/stats", s.handleStats)
		api.GET("/signals", s.handleSignals)
	}
	s.router.GET("/ws", s.handleWebSocket)
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.ServerConfig.Host, s.cfg.ServerConfig.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
