// Package api exposes a read-only operator surface: loop status, open
// positions, the latest scan, recent trades, and a websocket event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/bot"
	"spot-rotation-bot/internal/database"
	"spot-rotation-bot/internal/events"
)

// Config holds the HTTP server settings.
type Config struct {
	Enabled bool
	Port    int
}

// Server represents the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	bot        *bot.Bot
	repo       *database.Repository
	hub        *Hub
	logger     zerolog.Logger
}

// NewServer wires the routes. repo may be nil when persistence is off.
func NewServer(cfg Config, b *bot.Bot, repo *database.Repository, bus *events.Bus, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	s := &Server{
		router: router,
		bot:    b,
		repo:   repo,
		hub:    NewHub(logger),
		logger: logger.With().Str("component", "api").Logger(),
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: router,
		},
	}

	bus.SubscribeAll(s.hub.BroadcastEvent)

	router.GET("/api/health", s.handleHealth)
	router.GET("/api/status", s.handleStatus)
	router.GET("/api/positions", s.handlePositions)
	router.GET("/api/scan", s.handleScan)
	router.GET("/api/trades", s.handleTrades)
	router.GET("/ws", s.handleWebSocket)

	return s
}

// Start runs the hub and the HTTP listener.
func (s *Server) Start() {
	go s.hub.Run()
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("api server stopped")
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.bot.Status())
}

func (s *Server) handlePositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.bot.Ledger().Open()})
}

func (s *Server) handleScan(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"evaluations": s.bot.Status().Evaluations})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence disabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	trades, err := s.repo.RecentTrades(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("trade query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}
