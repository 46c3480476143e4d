// Package server exposes the duel engine over HTTP, websockets and gRPC.
package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/repository"
)

const (
	commandTimeout = 10 * time.Second
	recentResults  = 10
)

// Server routes HTTP and websocket traffic to the engine and records
// finished games in the stats store.
type Server struct {
	engine     *game.Engine
	stats      repository.StatsStore
	hub        *Hub
	logger     *zap.Logger
	difficulty ai.Difficulty
}

// New creates a server and installs its notification and game-over
// handlers on engine. Run the hub with Hub().Run before serving.
func New(engine *game.Engine, stats repository.StatsStore, difficulty ai.Difficulty, logger *zap.Logger) *Server {
	s := &Server{
		engine:     engine,
		stats:      stats,
		hub:        NewHub(engine, logger),
		logger:     logger,
		difficulty: difficulty,
	}
	engine.SetNotificationHandler(s.hub.Notify)
	engine.SetGameOverHandler(s.recordResult)
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "games": len(s.engine.GameIDs())})
	})

	api := router.Group("/api")
	{
		api.GET("/games", s.listGames)
		api.POST("/games", s.createGame)
		api.GET("/games/:id", s.getGame)
		api.DELETE("/games/:id", s.deleteGame)
		api.GET("/games/:id/log", s.getLog)
		api.POST("/games/:id/commands", s.postCommand)
		api.GET("/stats", s.getStats)
	}

	router.GET("/ws/:id", s.serveWS)
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger == nil {
			return
		}
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

type createGameRequest struct {
	Difficulty string   `json:"difficulty"`
	Elements   []string `json:"elements" binding:"required,min=1,max=2"`
}

func (s *Server) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	difficulty := s.difficulty
	if req.Difficulty != "" {
		d, err := ai.ParseDifficulty(req.Difficulty)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		difficulty = d
	}
	elements, err := parseElements(req.Elements)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	id := uuid.NewString()
	if err := s.engine.CreateGame(ctx, id, difficulty); err != nil {
		writeError(c, err)
		return
	}
	if err := s.setupGame(ctx, id, elements); err != nil {
		_ = s.engine.RemoveGame(id)
		writeError(c, err)
		return
	}

	view, err := s.engine.View(id, rules.SidePlayer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "view": view, "checksum": game.ComputeChecksum(view)})
}

func (s *Server) setupGame(ctx context.Context, id string, elements []mana.Element) error {
	if err := s.engine.ChooseElements(ctx, id, elements); err != nil {
		return err
	}
	return s.engine.StartGame(ctx, id)
}

func (s *Server) listGames(c *gin.Context) {
	ids := s.engine.GameIDs()
	sort.Strings(ids)
	c.JSON(http.StatusOK, gin.H{"games": ids})
}

func (s *Server) getGame(c *gin.Context) {
	view, err := s.engine.View(c.Param("id"), rules.SidePlayer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view, "checksum": game.ComputeChecksum(view)})
}

func (s *Server) deleteGame(c *gin.Context) {
	if err := s.engine.RemoveGame(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getLog(c *gin.Context) {
	since := 0
	if raw := c.Query("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
			return
		}
		since = n
	}
	entries, err := s.engine.Log(c.Param("id"), since)
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []game.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) postCommand(c *gin.Context) {
	var cmd Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	if err := s.dispatch(ctx, id, cmd); err != nil {
		writeError(c, err)
		return
	}
	view, err := s.engine.View(id, rules.SidePlayer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view, "checksum": game.ComputeChecksum(view)})
}

func (s *Server) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	totals, err := s.stats.Totals(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	recent, err := s.stats.Recent(ctx, recentResults)
	if err != nil {
		writeError(c, err)
		return
	}
	if recent == nil {
		recent = []repository.ResultRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"totals": totals, "recent": recent})
}

// recordResult stores a finished game. It runs on the engine's game-over
// path, so it bounds its own time.
func (s *Server) recordResult(result game.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.stats.RecordResult(ctx, result); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to record game result",
				zap.String("game_id", result.GameID),
				zap.Error(err),
			)
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("recorded game result",
			zap.String("game_id", result.GameID),
			zap.String("winner", string(result.Winner)),
			zap.Int("turns", result.Turns),
		)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, rules.ErrIllegalAction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, game.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": rules.Reason(err)})
}
