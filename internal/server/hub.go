package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is one outbound websocket message.
type Frame struct {
	Type     string          `json:"type"` // state, log, error or game_over
	GameID   string          `json:"game_id"`
	View     *game.GameView  `json:"view,omitempty"`
	Checksum string          `json:"checksum,omitempty"`
	Entries  []game.LogEntry `json:"entries,omitempty"`
	Error    string          `json:"error,omitempty"`
	Winner   rules.Side      `json:"winner,omitempty"`
	Turns    int             `json:"turns,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type envelope struct {
	gameID  string
	client  *client // set for a single recipient
	payload []byte
}

// Hub fans engine notifications out to the websocket clients of each game.
type Hub struct {
	engine *game.Engine
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan envelope
	done       chan struct{}
}

func NewHub(engine *game.Engine, logger *zap.Logger) *Hub {
	return &Hub{
		engine:     engine,
		logger:     logger,
		clients:    make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan envelope, sendBuffer),
		done:       make(chan struct{}),
	}
}

// Run delivers frames until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.gameID] == nil {
				h.clients[c.gameID] = make(map[*client]bool)
			}
			h.clients[c.gameID][c] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("websocket client registered", zap.String("game_id", c.gameID))
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.gameID][c]; ok {
				delete(h.clients[c.gameID], c)
				if len(h.clients[c.gameID]) == 0 {
					delete(h.clients, c.gameID)
				}
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[msg.gameID] {
				if msg.client != nil && msg.client != c {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// Slow client: drop it.
					delete(h.clients[msg.gameID], c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount reports how many clients watch a game.
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[gameID])
}

// Notify turns an engine notification into frames for the game's clients.
func (h *Hub) Notify(n game.GameNotification) {
	since, _ := n.Data["log_seq"].(int)
	switch n.Type {
	case "STATE_CHANGE":
		if frame, ok := h.stateFrame(n.GameID); ok {
			h.send(n.GameID, nil, frame)
		}
		h.sendLog(n.GameID, nil, since)
	case "LOG":
		h.sendLog(n.GameID, nil, since)
	case "GAME_OVER":
		winner, _ := n.Data["winner"].(string)
		turns, _ := n.Data["turns"].(int)
		h.send(n.GameID, nil, Frame{Type: "game_over", GameID: n.GameID, Winner: rules.Side(winner), Turns: turns})
	}
}

func (h *Hub) stateFrame(gameID string) (Frame, bool) {
	view, err := h.engine.View(gameID, rules.SidePlayer)
	if err != nil {
		return Frame{}, false
	}
	return Frame{Type: "state", GameID: gameID, View: view, Checksum: game.ComputeChecksum(view)}, true
}

func (h *Hub) sendLog(gameID string, to *client, since int) {
	entries, err := h.engine.Log(gameID, since)
	if err != nil || len(entries) == 0 {
		return
	}
	h.send(gameID, to, Frame{Type: "log", GameID: gameID, Entries: entries})
}

func (h *Hub) send(gameID string, to *client, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to encode frame", zap.String("game_id", gameID), zap.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- envelope{gameID: gameID, client: to, payload: payload}:
	case <-h.done:
	}
}

// serveWS upgrades the request and attaches the connection to a game.
func (s *Server) serveWS(c *gin.Context) {
	gameID := c.Param("id")
	frame, ok := s.hub.stateFrame(gameID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("websocket upgrade failed", zap.String("game_id", gameID), zap.Error(err))
		}
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), gameID: gameID}
	select {
	case s.hub.register <- cl:
	case <-s.hub.done:
		conn.Close()
		return
	}
	go cl.writePump()
	s.hub.send(gameID, cl, frame)
	go s.readPump(cl)
}

func (s *Server) readPump(c *client) {
	defer func() {
		select {
		case s.hub.unregister <- c:
		case <-s.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && s.logger != nil {
				s.logger.Debug("websocket closed", zap.String("game_id", c.gameID), zap.Error(err))
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.hub.send(c.gameID, c, Frame{Type: "error", GameID: c.gameID, Error: "malformed command"})
				continue
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		err := s.dispatchSafely(ctx, c.gameID, cmd)
		cancel()
		if err != nil {
			s.hub.send(c.gameID, c, Frame{Type: "error", GameID: c.gameID, Error: rules.Reason(err)})
		}
	}
}

// dispatchSafely runs cmd for a websocket client. A panic is logged and
// reported back as an error.
func (s *Server) dispatchSafely(ctx context.Context, id string, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error("websocket command panicked",
					zap.String("game_id", id),
					zap.String("command", cmd.Command),
					zap.Any("panic", r),
				)
			}
			err = fmt.Errorf("%s failed", cmd.Command)
		}
	}()
	return s.dispatch(ctx, id, cmd)
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
