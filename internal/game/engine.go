// Package game runs Elements Duel sessions: it owns each game's state and
// applies player commands and the computer opponent's turns to it.
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/combat"
	"github.com/elementsduel/duel-server-go/internal/game/deck"
	"github.com/elementsduel/duel-server-go/internal/game/effects"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/watchers"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

var (
	// ErrGameNotFound is returned for unknown game ids.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameOver is returned for commands sent to a finished game.
	ErrGameOver = errors.New("game is over")
	// ErrBusy is returned when the context ends while waiting for the
	// game's processing lock.
	ErrBusy = errors.New("game is busy")
)

const (
	startingHand  = 7
	mulliganHand  = 6
	maxLogEntries = 1000
)

// Options configures an Engine.
type Options struct {
	// Seed seeds every game's random source. Zero seeds from the clock.
	Seed int64
	// LockTimeout bounds how long one action may hold a game's lock.
	LockTimeout time.Duration
	// StartingLife is each player's life at the start of a game.
	StartingLife int
	// Recorder, when set, records a view after every accepted command.
	Recorder *ReplayRecorder
}

// GameResult is reported once per finished game.
type GameResult struct {
	GameID     string
	Winner     rules.Side
	Difficulty ai.Difficulty
	Turns      int
	PlayerLife int
	EnemyLife  int
	Stats      watchers.Summary
	FinishedAt time.Time
}

// GameOverHandler receives finished games.
type GameOverHandler func(result GameResult)

// GameNotification is pushed to UI and websocket clients.
type GameNotification struct {
	Type      string // STATE_CHANGE, LOG or GAME_OVER
	GameID    string
	Timestamp time.Time
	Data      map[string]interface{}
}

// NotificationHandler handles game notifications.
type NotificationHandler func(notification GameNotification)

// Engine hosts concurrent games. Each game admits one action at a time.
type Engine struct {
	logger  *zap.Logger
	catalog *catalog.Catalog
	options Options

	mu                  sync.RWMutex
	games               map[string]*session
	notificationHandler NotificationHandler
	gameOverHandler     GameOverHandler
}

// session is the state of one game. Everything below lock is only touched
// by the lease holder.
type session struct {
	id         string
	difficulty ai.Difficulty
	lock       *processingLock
	logger     *zap.Logger
	createdAt  time.Time

	rng       *rand.Rand
	bus       *rules.EventBus
	zones     *zones.Manager
	turns     *rules.TurnManager
	combat    *combat.Resolver
	effects   *effects.Resolver
	builder   *deck.Builder
	policy    *ai.Policy // the enemy seat
	autopilot *ai.Policy // the human seat when Autopilot drives it
	players   map[rules.Side]*zones.Player
	stats     *watchers.Set

	attackers  []string
	humanActed bool
	over       bool
	reported   bool
	result     *GameResult

	log []LogEntry
	seq int
}

// NewEngine creates an engine drawing cards from cat.
func NewEngine(logger *zap.Logger, cat *catalog.Catalog, opts Options) *Engine {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.StartingLife <= 0 {
		opts.StartingLife = 20
	}
	return &Engine{
		logger:  logger,
		catalog: cat,
		options: opts,
		games:   make(map[string]*session),
	}
}

// SetNotificationHandler sets the handler for game notifications. Handlers
// run on their own goroutine and may call back into the engine.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notificationHandler = handler
}

// SetGameOverHandler sets the handler called once per finished game.
func (e *Engine) SetGameOverHandler(handler GameOverHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gameOverHandler = handler
}

func (e *Engine) emitNotification(notification GameNotification) {
	e.mu.RLock()
	handler := e.notificationHandler
	e.mu.RUnlock()

	if handler != nil {
		go handler(notification)
	}
}

// CreateGame registers a new game in the setup phase.
func (e *Engine) CreateGame(ctx context.Context, id string, difficulty ai.Difficulty) error {
	if id == "" {
		return fmt.Errorf("game id is required")
	}
	if _, err := ai.ParseDifficulty(string(difficulty)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seed := e.options.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	ids := zones.UUIDGenerator(rng)
	bus := rules.NewEventBus()
	turns := rules.NewTurnManager()
	zm := zones.NewManager(e.logger, bus, ids)
	zm.SetTurnSource(turns.TurnNumber)

	s := &session{
		id:         id,
		difficulty: difficulty,
		lock:       newProcessingLock(id, e.options.LockTimeout, e.logger),
		logger:     e.logger,
		createdAt:  time.Now(),
		rng:        rng,
		bus:        bus,
		zones:      zm,
		turns:      turns,
		combat:     combat.NewResolver(e.logger, bus),
		effects:    effects.NewResolver(e.logger, bus, zm, e.catalog, rng),
		builder:    deck.NewBuilder(e.catalog, rng, ids),
		policy:     ai.NewPolicy(difficulty, rng),
		autopilot:  ai.NewPolicy(difficulty, rng),
		players: map[rules.Side]*zones.Player{
			rules.SidePlayer: zones.NewPlayer(rules.SidePlayer, e.options.StartingLife),
			rules.SideEnemy:  zones.NewPlayer(rules.SideEnemy, e.options.StartingLife),
		},
		stats: watchers.NewSet(),
	}
	s.stats.Attach(bus)

	e.mu.Lock()
	if _, exists := e.games[id]; exists {
		e.mu.Unlock()
		return fmt.Errorf("game %s already exists", id)
	}
	e.games[id] = s
	e.mu.Unlock()

	if e.options.Recorder != nil {
		e.options.Recorder.StartRecording(id)
	}
	if e.logger != nil {
		e.logger.Info("game created",
			zap.String("game_id", id),
			zap.String("difficulty", string(difficulty)),
			zap.Int64("seed", seed),
		)
	}
	return nil
}

// RemoveGame forgets a game. Unsaved replays are dropped.
func (e *Engine) RemoveGame(id string) error {
	e.mu.Lock()
	_, exists := e.games[id]
	delete(e.games, id)
	e.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if e.options.Recorder != nil {
		e.options.Recorder.ClearReplay(id)
	}
	if e.logger != nil {
		e.logger.Info("game removed", zap.String("game_id", id))
	}
	return nil
}

// GameIDs lists the hosted games.
func (e *Engine) GameIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	return ids
}

func (e *Engine) session(id string) (*session, error) {
	e.mu.RLock()
	s, ok := e.games[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return s, nil
}

// run applies a command under the game's processing lock. Illegal actions
// are logged as notices; accepted ones are recorded and broadcast.
func (e *Engine) run(ctx context.Context, id, command string, fn func(s *session) error) error {
	s, err := e.session(id)
	if err != nil {
		return err
	}
	ls, err := s.lock.acquire(ctx)
	if err != nil {
		return err
	}

	var (
		finished *GameResult
		logSince int
		view     *GameView
	)
	err = func() (runErr error) {
		defer ls.Release()
		defer func() {
			if r := recover(); r != nil {
				if e.logger != nil {
					e.logger.Error("command panicked",
						zap.String("game_id", id),
						zap.String("command", command),
						zap.Any("panic", r),
						zap.Stack("stack"),
					)
				}
				if s.turns.Active() != rules.SidePlayer {
					s.returnControl()
				}
				runErr = fmt.Errorf("%s panicked: %v", command, r)
			}
		}()
		if s.over {
			return fmt.Errorf("%w: %s", ErrGameOver, id)
		}
		logSince = s.seq

		cmdErr := fn(s)
		if cmdErr != nil {
			if errors.Is(cmdErr, rules.ErrIllegalAction) {
				s.addLog(rules.SidePlayer, CategoryNotice, "%s", rules.Reason(cmdErr))
				if e.logger != nil {
					e.logger.Warn("rejected illegal action",
						zap.String("game_id", id),
						zap.String("command", command),
						zap.String("reason", rules.Reason(cmdErr)),
					)
				}
			}
			return cmdErr
		}

		if e.logger != nil {
			e.logger.Debug("command applied",
				zap.String("game_id", id),
				zap.String("command", command),
				zap.String("phase", s.turns.Phase().String()),
				zap.Int("turn", s.turns.TurnNumber()),
			)
		}
		view = s.view("")
		if e.options.Recorder != nil {
			e.options.Recorder.RecordState(id, view)
		}
		if s.over && !s.reported {
			s.reported = true
			result := *s.result
			finished = &result
		}
		return nil
	}()

	if err == nil {
		e.emitNotification(GameNotification{
			Type:      "STATE_CHANGE",
			GameID:    id,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"command":  command,
				"checksum": ComputeChecksum(view),
				"log_seq":  logSince,
			},
		})
	} else if errors.Is(err, rules.ErrIllegalAction) {
		e.emitNotification(GameNotification{
			Type:      "LOG",
			GameID:    id,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"log_seq": logSince, "error": rules.Reason(err)},
		})
	}
	if finished != nil {
		e.finishGame(*finished)
	}
	return err
}

// finishGame reports a result after the game's lock has been released.
func (e *Engine) finishGame(result GameResult) {
	if rec := e.options.Recorder; rec != nil && rec.SaveDir() != "" {
		if err := rec.SaveReplay(result.GameID); err != nil && e.logger != nil {
			e.logger.Error("failed to save replay", zap.String("game_id", result.GameID), zap.Error(err))
		}
	}

	e.emitNotification(GameNotification{
		Type:      "GAME_OVER",
		GameID:    result.GameID,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"winner": string(result.Winner),
			"turns":  result.Turns,
		},
	})

	e.mu.RLock()
	handler := e.gameOverHandler
	e.mu.RUnlock()
	if handler != nil {
		handler(result)
	}
}

// View returns a snapshot of the game. The enemy's hand is hidden from the
// player and vice versa; an empty viewer sees everything.
func (e *Engine) View(id string, viewer rules.Side) (*GameView, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	ls, err := s.lock.acquire(context.Background())
	if err != nil {
		return nil, err
	}
	defer ls.Release()
	return s.view(viewer), nil
}

// Log returns the log entries with a sequence number greater than since.
func (e *Engine) Log(id string, since int) ([]LogEntry, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	ls, err := s.lock.acquire(context.Background())
	if err != nil {
		return nil, err
	}
	defer ls.Release()

	var out []LogEntry
	for _, entry := range s.log {
		if entry.Seq > since {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *session) player(side rules.Side) *zones.Player {
	return s.players[side]
}
