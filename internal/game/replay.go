package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	replayVersion = 1
	replayExt     = ".replay"
)

// Frame is one recorded view with its checksum.
type Frame struct {
	View     *GameView
	Checksum string
}

// Replay is a recorded game, one frame per accepted command, with a cursor
// for stepping through it.
type Replay struct {
	GameID string
	Frames []Frame

	mu     sync.RWMutex
	cursor int
}

// Record appends a frame for view.
func (r *Replay) Record(view *GameView) {
	frame := Frame{View: view, Checksum: ComputeChecksum(view)}
	r.mu.Lock()
	r.Frames = append(r.Frames, frame)
	r.mu.Unlock()
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	r.cursor = 0
	r.mu.Unlock()
}

// Next returns the frame under the cursor and advances past it. It returns
// nil once every frame has been read.
func (r *Replay) Next() *GameView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.Frames) {
		return nil
	}
	r.cursor++
	return r.Frames[r.cursor-1].View
}

// Previous steps the cursor back and returns that frame, or nil at the start.
func (r *Replay) Previous() *GameView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == 0 {
		return nil
	}
	r.cursor--
	return r.Frames[r.cursor].View
}

// Skip moves the cursor by count frames, clamped to the recording, and
// returns the frame it lands on.
func (r *Replay) Skip(count int) *GameView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Frames) == 0 {
		return nil
	}
	r.cursor = min(max(r.cursor+count, 0), len(r.Frames)-1)
	return r.Frames[r.cursor].View
}

func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Frames)
}

// At returns the view of frame index, or nil.
func (r *Replay) At(index int) *GameView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.Frames) {
		return nil
	}
	return r.Frames[index].View
}

type replayHeader struct {
	GameID     string
	SavedAt    time.Time
	Version    int
	FrameCount int
}

// SaveToFile writes the replay to <directory>/<game id>.replay as gzipped
// gob: a header followed by the frames. The file appears atomically.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create replay directory: %w", err)
	}
	tmp, err := os.CreateTemp(directory, r.GameID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create replay file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close replay file: %w", err)
	}
	return os.Rename(tmp.Name(), replayPath(directory, r.GameID))
}

func (r *Replay) encode(file *os.File) error {
	gz := gzip.NewWriter(file)
	enc := gob.NewEncoder(gz)

	header := replayHeader{GameID: r.GameID, SavedAt: time.Now(), Version: replayVersion, FrameCount: len(r.Frames)}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("failed to encode replay header: %w", err)
	}
	for i := range r.Frames {
		if err := enc.Encode(&r.Frames[i]); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile. Every frame must
// match its recorded checksum.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay: %w", err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)
	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("failed to decode replay header: %w", err)
	}
	if header.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version %d", header.Version)
	}

	replay := &Replay{GameID: header.GameID, Frames: make([]Frame, header.FrameCount)}
	for i := range replay.Frames {
		if err := dec.Decode(&replay.Frames[i]); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		if !VerifyChecksum(replay.Frames[i].View, replay.Frames[i].Checksum) {
			return nil, fmt.Errorf("frame %d checksum mismatch", i)
		}
	}
	return replay, nil
}

func replayPath(directory, gameID string) string {
	return filepath.Join(directory, gameID+replayExt)
}

type recording struct {
	replay *Replay
	active bool
}

// ReplayRecorder holds the replays of running games and writes each one
// out when its game finishes.
type ReplayRecorder struct {
	logger  *zap.Logger
	saveDir string

	mu    sync.RWMutex
	games map[string]*recording
}

// NewReplayRecorder creates a recorder. An empty saveDir keeps replays in
// memory only.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		saveDir: saveDir,
		games:   make(map[string]*recording),
	}
}

func (rr *ReplayRecorder) SaveDir() string { return rr.saveDir }

// StartRecording begins a fresh replay for gameID.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	rr.games[gameID] = &recording{replay: &Replay{GameID: gameID}, active: true}
	rr.mu.Unlock()

	if rr.logger != nil {
		rr.logger.Debug("started replay recording", zap.String("game_id", gameID))
	}
}

// StopRecording pauses recording and keeps the frames so far.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if rec, ok := rr.games[gameID]; ok {
		rec.active = false
	}
}

func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	rec, ok := rr.games[gameID]
	return ok && rec.active
}

// RecordState appends view to the game's replay while it is recording.
func (rr *ReplayRecorder) RecordState(gameID string, view *GameView) {
	rr.mu.RLock()
	rec, ok := rr.games[gameID]
	active := ok && rec.active
	rr.mu.RUnlock()
	if active {
		rec.replay.Record(view)
	}
}

// GetReplay returns the in-memory replay of a running game.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	rec, ok := rr.games[gameID]
	if !ok {
		return nil, false
	}
	return rec.replay, true
}

// SaveReplay writes a game's replay to the save directory and forgets it.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	rec, ok := rr.games[gameID]
	delete(rr.games, gameID)
	rr.mu.Unlock()
	if !ok {
		return fmt.Errorf("no replay for game %s", gameID)
	}

	if err := rec.replay.SaveToFile(rr.saveDir); err != nil {
		return err
	}
	if rr.logger != nil {
		rr.logger.Info("saved replay",
			zap.String("game_id", gameID),
			zap.Int("frames", rec.replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}
	return nil
}

// LoadReplay reads a saved replay from the save directory.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	return LoadReplayFromFile(rr.saveDir, gameID)
}

// ClearReplay forgets a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(gameID string) {
	rr.mu.Lock()
	delete(rr.games, gameID)
	rr.mu.Unlock()
}
