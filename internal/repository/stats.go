package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/watchers"
)

// Stats are win/loss totals from the human's side.
type Stats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Total  int `json:"total"`
}

// ResultRecord is one stored game result.
type ResultRecord struct {
	GameID     string           `json:"game_id"`
	Winner     rules.Side       `json:"winner"`
	Difficulty ai.Difficulty    `json:"difficulty"`
	Turns      int              `json:"turns"`
	PlayerLife int              `json:"player_life"`
	EnemyLife  int              `json:"enemy_life"`
	Stats      watchers.Summary `json:"stats"`
	FinishedAt time.Time        `json:"finished_at"`
}

// StatsStore records finished games.
type StatsStore interface {
	RecordResult(ctx context.Context, result game.GameResult) error
	Totals(ctx context.Context) (Stats, error)
	Recent(ctx context.Context, limit int) ([]ResultRecord, error)
}

// StatsRepository stores results in Postgres.
type StatsRepository struct {
	db *DB
}

func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecordResult inserts a result. Recording the same game twice is a no-op.
func (r *StatsRepository) RecordResult(ctx context.Context, result game.GameResult) error {
	stats := result.Stats
	if stats == nil {
		stats = watchers.Summary{}
	}
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO game_results (
			game_id, winner, difficulty, turns, player_life, enemy_life, stats, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id) DO NOTHING
	`,
		result.GameID,
		string(result.Winner),
		string(result.Difficulty),
		result.Turns,
		result.PlayerLife,
		result.EnemyLife,
		stats,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record result for game %s: %w", result.GameID, err)
	}
	return nil
}

// Totals counts wins, losses and games.
func (r *StatsRepository) Totals(ctx context.Context) (Stats, error) {
	var wins, losses, total int64
	err := r.db.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE winner = $1),
			COUNT(*) FILTER (WHERE winner = $2),
			COUNT(*)
		FROM game_results
	`, string(rules.SidePlayer), string(rules.SideEnemy)).Scan(&wins, &losses, &total)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count results: %w", err)
	}
	return Stats{Wins: int(wins), Losses: int(losses), Total: int(total)}, nil
}

// Recent returns the latest results, newest first.
func (r *StatsRepository) Recent(ctx context.Context, limit int) ([]ResultRecord, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT game_id, winner, difficulty, turns, player_life, enemy_life, stats, finished_at
		FROM game_results
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ResultRecord, error) {
		var (
			rec                ResultRecord
			winner, difficulty string
		)
		err := row.Scan(&rec.GameID, &winner, &difficulty, &rec.Turns,
			&rec.PlayerLife, &rec.EnemyLife, &rec.Stats, &rec.FinishedAt)
		rec.Winner = rules.Side(winner)
		rec.Difficulty = ai.Difficulty(difficulty)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan results: %w", err)
	}
	return records, nil
}

// MemoryStats keeps results in memory when no database is configured.
type MemoryStats struct {
	mu      sync.RWMutex
	results []ResultRecord
	seen    map[string]bool
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{seen: make(map[string]bool)}
}

func (m *MemoryStats) RecordResult(ctx context.Context, result game.GameResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[result.GameID] {
		return nil
	}
	m.seen[result.GameID] = true
	m.results = append(m.results, recordOf(result))
	return nil
}

func (m *MemoryStats) Totals(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s Stats
	for _, r := range m.results {
		switch r.Winner {
		case rules.SidePlayer:
			s.Wins++
		case rules.SideEnemy:
			s.Losses++
		}
		s.Total++
	}
	return s, nil
}

func (m *MemoryStats) Recent(ctx context.Context, limit int) ([]ResultRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ResultRecord
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[i])
	}
	return out, nil
}

func recordOf(result game.GameResult) ResultRecord {
	return ResultRecord{
		GameID:     result.GameID,
		Winner:     result.Winner,
		Difficulty: result.Difficulty,
		Turns:      result.Turns,
		PlayerLife: result.PlayerLife,
		EnemyLife:  result.EnemyLife,
		Stats:      result.Stats,
		FinishedAt: result.FinishedAt,
	}
}
