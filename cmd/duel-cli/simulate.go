package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game"
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/repository"
)

type options struct {
	games      int
	seed       int64
	difficulty ai.Difficulty
	elements   []mana.Element
	maxTurns   int
	showLog    bool
}

type outcome struct {
	GameID     string
	Seed       int64
	Winner     rules.Side // empty when stalled
	Turns      int
	PlayerLife int
	EnemyLife  int
	Log        []game.LogEntry
}

type report struct {
	Outcomes []outcome
	Totals   repository.Stats
}

func simulate(ctx context.Context, logger *zap.Logger, cat *catalog.Catalog, opts options) (*report, error) {
	stats := repository.NewMemoryStats()
	rep := &report{}

	for i := 0; i < opts.games; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := opts.seed
		if seed != 0 {
			seed += int64(i)
		}
		engine := game.NewEngine(logger, cat, game.Options{Seed: seed})
		engine.SetGameOverHandler(func(result game.GameResult) {
			if err := stats.RecordResult(ctx, result); err != nil {
				logger.Warn("failed to record result", zap.String("game_id", result.GameID), zap.Error(err))
			}
		})

		out, err := playOne(ctx, engine, fmt.Sprintf("sim-%03d", i+1), opts)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}
		out.Seed = seed
		rep.Outcomes = append(rep.Outcomes, out)
	}

	totals, err := stats.Totals(ctx)
	if err != nil {
		return nil, err
	}
	rep.Totals = totals
	return rep, nil
}

func playOne(ctx context.Context, engine *game.Engine, id string, opts options) (outcome, error) {
	if err := engine.CreateGame(ctx, id, opts.difficulty); err != nil {
		return outcome{}, err
	}
	defer engine.RemoveGame(id)

	if err := engine.ChooseElements(ctx, id, opts.elements); err != nil {
		return outcome{}, err
	}
	if err := engine.StartGame(ctx, id); err != nil {
		return outcome{}, err
	}

	for {
		view, err := engine.View(id, "")
		if err != nil {
			return outcome{}, err
		}
		if view.Over || view.Turn > opts.maxTurns {
			return outcomeOf(engine, view)
		}
		if err := engine.Autopilot(ctx, id); err != nil && !errors.Is(err, game.ErrGameOver) {
			return outcome{}, err
		}
	}
}

func outcomeOf(engine *game.Engine, view *game.GameView) (outcome, error) {
	entries, err := engine.Log(view.GameID, 0)
	if err != nil {
		return outcome{}, err
	}
	out := outcome{
		GameID:     view.GameID,
		Turns:      view.Turn,
		PlayerLife: view.Player(rules.SidePlayer).Life,
		EnemyLife:  view.Player(rules.SideEnemy).Life,
		Log:        entries,
	}
	if view.Over {
		out.Winner = view.Winner
	}
	return out, nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func (r *report) write(w io.Writer, withLog bool) error {
	if withLog {
		for _, o := range r.Outcomes {
			if _, err := fmt.Fprintf(w, "== %s (seed %d)\n", o.GameID, o.Seed); err != nil {
				return err
			}
			for _, e := range o.Log {
				if _, err := fmt.Fprintf(w, "%4d  t%-3d %-7s %s\n", e.Seq, e.Turn, e.Category, e.Text); err != nil {
					return err
				}
			}
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("GAME", "SEED", "WINNER", "TURNS", "PLAYER LIFE", "ENEMY LIFE")
	for _, o := range r.Outcomes {
		winner := string(o.Winner)
		if winner == "" {
			winner = "stalled"
		}
		t.Row(o.GameID, strconv.FormatInt(o.Seed, 10), winner, strconv.Itoa(o.Turns),
			strconv.Itoa(o.PlayerLife), strconv.Itoa(o.EnemyLife))
	}

	_, err := fmt.Fprintf(w, "%s\nplayer wins %d, enemy wins %d, stalled %d\n",
		t.Render(), r.Totals.Wins, r.Totals.Losses, len(r.Outcomes)-r.Totals.Total)
	return err
}
