package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

func testOptions() options {
	return options{
		games:      3,
		seed:       5,
		difficulty: ai.Easy,
		elements:   []mana.Element{mana.Fire, mana.Earth},
		maxTurns:   40,
	}
}

func TestSimulate(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	rep, err := simulate(context.Background(), zaptest.NewLogger(t), cat, testOptions())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 3)

	finished := 0
	for i, o := range rep.Outcomes {
		assert.Equal(t, int64(5+i), o.Seed)
		assert.NotEmpty(t, o.Log)
		if o.Winner != "" {
			finished++
		}
	}
	assert.Equal(t, finished, rep.Totals.Total)
	assert.Equal(t, rep.Totals.Total, rep.Totals.Wins+rep.Totals.Losses)

	var buf bytes.Buffer
	require.NoError(t, rep.write(&buf, true))
	out := buf.String()
	assert.Contains(t, out, "WINNER")
	assert.Contains(t, out, "sim-001")
	assert.Contains(t, out, "== sim-003 (seed 7)")
}

func TestSimulateIsReproducible(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	opts := testOptions()
	opts.games = 1

	first, err := simulate(context.Background(), zaptest.NewLogger(t), cat, opts)
	require.NoError(t, err)
	second, err := simulate(context.Background(), zaptest.NewLogger(t), cat, opts)
	require.NoError(t, err)

	a, b := first.Outcomes[0], second.Outcomes[0]
	assert.Equal(t, a.Winner, b.Winner)
	assert.Equal(t, a.Turns, b.Turns)
	assert.Equal(t, a.PlayerLife, b.PlayerLife)
	assert.Equal(t, a.EnemyLife, b.EnemyLife)
}

func TestSimulateStopsOnCancel(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = simulate(ctx, zaptest.NewLogger(t), cat, testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
