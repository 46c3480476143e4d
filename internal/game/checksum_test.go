package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

func TestChecksumIsDeterministicForSeed(t *testing.T) {
	first := newTestEngine(t, Options{Seed: 11})
	second := newTestEngine(t, Options{Seed: 11})
	startTestGame(t, first, testGameID)
	startTestGame(t, second, testGameID)

	a, err := first.View(testGameID, "")
	require.NoError(t, err)
	b, err := second.View(testGameID, "")
	require.NoError(t, err)

	sum := ComputeChecksum(a)
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, ComputeChecksum(b))
	assert.True(t, VerifyChecksum(b, sum))

	a.Player(rules.SideEnemy).Life--
	assert.NotEqual(t, sum, ComputeChecksum(a))
	assert.False(t, VerifyChecksum(a, sum))
}

func TestChecksumFollowsAcceptedCommands(t *testing.T) {
	e := newTestEngine(t, Options{})
	startTestGame(t, e, testGameID)

	before, err := e.View(testGameID, "")
	require.NoError(t, err)
	require.NoError(t, e.Mulligan(context.Background(), testGameID))
	after, err := e.View(testGameID, "")
	require.NoError(t, err)

	assert.NotEqual(t, ComputeChecksum(before), ComputeChecksum(after))
}
