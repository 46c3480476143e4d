package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/combat"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

const testGameID = "game-1"

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	if opts.Seed == 0 {
		opts.Seed = 7
	}
	return NewEngine(zaptest.NewLogger(t), cat, opts)
}

// startTestGame creates and starts a fire/water game against a medium
// opponent and returns its session.
func startTestGame(t *testing.T, e *Engine, id string) *session {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.CreateGame(ctx, id, ai.Medium))
	require.NoError(t, e.ChooseElements(ctx, id, []mana.Element{mana.Fire, mana.Water}))
	require.NoError(t, e.StartGame(ctx, id))
	s, err := e.session(id)
	require.NoError(t, err)
	return s
}

// emptyHand puts side's hand back into its deck.
func emptyHand(s *session, side rules.Side) {
	p := s.player(side)
	for _, c := range p.Hand.Clear() {
		p.Deck.Push(c)
	}
}

// silenceEnemy leaves the computer with nothing to draw or play.
func silenceEnemy(s *session) {
	p := s.player(rules.SideEnemy)
	p.Hand.Clear()
	p.Deck.Clear()
}

// give puts a fresh instance of a catalog card into side's zone. Board
// creatures arrive ready to attack.
func give(t *testing.T, e *Engine, s *session, side rules.Side, cardID string, zone zones.ZoneName) *zones.Card {
	t.Helper()
	def, ok := e.catalog.Lookup(cardID)
	require.True(t, ok, "unknown card %s", cardID)
	card := s.zones.NewInstance(def, side)
	s.player(side).Zone(zone).Push(card)
	return card
}

func requireInvariants(t *testing.T, s *session) {
	t.Helper()
	for _, side := range rules.Sides {
		require.NoError(t, s.player(side).CheckInvariants())
	}
}

// creatureSpec describes a synthetic creature for combat scenarios.
type creatureSpec struct {
	name      string
	power     int
	toughness int
	abilities []catalog.Ability
}

// combatHarness runs combat through a started game with hand-built boards.
type combatHarness struct {
	t      *testing.T
	engine *Engine
	s      *session
}

func newCombatHarness(t *testing.T) *combatHarness {
	t.Helper()
	e := newTestEngine(t, Options{})
	s := startTestGame(t, e, testGameID)
	silenceEnemy(s)
	return &combatHarness{t: t, engine: e, s: s}
}

func (h *combatHarness) creature(side rules.Side, spec creatureSpec) *zones.Card {
	def := &catalog.Definition{
		ID:        spec.name,
		Name:      spec.name,
		Category:  catalog.CategoryCreature,
		Power:     spec.power,
		Toughness: spec.toughness,
	}
	for _, a := range spec.abilities {
		def.Abilities = def.Abilities.With(a)
	}
	card := h.s.zones.NewInstance(def, side)
	h.s.player(side).Board.Push(card)
	return card
}

// fight resolves the human attacking with attackers and the given blocks,
// then runs the state-based sweep.
func (h *combatHarness) fight(attackers []*zones.Card, blocks map[*zones.Card][]*zones.Card) *combat.Result {
	decl := combat.Declaration{Blocks: make(map[string][]string)}
	for _, a := range attackers {
		decl.Attackers = append(decl.Attackers, a.InstanceID)
		for _, b := range blocks[a] {
			decl.Blocks[a.InstanceID] = append(decl.Blocks[a.InstanceID], b.InstanceID)
		}
	}
	result := h.s.combat.Resolve(h.s.player(rules.SidePlayer), h.s.player(rules.SideEnemy), decl)
	h.s.sweep()
	return result
}

// attack declares attackers through the engine; the computer picks blocks.
func (h *combatHarness) attack(attackers ...*zones.Card) {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.engine.EnterAttackPhase(ctx, testGameID))
	for _, a := range attackers {
		require.NoError(h.t, h.engine.ToggleAttacker(ctx, testGameID, a.InstanceID))
	}
	require.NoError(h.t, h.engine.ConfirmAttack(ctx, testGameID))
}

func (h *combatHarness) life(side rules.Side) int {
	return h.s.player(side).Life
}

func (h *combatHarness) onBoard(c *zones.Card) bool {
	return h.s.player(c.Owner).Board.Contains(c.InstanceID)
}

func (h *combatHarness) inGraveyard(c *zones.Card) bool {
	return h.s.player(c.Owner).Graveyard.Contains(c.InstanceID)
}
