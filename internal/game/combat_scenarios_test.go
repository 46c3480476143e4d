package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

func TestCombatBiggerCreatureSurvivesBlock(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "ogre", power: 3, toughness: 3})
	blocker := h.creature(rules.SideEnemy, creatureSpec{name: "wolf", power: 2, toughness: 2})

	result := h.fight([]*zones.Card{attacker}, map[*zones.Card][]*zones.Card{attacker: {blocker}})

	assert.Equal(t, 0, result.PlayerDamage)
	assert.True(t, h.inGraveyard(blocker))
	assert.True(t, h.onBoard(attacker))
	assert.Equal(t, 2, attacker.Damage)
	assert.Equal(t, 20, h.life(rules.SideEnemy))
}

func TestCombatTrampleCarriesOver(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "rhino", power: 5, toughness: 5, abilities: []catalog.Ability{catalog.Trample}})
	blocker := h.creature(rules.SideEnemy, creatureSpec{name: "wall", power: 0, toughness: 2})

	result := h.fight([]*zones.Card{attacker}, map[*zones.Card][]*zones.Card{attacker: {blocker}})

	assert.Equal(t, 3, result.PlayerDamage)
	assert.Equal(t, 17, h.life(rules.SideEnemy))
	assert.True(t, h.inGraveyard(blocker))
}

func TestCombatDeathtouchKillsLargeBlocker(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "asp", power: 1, toughness: 3, abilities: []catalog.Ability{catalog.Deathtouch}})
	blocker := h.creature(rules.SideEnemy, creatureSpec{name: "giant", power: 2, toughness: 6})

	h.fight([]*zones.Card{attacker}, map[*zones.Card][]*zones.Card{attacker: {blocker}})

	assert.True(t, h.inGraveyard(blocker))
	assert.True(t, h.onBoard(attacker))
	assert.Equal(t, 2, attacker.Damage)
}

func TestCombatLifelinkUnblocked(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "priest", power: 4, toughness: 4, abilities: []catalog.Ability{catalog.Lifelink}})

	result := h.fight([]*zones.Card{attacker}, nil)

	assert.Equal(t, 4, result.PlayerDamage)
	assert.Equal(t, 4, result.LifeGained[rules.SidePlayer])
	assert.Equal(t, 24, h.life(rules.SidePlayer))
	assert.Equal(t, 16, h.life(rules.SideEnemy))
}

func TestCombatFirstStrikeKillsBeforeDamageBack(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "duelist", power: 2, toughness: 2, abilities: []catalog.Ability{catalog.FirstStrike}})
	blocker := h.creature(rules.SideEnemy, creatureSpec{name: "squire", power: 2, toughness: 2})

	result := h.fight([]*zones.Card{attacker}, map[*zones.Card][]*zones.Card{attacker: {blocker}})

	assert.True(t, result.FirstStrikeStep)
	assert.True(t, h.inGraveyard(blocker))
	assert.Equal(t, 0, attacker.Damage)
	assert.True(t, h.onBoard(attacker))
}

func TestCombatMenaceNeedsTwoBlockers(t *testing.T) {
	t.Run("one defender", func(t *testing.T) {
		h := newCombatHarness(t)
		attacker := h.creature(rules.SidePlayer, creatureSpec{name: "raider", power: 2, toughness: 2, abilities: []catalog.Ability{catalog.Menace}})
		guard := h.creature(rules.SideEnemy, creatureSpec{name: "guard", power: 3, toughness: 3})

		h.attack(attacker)

		assert.Equal(t, 18, h.life(rules.SideEnemy))
		assert.True(t, h.onBoard(guard))
		assert.Equal(t, 0, guard.Damage)
	})

	t.Run("two defenders", func(t *testing.T) {
		h := newCombatHarness(t)
		attacker := h.creature(rules.SidePlayer, creatureSpec{name: "raider", power: 2, toughness: 2, abilities: []catalog.Ability{catalog.Menace}})
		h.creature(rules.SideEnemy, creatureSpec{name: "guard", power: 3, toughness: 3})
		h.creature(rules.SideEnemy, creatureSpec{name: "guard", power: 3, toughness: 3})

		h.attack(attacker)

		assert.Equal(t, 20, h.life(rules.SideEnemy))
		assert.True(t, h.inGraveyard(attacker))
	})
}

func TestCombatFlyingEvadesGroundBlockers(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "hawk", power: 2, toughness: 1, abilities: []catalog.Ability{catalog.Flying}})
	h.creature(rules.SideEnemy, creatureSpec{name: "bear", power: 2, toughness: 2})

	h.attack(attacker)

	assert.Equal(t, 18, h.life(rules.SideEnemy))
	assert.True(t, h.onBoard(attacker))
	assert.True(t, attacker.Tapped)
}

func TestCombatFirstStrikeAddsDamageStep(t *testing.T) {
	h := newCombatHarness(t)
	attacker := h.creature(rules.SidePlayer, creatureSpec{name: "lancer", power: 1, toughness: 1, abilities: []catalog.Ability{catalog.FirstStrike, catalog.Vigilance}})

	h.attack(attacker)

	require.True(t, h.s.turns.HasFirstStrike())
	assert.Contains(t, h.s.turns.Sequence(), rules.StepFirstStrikeDamage)
	assert.Equal(t, rules.StepMain2, h.s.turns.Step())
	assert.False(t, attacker.Tapped)
	assert.Equal(t, 19, h.life(rules.SideEnemy))
}
