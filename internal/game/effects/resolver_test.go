package effects

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

type effectFixture struct {
	cat      *catalog.Catalog
	bus      *rules.EventBus
	zones    *zones.Manager
	resolver *Resolver
	caster   *zones.Player
	opponent *zones.Player
	events   []rules.Event
}

func newEffectFixture(t *testing.T) *effectFixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	f := &effectFixture{
		cat:      cat,
		bus:      rules.NewEventBus(),
		caster:   zones.NewPlayer(rules.SidePlayer, 20),
		opponent: zones.NewPlayer(rules.SideEnemy, 20),
	}
	next := 0
	f.zones = zones.NewManager(zaptest.NewLogger(t), f.bus, func() string {
		next++
		return fmt.Sprintf("card-%d", next)
	})
	f.resolver = NewResolver(zaptest.NewLogger(t), f.bus, f.zones, cat, rand.New(rand.NewSource(3)))
	f.bus.Subscribe(func(e rules.Event) { f.events = append(f.events, e) })
	return f
}

func (f *effectFixture) put(t *testing.T, p *zones.Player, zone zones.ZoneName, id string) *zones.Card {
	t.Helper()
	def, ok := f.cat.Lookup(id)
	require.True(t, ok, "unknown card %s", id)
	c := f.zones.NewInstance(def, p.Side)
	p.Zone(zone).Push(c)
	return c
}

func (f *effectFixture) ctx(hints ...string) Context {
	return Context{Caster: f.caster, Opponent: f.opponent, Hints: Hints{CardIDs: hints}}
}

func (f *effectFixture) fillDeck(t *testing.T, p *zones.Player, n int) {
	for i := 0; i < n; i++ {
		f.put(t, p, zones.ZoneDeck, "fox")
	}
}

func TestDamageHitsOpponentWithoutHint(t *testing.T) {
	f := newEffectFixture(t)
	out := f.resolver.Resolve(f.ctx(), catalog.Damage{Amount: 3})

	assert.Equal(t, 17, f.opponent.Life)
	assert.Equal(t, 3, out.PlayerDamage)
	assert.Equal(t, catalog.TagDamage, out.Tag)
}

func TestDamageHintedCreature(t *testing.T) {
	f := newEffectFixture(t)
	bear := f.put(t, f.opponent, zones.ZoneBoard, "bear")

	out := f.resolver.Resolve(f.ctx(bear.InstanceID), catalog.Damage{Amount: 3})

	assert.Equal(t, 3, bear.Damage)
	assert.True(t, bear.IsLethal())
	assert.True(t, f.opponent.Board.Contains(bear.InstanceID), "death is left to the sweep")
	assert.Equal(t, 20, f.opponent.Life)
	assert.Equal(t, []string{bear.InstanceID}, out.Affected)
}

func TestDamageIgnoresHexproofHint(t *testing.T) {
	f := newEffectFixture(t)
	turtle := f.put(t, f.opponent, zones.ZoneBoard, "turtle")

	f.resolver.Resolve(f.ctx(turtle.InstanceID), catalog.Damage{Amount: 2})

	assert.Equal(t, 0, turtle.Damage)
	assert.Equal(t, 18, f.opponent.Life)
}

func TestDamageAllHitsEveryOpposingCreature(t *testing.T) {
	f := newEffectFixture(t)
	bear := f.put(t, f.opponent, zones.ZoneBoard, "bear")
	turtle := f.put(t, f.opponent, zones.ZoneBoard, "turtle")
	mine := f.put(t, f.caster, zones.ZoneBoard, "fox")

	f.resolver.Resolve(f.ctx(), catalog.Damage{Amount: 2, AllCreatures: true})
	f.resolver.Resolve(f.ctx(), catalog.AOE{Amount: 1})

	assert.Equal(t, 3, bear.Damage)
	assert.Equal(t, 3, turtle.Damage, "board damage ignores hexproof")
	assert.Equal(t, 0, mine.Damage)
	assert.Equal(t, 20, f.opponent.Life)
}

func TestHealHasNoCap(t *testing.T) {
	f := newEffectFixture(t)
	out := f.resolver.Resolve(f.ctx(), catalog.Heal{Amount: 5})
	assert.Equal(t, 25, f.caster.Life)
	assert.Equal(t, 5, out.LifeGained)
}

func TestHealDraw(t *testing.T) {
	f := newEffectFixture(t)
	f.fillDeck(t, f.caster, 3)

	out := f.resolver.Resolve(f.ctx(), catalog.HealDraw{Heal: 2, Draw: 2})

	assert.Equal(t, 22, f.caster.Life)
	assert.Equal(t, 2, out.Drawn)
	assert.Equal(t, 2, f.caster.Hand.Len())
}

func TestDrawStopsAtEmptyDeck(t *testing.T) {
	f := newEffectFixture(t)
	f.fillDeck(t, f.caster, 1)

	out := f.resolver.Resolve(f.ctx(), catalog.Draw{Count: 3})
	assert.Equal(t, 1, out.Drawn)
	assert.Equal(t, 0, f.caster.Deck.Len())
}

func TestDrainMovesLife(t *testing.T) {
	f := newEffectFixture(t)
	f.resolver.Resolve(f.ctx(), catalog.Drain{Amount: 2})
	assert.Equal(t, 18, f.opponent.Life)
	assert.Equal(t, 22, f.caster.Life)
}

func TestDestroySkipsHexproof(t *testing.T) {
	f := newEffectFixture(t)
	turtle := f.put(t, f.opponent, zones.ZoneBoard, "turtle")
	bear := f.put(t, f.opponent, zones.ZoneBoard, "bear")

	out := f.resolver.Resolve(f.ctx(), catalog.Destroy{})

	assert.False(t, out.Fizzled)
	assert.True(t, f.opponent.Graveyard.Contains(bear.InstanceID))
	assert.True(t, f.opponent.Board.Contains(turtle.InstanceID))

	out = f.resolver.Resolve(f.ctx(), catalog.Destroy{})
	assert.True(t, out.Fizzled)
	assert.True(t, f.opponent.Board.Contains(turtle.InstanceID))
}

func TestBuffHintedOwnCreature(t *testing.T) {
	f := newEffectFixture(t)
	fox := f.put(t, f.caster, zones.ZoneBoard, "fox")
	bear := f.put(t, f.caster, zones.ZoneBoard, "bear")

	f.resolver.Resolve(f.ctx(bear.InstanceID), catalog.Buff{Power: 2, Toughness: 1, Grant: catalog.Flying})

	assert.Equal(t, 5, bear.Power())
	assert.Equal(t, 4, bear.Toughness())
	assert.True(t, bear.Has(catalog.Flying))
	assert.Equal(t, 2, fox.Power())
}

func TestBuffAll(t *testing.T) {
	f := newEffectFixture(t)
	fox := f.put(t, f.caster, zones.ZoneBoard, "fox")
	bear := f.put(t, f.caster, zones.ZoneBoard, "bear")
	enemy := f.put(t, f.opponent, zones.ZoneBoard, "wolf")

	out := f.resolver.Resolve(f.ctx(), catalog.Buff{Toughness: 2, All: true})

	assert.Equal(t, catalog.TagBuffDefense, out.Tag)
	assert.Equal(t, 4, fox.Toughness())
	assert.Equal(t, 5, bear.Toughness())
	assert.Equal(t, 2, enemy.Toughness())
}

func TestBuffWithoutCreatureFizzles(t *testing.T) {
	f := newEffectFixture(t)
	out := f.resolver.Resolve(f.ctx(), catalog.Buff{Power: 1})
	assert.True(t, out.Fizzled)
}

func TestTapPicksUntappedNonHexproof(t *testing.T) {
	f := newEffectFixture(t)
	f.put(t, f.opponent, zones.ZoneBoard, "turtle")
	tapped := f.put(t, f.opponent, zones.ZoneBoard, "bear")
	tapped.Tapped = true
	wolf := f.put(t, f.opponent, zones.ZoneBoard, "wolf")

	out := f.resolver.Resolve(f.ctx(), catalog.Tap{})

	require.Equal(t, []string{wolf.InstanceID}, out.Affected)
	assert.True(t, wolf.Tapped)
}

func TestBounceUpToCount(t *testing.T) {
	f := newEffectFixture(t)
	for i := 0; i < 3; i++ {
		c := f.put(t, f.opponent, zones.ZoneBoard, "bear")
		c.Damage = 1
		c.Tapped = true
	}
	turtle := f.put(t, f.opponent, zones.ZoneBoard, "turtle")

	out := f.resolver.Resolve(f.ctx(), catalog.Bounce{})

	assert.Len(t, out.Affected, 2)
	assert.Equal(t, 2, f.opponent.Hand.Len())
	assert.True(t, f.opponent.Board.Contains(turtle.InstanceID))
	for _, c := range f.opponent.Hand.Cards() {
		assert.False(t, c.Tapped)
		assert.Equal(t, 0, c.Damage)
	}
}

func TestReviveLastCreature(t *testing.T) {
	f := newEffectFixture(t)
	fox := f.put(t, f.caster, zones.ZoneBoard, "fox")
	fox.Damage = 2
	require.NoError(t, f.zones.MoveToGraveyard(f.caster, fox))
	f.put(t, f.caster, zones.ZoneGraveyard, "fireball")

	out := f.resolver.Resolve(f.ctx(), catalog.Revive{})

	require.Len(t, out.Created, 1)
	revived, _ := f.caster.Board.Find(out.Created[0])
	require.NotNil(t, revived)
	assert.Equal(t, "fox", revived.CardID())
	assert.Equal(t, 0, revived.Damage)
	assert.Equal(t, 1, f.caster.Graveyard.Len())

	out = f.resolver.Resolve(f.ctx(), catalog.Revive{})
	assert.True(t, out.Fizzled)
}

func TestManaBoost(t *testing.T) {
	f := newEffectFixture(t)
	f.resolver.Resolve(f.ctx(), catalog.ManaBoost{Amount: 2, Element: mana.Water})
	assert.Equal(t, 2, f.caster.Pool.Get(mana.Water))
}

func TestTokens(t *testing.T) {
	f := newEffectFixture(t)
	out := f.resolver.Resolve(f.ctx(), catalog.Token{Token: "spirit", Count: 2})

	require.Len(t, out.Created, 2)
	for _, c := range f.caster.Creatures() {
		assert.True(t, c.IsToken())
		assert.True(t, c.Has(catalog.Flying))
	}

	out = f.resolver.Resolve(f.ctx(), catalog.Token{Token: "dragonling"})
	assert.True(t, out.Fizzled)
}

func TestDiscardDraw(t *testing.T) {
	f := newEffectFixture(t)
	f.put(t, f.opponent, zones.ZoneHand, "bear")
	f.fillDeck(t, f.caster, 5)

	out := f.resolver.Resolve(f.ctx(), catalog.Discard{Count: 2, DrawAfter: true})

	assert.Equal(t, catalog.TagDiscardDraw, out.Tag)
	assert.Len(t, out.Affected, 1)
	assert.Equal(t, 0, f.opponent.Hand.Len())
	assert.Equal(t, 1, f.opponent.Graveyard.Len())
	assert.Equal(t, 1, out.Drawn)
	assert.Equal(t, 1, f.caster.Hand.Len())
}

func TestDiscardEmptyHandFizzles(t *testing.T) {
	f := newEffectFixture(t)
	out := f.resolver.Resolve(f.ctx(), catalog.Discard{Count: 1})
	assert.True(t, out.Fizzled)
}

func TestIsPersistent(t *testing.T) {
	assert.True(t, IsPersistent(catalog.Draw{Count: 1}))
	assert.True(t, IsPersistent(catalog.Heal{Amount: 1}))
	assert.True(t, IsPersistent(catalog.Damage{Amount: 1}))
	assert.True(t, IsPersistent(catalog.ManaBoost{Amount: 1}))
	assert.False(t, IsPersistent(catalog.Damage{Amount: 1, AllCreatures: true}))
	assert.False(t, IsPersistent(catalog.AOE{Amount: 1}))
	assert.False(t, IsPersistent(catalog.DrawOnPlay{Count: 1}))
	assert.False(t, IsPersistent(catalog.Buff{Power: 1}))
	assert.False(t, IsPersistent(catalog.Token{Token: "spirit"}))

	cat, err := catalog.Default()
	require.NoError(t, err)
	gem, _ := cat.Lookup("gem")
	lens, _ := cat.Lookup("lens")
	assert.True(t, StaysOnBoard(gem))
	assert.False(t, StaysOnBoard(lens))
}

func TestUpkeepTriggersPersistentArtifacts(t *testing.T) {
	f := newEffectFixture(t)
	f.fillDeck(t, f.caster, 3)
	f.put(t, f.caster, zones.ZoneBoard, "wand") // damage 2
	f.put(t, f.caster, zones.ZoneBoard, "ring") // mana 1 colorless
	f.put(t, f.caster, zones.ZoneBoard, "gem")  // activated only
	f.put(t, f.caster, zones.ZoneBoard, "fox")

	outcomes := f.resolver.Upkeep(f.caster, f.opponent)

	require.Len(t, outcomes, 2)
	assert.Equal(t, 18, f.opponent.Life)
	assert.Equal(t, 1, f.caster.Pool.Get(mana.Colorless))

	var triggers int
	for _, e := range f.events {
		if e.Type == rules.EventUpkeepTriggered {
			triggers++
		}
	}
	assert.Equal(t, 2, triggers)
}
