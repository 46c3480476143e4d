package catalog

import (
	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

// EffectTag names an effect kind as it appears in card data and logs.
type EffectTag string

const (
	TagDamage      EffectTag = "damage"
	TagHeal        EffectTag = "heal"
	TagHealDraw    EffectTag = "heal_draw"
	TagDraw        EffectTag = "draw"
	TagDrawOnPlay  EffectTag = "draw_on_play"
	TagDrain       EffectTag = "drain"
	TagDestroy     EffectTag = "destroy"
	TagBuff        EffectTag = "buff"
	TagBuffDefense EffectTag = "buff_defense"
	TagTap         EffectTag = "tap"
	TagBounce      EffectTag = "bounce"
	TagRevive      EffectTag = "revive"
	TagAOE         EffectTag = "aoe"
	TagMana        EffectTag = "mana"
	TagToken       EffectTag = "token"
	TagDiscard     EffectTag = "discard"
	TagDiscardDraw EffectTag = "discard_draw"
)

// Effect is what a spell or artifact does. The set of variants is closed;
// resolvers switch over the concrete types.
type Effect interface {
	Tag() EffectTag
	isEffect()
}

// Damage deals Amount to the opponent (or a hinted creature), or to every
// opposing creature when AllCreatures is set.
type Damage struct {
	Amount       int
	AllCreatures bool
}

// Heal gains the caster Amount life.
type Heal struct{ Amount int }

// HealDraw gains Heal life and draws Draw cards.
type HealDraw struct{ Heal, Draw int }

// Draw draws Count cards. On an artifact it triggers every upkeep.
type Draw struct{ Count int }

// DrawOnPlay draws Count cards once when the artifact enters.
type DrawOnPlay struct{ Count int }

// Drain moves Amount life from the opponent to the caster.
type Drain struct{ Amount int }

// Destroy sends a random opposing creature to the graveyard.
type Destroy struct{}

// Buff adds Power/Toughness to one own creature, or all of them, and may
// grant keywords. Buffs last while the creature stays on the board.
type Buff struct {
	Power     int
	Toughness int
	All       bool
	Grant     Ability
}

// Tap taps a random untapped opposing creature.
type Tap struct{}

// Bounce returns up to Count random opposing creatures to their owner's hand.
type Bounce struct{ Count int }

// Revive returns the caster's most recently destroyed creature to the board.
type Revive struct{}

// AOE deals Amount to every creature on the opposing board.
type AOE struct{ Amount int }

// ManaBoost adds Amount mana of Element to the caster's pool.
type ManaBoost struct {
	Amount  int
	Element mana.Element
}

// Token creates Count copies of a token spec on the caster's board.
type Token struct {
	Token string
	Count int
}

// Discard removes Count random cards from the opponent's hand. With
// DrawAfter the caster draws as many as were discarded.
type Discard struct {
	Count     int
	DrawAfter bool
}

func (Damage) Tag() EffectTag     { return TagDamage }
func (Heal) Tag() EffectTag       { return TagHeal }
func (HealDraw) Tag() EffectTag   { return TagHealDraw }
func (Draw) Tag() EffectTag       { return TagDraw }
func (DrawOnPlay) Tag() EffectTag { return TagDrawOnPlay }
func (Drain) Tag() EffectTag      { return TagDrain }
func (Destroy) Tag() EffectTag    { return TagDestroy }
func (Tap) Tag() EffectTag        { return TagTap }
func (Bounce) Tag() EffectTag     { return TagBounce }
func (Revive) Tag() EffectTag     { return TagRevive }
func (AOE) Tag() EffectTag        { return TagAOE }
func (ManaBoost) Tag() EffectTag  { return TagMana }
func (Token) Tag() EffectTag      { return TagToken }

func (b Buff) Tag() EffectTag {
	if b.Power == 0 && b.Toughness > 0 {
		return TagBuffDefense
	}
	return TagBuff
}

func (d Discard) Tag() EffectTag {
	if d.DrawAfter {
		return TagDiscardDraw
	}
	return TagDiscard
}

func (Damage) isEffect()     {}
func (Heal) isEffect()       {}
func (HealDraw) isEffect()   {}
func (Draw) isEffect()       {}
func (DrawOnPlay) isEffect() {}
func (Drain) isEffect()      {}
func (Destroy) isEffect()    {}
func (Buff) isEffect()       {}
func (Tap) isEffect()        {}
func (Bounce) isEffect()     {}
func (Revive) isEffect()     {}
func (AOE) isEffect()        {}
func (ManaBoost) isEffect()  {}
func (Token) isEffect()      {}
func (Discard) isEffect()    {}
