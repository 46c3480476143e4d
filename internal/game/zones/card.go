package zones

import (
	"io"

	"github.com/google/uuid"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// IDFunc generates card instance ids.
type IDFunc func() string

// UUIDGenerator returns an IDFunc drawing UUIDs from r. Passing a seeded
// reader makes instance ids reproducible.
func UUIDGenerator(r io.Reader) IDFunc {
	return func() string {
		id, err := uuid.NewRandomFromReader(r)
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
}

// Card is a runtime card instance. The definition (or token spec) is shared
// and immutable; everything else belongs to this instance and to the zone
// holding it.
type Card struct {
	InstanceID string
	Def        *catalog.Definition // nil for tokens
	Token      *catalog.TokenSpec
	Owner      rules.Side

	Tapped          bool
	Damage          int
	SummoningSick   bool
	SelectedElement mana.Element
	PowerBonus      int
	ToughnessBonus  int
	Granted         catalog.Ability
	EnteredTurn     int

	// Died is set while a creature sits in the graveyard after leaving
	// the board.
	Died bool
}

// NewCard instantiates def for owner.
func NewCard(id string, def *catalog.Definition, owner rules.Side) *Card {
	return &Card{InstanceID: id, Def: def, Owner: owner}
}

// NewToken instantiates a token creature for owner.
func NewToken(id string, spec *catalog.TokenSpec, owner rules.Side) *Card {
	return &Card{InstanceID: id, Token: spec, Owner: owner}
}

// CardID returns the catalog id (or token id).
func (c *Card) CardID() string {
	if c.Token != nil {
		return c.Token.ID
	}
	return c.Def.ID
}

func (c *Card) Name() string {
	if c.Token != nil {
		return c.Token.Name
	}
	return c.Def.Name
}

// Category returns the card category. Tokens are creatures.
func (c *Card) Category() catalog.Category {
	if c.Token != nil {
		return catalog.CategoryCreature
	}
	return c.Def.Category
}

func (c *Card) IsCreature() bool { return c.Category() == catalog.CategoryCreature }
func (c *Card) IsLand() bool     { return c.Category() == catalog.CategoryLand }
func (c *Card) IsArtifact() bool { return c.Category() == catalog.CategoryArtifact }
func (c *Card) IsSpell() bool    { return c.Category() == catalog.CategorySpell }
func (c *Card) IsToken() bool    { return c.Token != nil }

// Power returns base power plus bonuses, never below zero.
func (c *Card) Power() int {
	base := 0
	switch {
	case c.Token != nil:
		base = c.Token.Power
	case c.Def != nil:
		base = c.Def.Power
	}
	if p := base + c.PowerBonus; p > 0 {
		return p
	}
	return 0
}

// Toughness returns base toughness plus bonuses, never below zero.
func (c *Card) Toughness() int {
	base := 0
	switch {
	case c.Token != nil:
		base = c.Token.Toughness
	case c.Def != nil:
		base = c.Def.Toughness
	}
	if t := base + c.ToughnessBonus; t > 0 {
		return t
	}
	return 0
}

// Abilities returns printed keywords plus granted ones.
func (c *Card) Abilities() catalog.Ability {
	base := catalog.None
	switch {
	case c.Token != nil:
		base = c.Token.Abilities
	case c.Def != nil:
		base = c.Def.Abilities
	}
	return base | c.Granted
}

// Has reports whether the card has every keyword in a.
func (c *Card) Has(a catalog.Ability) bool {
	return c.Abilities().Has(a)
}

// Cost returns the card's cost. Tokens cost nothing.
func (c *Card) Cost() mana.Cost {
	if c.Def == nil || c.Def.Cost == nil {
		return mana.Cost{}
	}
	return c.Def.Cost
}

// IsLethal reports whether a creature's marked damage has reached its toughness.
func (c *Card) IsLethal() bool {
	return c.IsCreature() && c.Damage >= c.Toughness()
}

// LethalDamage returns the damage still needed to destroy the creature.
func (c *Card) LethalDamage() int {
	if remaining := c.Toughness() - c.Damage; remaining > 0 {
		return remaining
	}
	return 0
}

// resetBoardState clears everything an instance accumulates on the board.
func (c *Card) resetBoardState() {
	c.Tapped = false
	c.Damage = 0
	c.SummoningSick = false
	c.SelectedElement = ""
	c.clearBuffs()
}

func (c *Card) clearBuffs() {
	c.PowerBonus = 0
	c.ToughnessBonus = 0
	c.Granted = catalog.None
}
