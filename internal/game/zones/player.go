package zones

import (
	"fmt"

	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// Player is one seat's state: life, mana pool and the four zones.
type Player struct {
	Side      rules.Side
	Life      int
	Pool      *mana.Pool
	Deck      *Zone
	Hand      *Zone
	Board     *Zone
	Graveyard *Zone

	LandsPlayedThisTurn int
	HasAttackedThisTurn bool
	Mulliganed          bool
	Elements            []mana.Element
}

// NewPlayer creates a player with empty zones.
func NewPlayer(side rules.Side, life int) *Player {
	return &Player{
		Side:      side,
		Life:      life,
		Pool:      mana.NewPool(),
		Deck:      NewZone(ZoneDeck),
		Hand:      NewZone(ZoneHand),
		Board:     NewZone(ZoneBoard),
		Graveyard: NewZone(ZoneGraveyard),
	}
}

// Zone returns the named zone.
func (p *Player) Zone(name ZoneName) *Zone {
	switch name {
	case ZoneDeck:
		return p.Deck
	case ZoneHand:
		return p.Hand
	case ZoneBoard:
		return p.Board
	case ZoneGraveyard:
		return p.Graveyard
	}
	return nil
}

// ChangeLife applies delta with a floor of zero and no upper bound, and
// returns the change actually applied.
func (p *Player) ChangeLife(delta int) int {
	before := p.Life
	p.Life += delta
	if p.Life < 0 {
		p.Life = 0
	}
	return p.Life - before
}

// Locate finds an instance in any of the player's zones.
func (p *Player) Locate(instanceID string) (*Card, ZoneName, bool) {
	for _, name := range ZoneNames {
		if c, i := p.Zone(name).Find(instanceID); i >= 0 {
			return c, name, true
		}
	}
	return nil, "", false
}

// Creatures returns the creatures on the board.
func (p *Player) Creatures() []*Card {
	return p.Board.Filter((*Card).IsCreature)
}

// Lands returns the lands on the board.
func (p *Player) Lands() []*Card {
	return p.Board.Filter((*Card).IsLand)
}

// Artifacts returns the artifacts on the board.
func (p *Player) Artifacts() []*Card {
	return p.Board.Filter((*Card).IsArtifact)
}

// CheckInvariants verifies the state a correct engine never breaks: each
// instance in exactly one zone, no negative mana, life or damage, only
// permanents on the board.
func (p *Player) CheckInvariants() error {
	seen := make(map[string]ZoneName)
	for _, name := range ZoneNames {
		for _, c := range p.Zone(name).cards {
			if prev, dup := seen[c.InstanceID]; dup {
				return fmt.Errorf("%s: instance %s in both %s and %s", p.Side, c.InstanceID, prev, name)
			}
			seen[c.InstanceID] = name
			if c.Damage < 0 {
				return fmt.Errorf("%s: instance %s has negative damage %d", p.Side, c.InstanceID, c.Damage)
			}
			if name == ZoneBoard && c.IsSpell() {
				return fmt.Errorf("%s: spell %s on the board", p.Side, c.InstanceID)
			}
		}
	}
	for e, n := range p.Pool.Snapshot() {
		if n < 0 {
			return fmt.Errorf("%s: negative %s mana %d", p.Side, e, n)
		}
	}
	if p.Life < 0 {
		return fmt.Errorf("%s: negative life %d", p.Side, p.Life)
	}
	if p.LandsPlayedThisTurn < 0 || p.LandsPlayedThisTurn > 1 {
		return fmt.Errorf("%s: %d lands played this turn", p.Side, p.LandsPlayedThisTurn)
	}
	return nil
}
