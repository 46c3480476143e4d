package catalog

import (
	"fmt"

	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

// Category is the broad card type.
type Category string

const (
	CategoryLand     Category = "land"
	CategoryCreature Category = "creature"
	CategorySpell    Category = "spell"
	CategoryArtifact Category = "artifact"
)

// Categories lists every category in catalog order.
var Categories = []Category{CategoryLand, CategoryCreature, CategorySpell, CategoryArtifact}

// ParseCategory converts a name to a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// WastelandID is the colorless land every constructed deck carries.
const WastelandID = "wasteland"

// Definition is an immutable card definition shared by every instance of
// the card. Callers must not modify it.
type Definition struct {
	ID        string
	Name      string
	Category  Category
	Cost      mana.Cost
	Power     int
	Toughness int
	Abilities Ability
	// Effect resolves when a spell or artifact is played. Persistent
	// artifact effects trigger again at each upkeep.
	Effect Effect
	// Activated resolves when an artifact is tapped, once per turn.
	Activated Effect
	// Produces lists the elements a land taps for. AnyElement lands tap
	// for any color.
	Produces   []mana.Element
	AnyElement bool
}

func (d *Definition) IsLand() bool     { return d.Category == CategoryLand }
func (d *Definition) IsCreature() bool { return d.Category == CategoryCreature }
func (d *Definition) IsSpell() bool    { return d.Category == CategorySpell }
func (d *Definition) IsArtifact() bool { return d.Category == CategoryArtifact }

// ProducibleElements returns the elements a land can tap for.
func (d *Definition) ProducibleElements() []mana.Element {
	if !d.IsLand() {
		return nil
	}
	if d.AnyElement {
		return append([]mana.Element(nil), mana.Colors...)
	}
	return append([]mana.Element(nil), d.Produces...)
}

// CanProduce reports whether the land can tap for e.
func (d *Definition) CanProduce(e mana.Element) bool {
	for _, p := range d.ProducibleElements() {
		if p == e {
			return true
		}
	}
	return false
}

// NeedsElementChoice reports whether tapping the land requires choosing
// among several elements.
func (d *Definition) NeedsElementChoice() bool {
	return d.AnyElement || len(d.Produces) > 1
}

// TokenSpec describes a token creature. Tokens have no definition backing
// and cost nothing.
type TokenSpec struct {
	ID        string
	Name      string
	Power     int
	Toughness int
	Abilities Ability
}
