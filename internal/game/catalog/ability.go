package catalog

import (
	"fmt"
	"strings"
)

// Ability is a set of keyword abilities stored as a bitset. A single keyword
// is an Ability with one bit set.
type Ability uint16

const (
	Flying Ability = 1 << iota
	Trample
	Haste
	Vigilance
	Defender
	Reach
	Menace
	Deathtouch
	Lifelink
	FirstStrike
	DoubleStrike
	Hexproof
	Flash
	Unblockable
)

// None is the empty ability set.
const None Ability = 0

var abilityOrder = []Ability{
	Flying, Trample, Haste, Vigilance, Defender, Reach, Menace,
	Deathtouch, Lifelink, FirstStrike, DoubleStrike, Hexproof, Flash, Unblockable,
}

var abilityNames = map[Ability]string{
	Flying:       "flying",
	Trample:      "trample",
	Haste:        "haste",
	Vigilance:    "vigilance",
	Defender:     "defender",
	Reach:        "reach",
	Menace:       "menace",
	Deathtouch:   "deathtouch",
	Lifelink:     "lifelink",
	FirstStrike:  "first_strike",
	DoubleStrike: "double_strike",
	Hexproof:     "hexproof",
	Flash:        "flash",
	Unblockable:  "unblockable",
}

var abilitiesByName = func() map[string]Ability {
	m := make(map[string]Ability, len(abilityNames))
	for a, name := range abilityNames {
		m[name] = a
	}
	return m
}()

// ParseAbility converts a keyword name such as "first_strike" to an Ability.
func ParseAbility(name string) (Ability, error) {
	a, ok := abilitiesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return None, fmt.Errorf("unknown ability: %q", name)
	}
	return a, nil
}

// ParseAbilities combines keyword names into one set.
func ParseAbilities(names []string) (Ability, error) {
	set := None
	for _, name := range names {
		a, err := ParseAbility(name)
		if err != nil {
			return None, err
		}
		set |= a
	}
	return set, nil
}

// Has reports whether every keyword in other is present.
func (a Ability) Has(other Ability) bool {
	return other != None && a&other == other
}

// With returns the union of both sets.
func (a Ability) With(other Ability) Ability {
	return a | other
}

// List returns the single keywords in canonical order.
func (a Ability) List() []Ability {
	out := make([]Ability, 0, 4)
	for _, k := range abilityOrder {
		if a&k != 0 {
			out = append(out, k)
		}
	}
	return out
}

// Names returns the keyword names in canonical order.
func (a Ability) Names() []string {
	list := a.List()
	out := make([]string, len(list))
	for i, k := range list {
		out[i] = abilityNames[k]
	}
	return out
}

func (a Ability) String() string {
	if a == None {
		return ""
	}
	return strings.Join(a.Names(), ",")
}
