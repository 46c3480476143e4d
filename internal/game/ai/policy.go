// Package ai holds the computer opponent's decision policy.
package ai

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/combat"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// Difficulty selects how the policy plays.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every difficulty, easiest first.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty parses a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty: %q", s)
	}
}

// Policy makes the AI's choices. It is not safe for concurrent use; the
// engine calls it under the game's processing lock.
type Policy struct {
	difficulty Difficulty
	rng        *rand.Rand
}

// NewPolicy creates a policy. An unknown difficulty plays as easy.
func NewPolicy(difficulty Difficulty, rng *rand.Rand) *Policy {
	if _, err := ParseDifficulty(string(difficulty)); err != nil {
		difficulty = Easy
	}
	return &Policy{difficulty: difficulty, rng: rng}
}

func (p *Policy) Difficulty() Difficulty { return p.difficulty }

// CastsSpells reports whether the policy casts spells on its turn.
func (p *Policy) CastsSpells() bool {
	return p.difficulty == Hard
}

// ChooseLand picks the land to play from hand: the first one that produces
// an element the hand needs, else the first land.
func (p *Policy) ChooseLand(hand []*zones.Card) *zones.Card {
	demand := elementDemand(hand)
	var first *zones.Card
	for _, c := range hand {
		if !c.IsLand() {
			continue
		}
		if first == nil {
			first = c
		}
		for _, e := range c.Def.ProducibleElements() {
			if demand[e] > 0 {
				return c
			}
		}
	}
	return first
}

// ChooseLandElement picks which element a multi-element land should produce:
// the one in most demand in hand, ties going to the land's first element.
func (p *Policy) ChooseLandElement(land *zones.Card, hand []*zones.Card) mana.Element {
	options := land.Def.ProducibleElements()
	if len(options) == 0 {
		return mana.Colorless
	}
	demand := elementDemand(hand)
	best := options[0]
	for _, e := range options[1:] {
		if demand[e] > demand[best] {
			best = e
		}
	}
	return best
}

// OrderCreatures returns castable creatures in the order the policy tries
// to play them.
func (p *Policy) OrderCreatures(cards []*zones.Card) []*zones.Card {
	out := append([]*zones.Card(nil), cards...)
	switch p.difficulty {
	case Medium:
		sort.SliceStable(out, func(i, j int) bool {
			return statTotal(out[i]) > statTotal(out[j])
		})
	case Hard:
		sort.SliceStable(out, func(i, j int) bool {
			return efficiency(out[i]) > efficiency(out[j])
		})
	}
	return out
}

// ChooseAttackers picks attackers among creatures that can attack.
func (p *Policy) ChooseAttackers(eligible []*zones.Card) []*zones.Card {
	var out []*zones.Card
	switch p.difficulty {
	case Easy:
		for _, c := range eligible {
			if p.rng.Intn(2) == 1 {
				out = append(out, c)
			}
		}
	case Medium:
		out = append(out, eligible...)
	case Hard:
		sorted := append([]*zones.Card(nil), eligible...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return statTotal(sorted[i]) > statTotal(sorted[j])
		})
		// The strongest creature stays home when there is a choice.
		if len(sorted) > 1 {
			sorted = sorted[1:]
		}
		out = sorted
	}
	return out
}

// DeclareBlockers assigns each attacker the first unused legal blocker
// whose power is at least the attacker's power minus one. Menace attackers
// get two such blockers or none.
func (p *Policy) DeclareBlockers(attackers, defenders []*zones.Card) map[string][]string {
	blocks := make(map[string][]string)
	used := make(map[string]bool)
	for _, attacker := range attackers {
		need := 1
		if attacker.Has(catalog.Menace) {
			need = 2
		}
		var chosen []string
		for _, b := range defenders {
			if len(chosen) == need {
				break
			}
			if used[b.InstanceID] || !combat.CanBlock(b, attacker) || b.Power() < attacker.Power()-1 {
				continue
			}
			chosen = append(chosen, b.InstanceID)
		}
		if len(chosen) < need {
			continue
		}
		for _, id := range chosen {
			used[id] = true
		}
		blocks[attacker.InstanceID] = chosen
	}
	return blocks
}

func statTotal(c *zones.Card) int {
	return c.Power() + c.Toughness()
}

func efficiency(c *zones.Card) float64 {
	total := c.Cost().Total()
	if total == 0 {
		return float64(statTotal(c))
	}
	return float64(statTotal(c)) / float64(total)
}

// elementDemand counts colored cost units of the nonland cards in hand.
func elementDemand(hand []*zones.Card) map[mana.Element]int {
	demand := make(map[mana.Element]int)
	for _, c := range hand {
		if c.IsLand() {
			continue
		}
		for e, n := range c.Cost() {
			if e.IsColor() {
				demand[e] += n
			}
		}
	}
	return demand
}
