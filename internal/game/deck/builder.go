package deck

import (
	"fmt"
	"math/rand"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

const (
	// Size is the number of cards in a constructed deck.
	Size = 60
	// LandCount is the number of lands, colorless included.
	LandCount = 25
	// WastelandCount is the number of colorless lands in every deck.
	WastelandCount = 3
	// NonlandCount is the number of creatures, spells and artifacts.
	NonlandCount = Size - LandCount
)

// Builder constructs randomized decks from a catalog.
type Builder struct {
	catalog *catalog.Catalog
	rng     *rand.Rand
	ids     zones.IDFunc
}

// NewBuilder creates a deck builder drawing randomness from rng. A nil ids
// draws instance ids from rng as well.
func NewBuilder(cat *catalog.Catalog, rng *rand.Rand, ids zones.IDFunc) *Builder {
	if ids == nil {
		ids = zones.UUIDGenerator(rng)
	}
	return &Builder{catalog: cat, rng: rng, ids: ids}
}

// ValidateElements checks a deck's element choice: one or two distinct colors.
func ValidateElements(elements []mana.Element) error {
	if len(elements) == 0 || len(elements) > 2 {
		return rules.Illegal("choose one or two elements, got %d", len(elements))
	}
	seen := make(map[mana.Element]bool, 2)
	for _, e := range elements {
		if !e.IsColor() {
			return rules.Illegal("%q is not a color", e)
		}
		if seen[e] {
			return rules.Illegal("element %s chosen twice", e)
		}
		seen[e] = true
	}
	return nil
}

// Legal reports whether def can be cast with mana from elements plus colorless.
func Legal(def *catalog.Definition, elements []mana.Element) bool {
	for e, n := range def.Cost {
		if n == 0 || e == mana.Colorless {
			continue
		}
		found := false
		for _, chosen := range elements {
			if chosen == e {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Build returns a shuffled 60-card deck for owner: 22 colored lands split
// between the chosen elements, 3 wastelands and 35 legal nonland cards.
func (b *Builder) Build(owner rules.Side, elements []mana.Element) ([]*zones.Card, error) {
	if err := ValidateElements(elements); err != nil {
		return nil, err
	}

	cards := make([]*zones.Card, 0, Size)

	colored := LandCount - WastelandCount
	split := []int{colored}
	if len(elements) == 2 {
		first := colored/2 - 1 + b.rng.Intn(3)
		split = []int{first, colored - first}
	}
	for i, e := range elements {
		land, ok := b.catalog.BasicLand(e)
		if !ok {
			return nil, fmt.Errorf("catalog has no basic land for %s", e)
		}
		for n := 0; n < split[i]; n++ {
			cards = append(cards, zones.NewCard(b.ids(), land, owner))
		}
	}
	wasteland, ok := b.catalog.Lookup(catalog.WastelandID)
	if !ok {
		return nil, fmt.Errorf("catalog has no %s", catalog.WastelandID)
	}
	for n := 0; n < WastelandCount; n++ {
		cards = append(cards, zones.NewCard(b.ids(), wasteland, owner))
	}

	pools := make(map[catalog.Category][]*catalog.Definition)
	var fallback []*catalog.Definition
	for _, def := range b.catalog.All() {
		if def.IsLand() || !Legal(def, elements) {
			continue
		}
		pools[def.Category] = append(pools[def.Category], def)
		fallback = append(fallback, def)
	}
	if len(fallback) == 0 {
		return nil, fmt.Errorf("no legal nonland cards for %v", elements)
	}

	creatures := 18 + b.rng.Intn(7)
	spells := 7 + b.rng.Intn(7)
	if spells > NonlandCount-creatures {
		spells = NonlandCount - creatures
	}
	artifacts := NonlandCount - creatures - spells

	for _, quota := range []struct {
		category catalog.Category
		count    int
	}{
		{catalog.CategoryCreature, creatures},
		{catalog.CategorySpell, spells},
		{catalog.CategoryArtifact, artifacts},
	} {
		pool := pools[quota.category]
		if len(pool) == 0 {
			pool = fallback
		}
		for n := 0; n < quota.count; n++ {
			def := pool[b.rng.Intn(len(pool))]
			cards = append(cards, zones.NewCard(b.ids(), def, owner))
		}
	}

	Shuffle(cards, b.rng)
	return cards, nil
}

// RandomElements picks n distinct colors.
func RandomElements(rng *rand.Rand, n int) []mana.Element {
	colors := append([]mana.Element(nil), mana.Colors...)
	for i := len(colors) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		colors[i], colors[j] = colors[j], colors[i]
	}
	if n > len(colors) {
		n = len(colors)
	}
	return colors[:n]
}

// Shuffle permutes cards in place with Fisher-Yates.
func Shuffle(cards []*zones.Card, rng *rand.Rand) {
	zones.Shuffle(cards, rng)
}
