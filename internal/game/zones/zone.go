package zones

import (
	"math/rand"
)

// ZoneName identifies one of a player's four zones.
type ZoneName string

const (
	ZoneDeck      ZoneName = "deck"
	ZoneHand      ZoneName = "hand"
	ZoneBoard     ZoneName = "board"
	ZoneGraveyard ZoneName = "graveyard"

	// zoneGone is where a token goes when it leaves the board other than
	// by dying.
	zoneGone ZoneName = "gone"
)

// ZoneNames lists the zones in lookup order.
var ZoneNames = []ZoneName{ZoneDeck, ZoneHand, ZoneBoard, ZoneGraveyard}

// Zone is an ordered sequence of cards. The top of the zone is the end of
// the slice.
type Zone struct {
	name  ZoneName
	cards []*Card
}

// NewZone creates an empty zone.
func NewZone(name ZoneName) *Zone {
	return &Zone{name: name}
}

func (z *Zone) Name() ZoneName { return z.name }
func (z *Zone) Len() int       { return len(z.cards) }

// Cards returns a copy of the zone contents, bottom first.
func (z *Zone) Cards() []*Card {
	return append([]*Card(nil), z.cards...)
}

// Set replaces the zone contents.
func (z *Zone) Set(cards []*Card) {
	z.cards = append([]*Card(nil), cards...)
}

// Push puts a card on top.
func (z *Zone) Push(c *Card) {
	z.cards = append(z.cards, c)
}

// Top returns the top card without removing it.
func (z *Zone) Top() *Card {
	if len(z.cards) == 0 {
		return nil
	}
	return z.cards[len(z.cards)-1]
}

// Pop removes and returns the top card, or nil when empty.
func (z *Zone) Pop() *Card {
	if len(z.cards) == 0 {
		return nil
	}
	c := z.cards[len(z.cards)-1]
	z.cards = z.cards[:len(z.cards)-1]
	return c
}

// Find returns the card with the given instance id and its index.
func (z *Zone) Find(instanceID string) (*Card, int) {
	for i, c := range z.cards {
		if c.InstanceID == instanceID {
			return c, i
		}
	}
	return nil, -1
}

// Contains reports whether the zone holds the instance.
func (z *Zone) Contains(instanceID string) bool {
	_, i := z.Find(instanceID)
	return i >= 0
}

// Remove takes the card with the given instance id out of the zone,
// preserving the order of the rest.
func (z *Zone) Remove(instanceID string) (*Card, bool) {
	c, i := z.Find(instanceID)
	if i < 0 {
		return nil, false
	}
	z.cards = append(z.cards[:i], z.cards[i+1:]...)
	return c, true
}

// Clear empties the zone and returns what it held.
func (z *Zone) Clear() []*Card {
	out := z.cards
	z.cards = nil
	return out
}

// Filter returns the cards matching keep, bottom first.
func (z *Zone) Filter(keep func(*Card) bool) []*Card {
	var out []*Card
	for _, c := range z.cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Shuffle randomizes the zone order with Fisher-Yates.
func (z *Zone) Shuffle(rng *rand.Rand) {
	Shuffle(z.cards, rng)
}

// Shuffle permutes cards in place with Fisher-Yates. Every permutation is
// equally likely given a uniform rng.
func Shuffle(cards []*Card, rng *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
