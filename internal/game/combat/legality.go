package combat

import (
	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// CanAttack reports whether a creature may be declared as an attacker:
// untapped, not summoning sick and without defender.
func CanAttack(c *zones.Card) bool {
	return c != nil &&
		c.IsCreature() &&
		!c.Tapped &&
		!c.SummoningSick &&
		!c.Has(catalog.Defender)
}

// CanBlock reports whether blocker may block attacker. Flying attackers can
// only be blocked by flying or reach creatures; unblockable ones not at all.
func CanBlock(blocker, attacker *zones.Card) bool {
	if blocker == nil || attacker == nil || !blocker.IsCreature() || blocker.Tapped {
		return false
	}
	if attacker.Has(catalog.Unblockable) {
		return false
	}
	if attacker.Has(catalog.Flying) && !blocker.Has(catalog.Flying) && !blocker.Has(catalog.Reach) {
		return false
	}
	return true
}

// NormalizeBlocks returns the legal subset of blocks. Unknown, illegal and
// reused blockers are dropped, and a menace attacker left with a single
// blocker becomes unblocked.
func NormalizeBlocks(attackers []*zones.Card, defending *zones.Player, blocks map[string][]string) map[string][]string {
	out := make(map[string][]string)
	used := make(map[string]bool)
	for _, attacker := range attackers {
		var legal []string
		for _, blockerID := range blocks[attacker.InstanceID] {
			if used[blockerID] {
				continue
			}
			blocker, i := defending.Board.Find(blockerID)
			if i < 0 || !CanBlock(blocker, attacker) {
				continue
			}
			used[blockerID] = true
			legal = append(legal, blockerID)
		}
		if attacker.Has(catalog.Menace) && len(legal) == 1 {
			delete(used, legal[0])
			legal = nil
		}
		if len(legal) > 0 {
			out[attacker.InstanceID] = legal
		}
	}
	return out
}

// TapAttackers taps every attacker without vigilance.
func TapAttackers(attackers []*zones.Card) {
	for _, a := range attackers {
		if !a.Has(catalog.Vigilance) {
			a.Tapped = true
		}
	}
}

// NeedsFirstStrike reports whether any participant has first or double strike.
func NeedsFirstStrike(participants []*zones.Card) bool {
	for _, c := range participants {
		if c.Has(catalog.FirstStrike) || c.Has(catalog.DoubleStrike) {
			return true
		}
	}
	return false
}
