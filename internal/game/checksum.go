package game

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

// ComputeChecksum returns a hex blake2b-256 digest of a canonical rendering
// of the view. Views of equal game state hash equally regardless of map
// iteration order, and log timestamps are not part of a view.
func ComputeChecksum(view *GameView) string {
	if view == nil {
		return ""
	}
	sum := blake2b.Sum256([]byte(canonical(view)))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether view hashes to expected.
func VerifyChecksum(view *GameView, expected string) bool {
	return ComputeChecksum(view) == expected
}

func canonical(v *GameView) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "GAME:%s|%s|%d|%s|%s|%s|%t|%s\n",
		v.GameID, v.Difficulty, v.Turn, v.Active, v.Phase, v.Step, v.Over, v.Winner)
	fmt.Fprintf(&buf, "ATTACKERS:%s\n", strings.Join(v.Attackers, ","))

	players := append([]PlayerView(nil), v.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].Side < players[j].Side })
	for _, p := range players {
		elements := make([]string, len(p.Elements))
		for i, e := range p.Elements {
			elements[i] = string(e)
		}
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%s|%d|%d|%d|%t|%t\n",
			p.Side, p.Life, strings.Join(elements, ","), p.DeckCount, p.HandCount,
			p.LandsPlayedThisTurn, p.HasAttackedThisTurn, p.Mulliganed)

		buf.WriteString("POOL:")
		for _, e := range mana.Elements {
			if n := p.Pool[e]; n > 0 {
				fmt.Fprintf(&buf, "%s=%d;", e, n)
			}
		}
		buf.WriteString("\n")

		// Zone order is game state: the board and graveyard keep play order.
		writeCards(&buf, "HAND", p.Hand)
		writeCards(&buf, "BOARD", p.Board)
		writeCards(&buf, "GRAVEYARD", p.Graveyard)
	}
	return buf.String()
}

func writeCards(buf *bytes.Buffer, zone string, cards []CardView) {
	for _, c := range cards {
		fmt.Fprintf(buf, "%s:%s|%s|%d/%d|%s|%t|%d|%t|%s|%t\n",
			zone, c.InstanceID, c.CardID, c.Power, c.Toughness,
			strings.Join(c.Abilities, ","), c.Tapped, c.Damage, c.SummoningSick,
			c.SelectedElement, c.Token)
	}
}
