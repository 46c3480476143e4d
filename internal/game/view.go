package game

import (
	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/watchers"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// GameView is a snapshot of a game for display, tests and replays. Views
// share nothing with live game state.
type GameView struct {
	GameID     string           `json:"game_id"`
	Difficulty ai.Difficulty    `json:"difficulty"`
	Turn       int              `json:"turn"`
	Active     rules.Side       `json:"active"`
	Phase      string           `json:"phase"`
	Step       string           `json:"step"`
	Over       bool             `json:"over"`
	Winner     rules.Side       `json:"winner,omitempty"`
	Attackers  []string         `json:"attackers"`
	Players    []PlayerView     `json:"players"`
	Stats      watchers.Summary `json:"stats"`
}

// PlayerView is one seat's visible state.
type PlayerView struct {
	Side                rules.Side           `json:"side"`
	Life                int                  `json:"life"`
	Elements            []mana.Element       `json:"elements"`
	Pool                map[mana.Element]int `json:"pool"`
	DeckCount           int                  `json:"deck_count"`
	HandCount           int                  `json:"hand_count"`
	Hand                []CardView           `json:"hand,omitempty"`
	Board               []CardView           `json:"board"`
	Graveyard           []CardView           `json:"graveyard"`
	LandsPlayedThisTurn int                  `json:"lands_played_this_turn"`
	HasAttackedThisTurn bool                 `json:"has_attacked_this_turn"`
	Mulliganed          bool                 `json:"mulliganed"`
}

// CardView is a card instance as shown to clients.
type CardView struct {
	InstanceID      string       `json:"instance_id"`
	CardID          string       `json:"card_id"`
	Name            string       `json:"name"`
	Category        string       `json:"category"`
	Cost            string       `json:"cost,omitempty"`
	Power           int          `json:"power"`
	Toughness       int          `json:"toughness"`
	Abilities       []string     `json:"abilities,omitempty"`
	Tapped          bool         `json:"tapped"`
	Damage          int          `json:"damage"`
	SummoningSick   bool         `json:"summoning_sick"`
	SelectedElement mana.Element `json:"selected_element,omitempty"`
	Token           bool         `json:"token"`
}

// Player returns the view of side, or nil.
func (v *GameView) Player(side rules.Side) *PlayerView {
	for i := range v.Players {
		if v.Players[i].Side == side {
			return &v.Players[i]
		}
	}
	return nil
}

// FindCard looks up an instance on the board, in the hand or in the graveyard.
func (pv *PlayerView) FindCard(instanceID string) (CardView, bool) {
	for _, zone := range [][]CardView{pv.Board, pv.Hand, pv.Graveyard} {
		for _, c := range zone {
			if c.InstanceID == instanceID {
				return c, true
			}
		}
	}
	return CardView{}, false
}

func (s *session) view(viewer rules.Side) *GameView {
	v := &GameView{
		GameID:     s.id,
		Difficulty: s.difficulty,
		Turn:       s.turns.TurnNumber(),
		Active:     s.turns.Active(),
		Phase:      s.turns.Phase().String(),
		Step:       s.turns.Step().String(),
		Over:       s.over,
		Attackers:  append([]string{}, s.attackers...),
		Stats:      s.stats.Summary(),
	}
	if winner, ok := s.turns.Winner(); ok {
		v.Winner = winner
	}
	for _, side := range rules.Sides {
		p := s.player(side)
		pv := PlayerView{
			Side:                side,
			Life:                p.Life,
			Elements:            append([]mana.Element{}, p.Elements...),
			Pool:                p.Pool.Snapshot(),
			DeckCount:           p.Deck.Len(),
			HandCount:           p.Hand.Len(),
			Board:               cardViews(p.Board),
			Graveyard:           cardViews(p.Graveyard),
			LandsPlayedThisTurn: p.LandsPlayedThisTurn,
			HasAttackedThisTurn: p.HasAttackedThisTurn,
			Mulliganed:          p.Mulliganed,
		}
		if viewer == "" || viewer == side {
			pv.Hand = cardViews(p.Hand)
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

func cardViews(z *zones.Zone) []CardView {
	cards := z.Cards()
	out := make([]CardView, 0, len(cards))
	for _, c := range cards {
		out = append(out, newCardView(c))
	}
	return out
}

func newCardView(c *zones.Card) CardView {
	cv := CardView{
		InstanceID:      c.InstanceID,
		CardID:          c.CardID(),
		Name:            c.Name(),
		Category:        string(c.Category()),
		Power:           c.Power(),
		Toughness:       c.Toughness(),
		Abilities:       c.Abilities().Names(),
		Tapped:          c.Tapped,
		Damage:          c.Damage,
		SummoningSick:   c.SummoningSick,
		SelectedElement: c.SelectedElement,
		Token:           c.IsToken(),
	}
	if cost := c.Cost(); len(cost) > 0 {
		cv.Cost = cost.String()
	}
	return cv
}
