package zones

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// Manager moves card instances between zones. Every move removes the card
// from its current zone before appending it to the destination, and
// publishes a zone change event. Callers serialize access.
type Manager struct {
	logger *zap.Logger
	bus    *rules.EventBus
	ids    IDFunc
	turn   func() int
}

// NewManager creates a zone manager. A nil ids uses random UUIDs.
func NewManager(logger *zap.Logger, bus *rules.EventBus, ids IDFunc) *Manager {
	if ids == nil {
		ids = uuid.NewString
	}
	return &Manager{logger: logger, bus: bus, ids: ids}
}

// SetTurnSource sets the function used to stamp EnteredTurn on new permanents.
func (m *Manager) SetTurnSource(turn func() int) {
	m.turn = turn
}

// NewInstance creates a card instance of def with a fresh id.
func (m *Manager) NewInstance(def *catalog.Definition, owner rules.Side) *Card {
	return NewCard(m.ids(), def, owner)
}

// Draw moves the top card of the deck to the hand. Drawing from an empty
// deck does nothing and returns false.
func (m *Manager) Draw(p *Player) (*Card, bool) {
	card := p.Deck.Pop()
	if card == nil {
		return nil, false
	}
	p.Hand.Push(card)
	m.publishMove(p, card, ZoneDeck, ZoneHand)
	m.bus.Publish(rules.NewEvent(rules.EventDrewCard, card.InstanceID, card.CardID(), p.Side))
	return card, true
}

// DrawN draws up to n cards and returns the ones drawn.
func (m *Manager) DrawN(p *Player, n int) []*Card {
	var drawn []*Card
	for i := 0; i < n; i++ {
		card, ok := m.Draw(p)
		if !ok {
			break
		}
		drawn = append(drawn, card)
	}
	return drawn
}

// Play moves a card from the hand to dest. Permanents entering the board
// start untapped and creatures are summoning sick unless they have haste.
func (m *Manager) Play(p *Player, card *Card, dest ZoneName) error {
	if card == nil {
		return fmt.Errorf("card is nil")
	}
	if _, ok := p.Hand.Remove(card.InstanceID); !ok {
		return fmt.Errorf("card %s is not in %s's hand", card.InstanceID, p.Side)
	}
	target := p.Zone(dest)
	if target == nil {
		p.Hand.Push(card)
		return fmt.Errorf("unknown zone %q", dest)
	}
	if dest == ZoneBoard {
		m.enterBoard(card)
	}
	target.Push(card)
	m.publishMove(p, card, ZoneHand, dest)
	return nil
}

// MoveToGraveyard moves a card from wherever it is to the graveyard. Marked
// damage stays on the instance; buffs do not.
func (m *Manager) MoveToGraveyard(p *Player, card *Card) error {
	from, err := m.take(p, card)
	if err != nil {
		return err
	}
	card.Tapped = false
	card.clearBuffs()
	card.Died = from == ZoneBoard && card.IsCreature()
	p.Graveyard.Push(card)
	m.publishMove(p, card, from, ZoneGraveyard)
	if from == ZoneBoard && card.IsCreature() {
		m.bus.Publish(rules.NewEventWithAmount(rules.EventCreatureDied, card.InstanceID, card.CardID(), p.Side, card.Damage))
	}
	return nil
}

// ReturnToHand bounces a card from the board to its owner's hand, resetting
// tapped state, damage and buffs. A bounced token ceases to exist.
func (m *Manager) ReturnToHand(p *Player, card *Card) error {
	if _, ok := p.Board.Remove(card.InstanceID); !ok {
		return fmt.Errorf("card %s is not on %s's board", card.InstanceID, p.Side)
	}
	card.resetBoardState()
	if card.IsToken() {
		m.publishMove(p, card, ZoneBoard, zoneGone)
		return nil
	}
	p.Hand.Push(card)
	m.publishMove(p, card, ZoneBoard, ZoneHand)
	return nil
}

// Discard moves a card from the hand to the graveyard.
func (m *Manager) Discard(p *Player, card *Card) error {
	if _, ok := p.Hand.Remove(card.InstanceID); !ok {
		return fmt.Errorf("card %s is not in %s's hand", card.InstanceID, p.Side)
	}
	p.Graveyard.Push(card)
	m.publishMove(p, card, ZoneHand, ZoneGraveyard)
	return nil
}

// CreateToken puts a new token creature onto the board.
func (m *Manager) CreateToken(p *Player, spec *catalog.TokenSpec) *Card {
	card := NewToken(m.ids(), spec, p.Side)
	m.enterBoard(card)
	p.Board.Push(card)
	m.bus.Publish(rules.NewEvent(rules.EventTokenCreated, card.InstanceID, spec.ID, p.Side))
	if m.logger != nil {
		m.logger.Debug("created token",
			zap.String("token", spec.ID),
			zap.String("card_id", card.InstanceID),
			zap.String("side", string(p.Side)),
		)
	}
	return card
}

// Revive returns the most recently destroyed creature in the graveyard to
// the board as a fresh instance: new id, no damage, untapped. Creatures that
// were discarded or milled never died and are skipped.
func (m *Manager) Revive(p *Player) (*Card, bool) {
	cards := p.Graveyard.cards
	for i := len(cards) - 1; i >= 0; i-- {
		dead := cards[i]
		if !dead.Died {
			continue
		}
		p.Graveyard.Remove(dead.InstanceID)
		revived := &Card{InstanceID: m.ids(), Def: dead.Def, Token: dead.Token, Owner: p.Side}
		m.enterBoard(revived)
		p.Board.Push(revived)
		m.publishMove(p, revived, ZoneGraveyard, ZoneBoard)
		return revived, true
	}
	return nil, false
}

// Mulligan shuffles the hand back into the deck and draws n. A player may
// mulligan once.
func (m *Manager) Mulligan(p *Player, rng *rand.Rand, n int) error {
	if p.Mulliganed {
		return rules.Illegal("already took a mulligan")
	}
	for _, card := range p.Hand.Clear() {
		p.Deck.Push(card)
		m.publishMove(p, card, ZoneHand, ZoneDeck)
	}
	p.Deck.Shuffle(rng)
	p.Mulliganed = true
	m.DrawN(p, n)
	m.bus.Publish(rules.NewEventWithAmount(rules.EventMulligan, string(p.Side), "", p.Side, n))
	return nil
}

func (m *Manager) enterBoard(card *Card) {
	card.resetBoardState()
	card.SummoningSick = card.IsCreature() && !card.Has(catalog.Haste)
	if m.turn != nil {
		card.EnteredTurn = m.turn()
	}
}

// take removes card from the zone holding it and reports which zone that was.
func (m *Manager) take(p *Player, card *Card) (ZoneName, error) {
	if card == nil {
		return "", fmt.Errorf("card is nil")
	}
	for _, name := range ZoneNames {
		if _, ok := p.Zone(name).Remove(card.InstanceID); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("card %s not found in %s's zones", card.InstanceID, p.Side)
}

func (m *Manager) publishMove(p *Player, card *Card, from, to ZoneName) {
	m.bus.Publish(rules.Event{
		Type:      rules.EventZoneChange,
		ID:        uuid.New().String(),
		TargetID:  card.InstanceID,
		SourceID:  card.CardID(),
		Side:      p.Side,
		Data:      string(from) + "->" + string(to),
		Timestamp: time.Now(),
	})

	if m.logger != nil {
		m.logger.Debug("moved card",
			zap.String("card_id", card.InstanceID),
			zap.String("card_name", card.Name()),
			zap.String("side", string(p.Side)),
			zap.String("source_zone", string(from)),
			zap.String("target_zone", string(to)),
		)
	}
}
