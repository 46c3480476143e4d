package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/combat"
	"github.com/elementsduel/duel-server-go/internal/game/deck"
	"github.com/elementsduel/duel-server-go/internal/game/effects"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// ChooseElements sets the human's deck colors before the game starts.
func (e *Engine) ChooseElements(ctx context.Context, id string, elements []mana.Element) error {
	return e.run(ctx, id, "chooseElements", func(s *session) error {
		if s.turns.Phase() != rules.PhaseSetup {
			return rules.Illegal("elements can only be chosen before the game starts")
		}
		if err := deck.ValidateElements(elements); err != nil {
			return err
		}
		p := s.player(rules.SidePlayer)
		p.Elements = append([]mana.Element(nil), elements...)
		s.addLog(rules.SidePlayer, CategorySystem, "you chose %v", elements)
		return nil
	})
}

// StartGame builds both decks, deals opening hands and gives the human the
// first turn.
func (e *Engine) StartGame(ctx context.Context, id string) error {
	return e.run(ctx, id, "startGame", func(s *session) error {
		return s.start()
	})
}

// Mulligan shuffles the human's opening hand away and draws six. It is only
// allowed once, before the human's first action.
func (e *Engine) Mulligan(ctx context.Context, id string) error {
	return e.run(ctx, id, "mulligan", func(s *session) error {
		if s.turns.Phase() == rules.PhaseSetup {
			return rules.Illegal("game has not started")
		}
		if s.turns.TurnNumber() != 1 || s.turns.Active() != rules.SidePlayer || s.humanActed {
			return rules.Illegal("mulligan is only allowed before your first action")
		}
		p := s.player(rules.SidePlayer)
		if err := s.zones.Mulligan(p, s.rng, mulliganHand); err != nil {
			return err
		}
		s.addLog(rules.SidePlayer, CategoryPlay, "you mulligan to %d", mulliganHand)
		return nil
	})
}

// PlayLand puts a land from the human's hand onto the board.
func (e *Engine) PlayLand(ctx context.Context, id, cardID string) error {
	return e.run(ctx, id, "playLand", func(s *session) error {
		return s.humanAction(s.playLand(rules.SidePlayer, cardID))
	})
}

// PlayCard casts a creature, spell or artifact from the human's hand. Hints
// name preferred targets for effects that take one.
func (e *Engine) PlayCard(ctx context.Context, id, cardID string, hints []string) error {
	return e.run(ctx, id, "playCard", func(s *session) error {
		return s.humanAction(s.playCard(rules.SidePlayer, cardID, effects.Hints{CardIDs: hints}))
	})
}

// TapLand taps a land for mana, or untaps it and refunds the mana when the
// land is already tapped and its mana is unspent. Lands producing several
// elements need element.
func (e *Engine) TapLand(ctx context.Context, id, cardID string, element mana.Element) error {
	return e.run(ctx, id, "tapLand", func(s *session) error {
		return s.humanAction(s.tapLand(rules.SidePlayer, cardID, element))
	})
}

// ActivateArtifact taps an artifact to resolve its activated effect.
func (e *Engine) ActivateArtifact(ctx context.Context, id, cardID string) error {
	return e.run(ctx, id, "activateArtifact", func(s *session) error {
		return s.humanAction(s.activate(rules.SidePlayer, cardID))
	})
}

// EnterAttackPhase moves the human's main phase into the attack phase.
func (e *Engine) EnterAttackPhase(ctx context.Context, id string) error {
	return e.run(ctx, id, "enterAttackPhase", func(s *session) error {
		return s.humanAction(s.enterAttack(rules.SidePlayer))
	})
}

// ToggleAttacker adds a creature to the declared attackers or removes it.
func (e *Engine) ToggleAttacker(ctx context.Context, id, cardID string) error {
	return e.run(ctx, id, "toggleAttacker", func(s *session) error {
		return s.toggleAttacker(rules.SidePlayer, cardID)
	})
}

// ConfirmAttack resolves combat for the declared attackers. With no
// attackers it returns to the main phase without combat.
func (e *Engine) ConfirmAttack(ctx context.Context, id string) error {
	return e.run(ctx, id, "confirmAttack", func(s *session) error {
		return s.confirmAttack(rules.SidePlayer)
	})
}

// EndTurn ends the human's turn, plays the opponent's turn and hands
// control back.
func (e *Engine) EndTurn(ctx context.Context, id string) error {
	return e.run(ctx, id, "endTurn", func(s *session) error {
		next, err := s.turns.EndTurn(rules.SidePlayer)
		if err != nil {
			return err
		}
		s.handOver(func() {
			s.cleanup(rules.SidePlayer)
			s.beginTurn(next)
			s.playComputerTurn(rules.SideEnemy, s.policy)
		})
		return nil
	})
}

// Autopilot plays the human's current turn with the computer policy, then
// the opponent's turn.
func (e *Engine) Autopilot(ctx context.Context, id string) error {
	return e.run(ctx, id, "autopilot", func(s *session) error {
		if err := s.turns.RequireMain(rules.SidePlayer); err != nil {
			return err
		}
		s.humanActed = true
		s.handOver(func() {
			s.playComputerTurn(rules.SidePlayer, s.autopilot)
			s.playComputerTurn(rules.SideEnemy, s.policy)
		})
		return nil
	})
}

func (s *session) humanAction(err error) error {
	if err == nil {
		s.humanActed = true
	}
	return err
}

func (s *session) start() error {
	if s.turns.Phase() != rules.PhaseSetup {
		return rules.Illegal("game already started")
	}
	human := s.player(rules.SidePlayer)
	if len(human.Elements) == 0 {
		return rules.Illegal("choose elements before starting")
	}

	enemy := s.player(rules.SideEnemy)
	enemyElements := deck.RandomElements(s.rng, 2)
	humanDeck, err := s.builder.Build(rules.SidePlayer, human.Elements)
	if err != nil {
		return fmt.Errorf("failed to build player deck: %w", err)
	}
	enemyDeck, err := s.builder.Build(rules.SideEnemy, enemyElements)
	if err != nil {
		return fmt.Errorf("failed to build enemy deck: %w", err)
	}
	if err := s.turns.Begin(rules.SidePlayer); err != nil {
		return err
	}

	enemy.Elements = enemyElements
	human.Deck.Set(humanDeck)
	enemy.Deck.Set(enemyDeck)
	for _, side := range rules.Sides {
		s.zones.DrawN(s.player(side), startingHand)
	}

	s.bus.Publish(rules.NewEvent(rules.EventGameStarted, s.id, "", rules.SidePlayer))
	s.addLog(rules.SideEnemy, CategorySystem, "opponent plays %v", enemyElements)
	s.addLog(rules.SidePlayer, CategoryTurn, "turn 1: your turn")
	if s.logger != nil {
		s.logger.Info("game started",
			zap.String("game_id", s.id),
			zap.Strings("player_elements", elementNames(human.Elements)),
			zap.Strings("enemy_elements", elementNames(enemyElements)),
		)
	}
	return nil
}

func (s *session) handCard(p *zones.Player, cardID string) (*zones.Card, error) {
	card, i := p.Hand.Find(cardID)
	if i < 0 {
		return nil, rules.Illegal("card %s is not in hand", cardID)
	}
	return card, nil
}

func (s *session) boardCard(p *zones.Player, cardID string) (*zones.Card, error) {
	card, i := p.Board.Find(cardID)
	if i < 0 {
		return nil, rules.Illegal("card %s is not on the board", cardID)
	}
	return card, nil
}

func (s *session) playLand(side rules.Side, cardID string) error {
	if err := s.turns.RequireMain(side); err != nil {
		return err
	}
	p := s.player(side)
	card, err := s.handCard(p, cardID)
	if err != nil {
		return err
	}
	if !card.IsLand() {
		return rules.Illegal("%s is not a land", card.Name())
	}
	if p.LandsPlayedThisTurn >= 1 {
		return rules.Illegal("already played a land this turn")
	}
	if err := s.zones.Play(p, card, zones.ZoneBoard); err != nil {
		return err
	}
	p.LandsPlayedThisTurn++
	s.bus.Publish(rules.NewEvent(rules.EventLandPlayed, card.InstanceID, card.CardID(), side))
	s.addLog(side, CategoryPlay, "%s plays %s", side, card.Name())
	return nil
}

func (s *session) playCard(side rules.Side, cardID string, hints effects.Hints) error {
	if err := s.turns.RequireMain(side); err != nil {
		return err
	}
	p := s.player(side)
	card, err := s.handCard(p, cardID)
	if err != nil {
		return err
	}
	if card.IsLand() {
		return rules.Illegal("lands are played with playLand")
	}
	cost := card.Cost()
	if !mana.CanPay(cost, p.Pool) {
		return rules.Illegal("not enough mana for %s (%s, have %s)", card.Name(), cost, p.Pool)
	}
	plan, err := mana.Pay(cost, p.Pool)
	if err != nil {
		return rules.Illegal("%s", err)
	}
	s.bus.Publish(rules.NewEventWithAmount(rules.EventManaPaid, card.InstanceID, card.CardID(), side, plan.Total()))

	dest := zones.ZoneBoard
	if card.IsSpell() {
		dest = zones.ZoneGraveyard
	}
	if err := s.zones.Play(p, card, dest); err != nil {
		return err
	}
	s.bus.Publish(rules.NewEvent(rules.EventCardPlayed, card.InstanceID, card.CardID(), side))
	s.addLog(side, CategoryPlay, "%s plays %s", side, card.Name())

	if card.Def != nil && card.Def.Effect != nil {
		eff := card.Def.Effect
		switch {
		case card.IsSpell():
			s.resolve(side, card, eff, hints)
		case card.IsArtifact() && !effects.IsPersistent(eff):
			s.resolve(side, card, eff, hints)
			if !effects.StaysOnBoard(card.Def) {
				if err := s.zones.MoveToGraveyard(p, card); err != nil {
					return err
				}
			}
		}
	}
	s.sweep()
	s.checkGameOver()
	return nil
}

func (s *session) resolve(side rules.Side, source *zones.Card, eff catalog.Effect, hints effects.Hints) {
	out := s.effects.Resolve(effects.Context{
		Caster:   s.player(side),
		Opponent: s.player(side.Opponent()),
		Source:   source,
		Hints:    hints,
	}, eff)
	s.addLog(side, CategoryEffect, "%s: %s", source.Name(), out.Text)
}

func (s *session) tapLand(side rules.Side, cardID string, element mana.Element) error {
	if err := s.turns.RequireMain(side); err != nil {
		return err
	}
	p := s.player(side)
	land, err := s.boardCard(p, cardID)
	if err != nil {
		return err
	}
	if !land.IsLand() {
		return rules.Illegal("%s is not a land", land.Name())
	}

	if land.Tapped {
		refund := land.SelectedElement
		if refund == "" || !p.Pool.Spend(refund, 1) {
			return rules.Illegal("mana from %s has already been spent", land.Name())
		}
		land.Tapped = false
		land.SelectedElement = ""
		s.addLog(side, CategoryMana, "%s untaps %s", side, land.Name())
		return nil
	}

	options := land.Def.ProducibleElements()
	if len(options) == 0 {
		return rules.Illegal("%s produces no mana", land.Name())
	}
	switch {
	case element == "" && land.Def.NeedsElementChoice():
		return rules.Illegal("choose which element %s produces", land.Name())
	case element == "":
		element = options[0]
	case !land.Def.CanProduce(element):
		return rules.Illegal("%s cannot produce %s", land.Name(), element)
	}

	p.Pool.Add(element, 1)
	land.Tapped = true
	land.SelectedElement = element
	event := rules.NewEventWithAmount(rules.EventManaAdded, land.InstanceID, land.CardID(), side, 1)
	event.Data = string(element)
	s.bus.Publish(event)
	s.addLog(side, CategoryMana, "%s taps %s for %s", side, land.Name(), element)
	return nil
}

func (s *session) activate(side rules.Side, cardID string) error {
	if err := s.turns.RequireMain(side); err != nil {
		return err
	}
	p := s.player(side)
	artifact, err := s.boardCard(p, cardID)
	if err != nil {
		return err
	}
	if !artifact.IsArtifact() || artifact.Def.Activated == nil {
		return rules.Illegal("%s has no activated ability", artifact.Name())
	}
	if artifact.Tapped {
		return rules.Illegal("%s was already used this turn", artifact.Name())
	}
	artifact.Tapped = true
	s.bus.Publish(rules.NewEvent(rules.EventActivated, artifact.InstanceID, artifact.CardID(), side))
	s.resolve(side, artifact, artifact.Def.Activated, effects.Hints{})
	s.sweep()
	s.checkGameOver()
	return nil
}

func (s *session) enterAttack(side rules.Side) error {
	if s.turns.Phase() == rules.PhaseAttack && s.turns.Active() == side {
		return rules.Illegal("already in the attack phase")
	}
	if err := s.turns.RequireMain(side); err != nil {
		return err
	}
	p := s.player(side)
	if p.HasAttackedThisTurn {
		return rules.Illegal("already attacked this turn")
	}
	if len(p.Board.Filter(combat.CanAttack)) == 0 {
		return rules.Illegal("no creature can attack")
	}
	if err := s.turns.EnterAttack(side); err != nil {
		return err
	}
	s.attackers = nil
	s.addLog(side, CategoryCombat, "%s enters the attack phase", side)
	return nil
}

func (s *session) toggleAttacker(side rules.Side, cardID string) error {
	if s.turns.Phase() != rules.PhaseAttack || s.turns.Active() != side {
		return rules.Illegal("attackers can only be declared in the attack phase")
	}
	card, err := s.boardCard(s.player(side), cardID)
	if err != nil {
		return err
	}
	for i, id := range s.attackers {
		if id == cardID {
			s.attackers = append(s.attackers[:i], s.attackers[i+1:]...)
			s.addLog(side, CategoryCombat, "%s no longer attacks", card.Name())
			return nil
		}
	}
	if !combat.CanAttack(card) {
		return rules.Illegal("%s cannot attack", card.Name())
	}
	s.attackers = append(s.attackers, cardID)
	s.bus.Publish(rules.NewEvent(rules.EventAttackerDeclared, card.InstanceID, card.CardID(), side))
	s.addLog(side, CategoryCombat, "%s attacks", card.Name())
	return nil
}

func (s *session) confirmAttack(side rules.Side) error {
	if s.turns.Phase() != rules.PhaseAttack || s.turns.Active() != side {
		return rules.Illegal("not in the attack phase")
	}
	if len(s.attackers) == 0 {
		if err := s.turns.CancelAttack(); err != nil {
			return err
		}
		s.addLog(side, CategoryCombat, "%s calls off the attack", side)
		return nil
	}

	attacking := s.player(side)
	defending := s.player(side.Opponent())
	var attackers []*zones.Card
	for _, id := range s.attackers {
		if c, i := attacking.Board.Find(id); i >= 0 {
			attackers = append(attackers, c)
		}
	}

	decl := combat.Declaration{Attackers: append([]string(nil), s.attackers...)}
	// Only the computer blocks; the human has no blocking command.
	if defending.Side == rules.SideEnemy {
		decl.Blocks = s.policy.DeclareBlockers(attackers, defending.Creatures())
	}
	decl.Blocks = combat.NormalizeBlocks(attackers, defending, decl.Blocks)
	for _, attackerID := range decl.Attackers {
		for _, blockerID := range decl.Blocks[attackerID] {
			s.bus.Publish(rules.NewEvent(rules.EventBlockerDeclared, blockerID, attackerID, defending.Side))
		}
	}

	steps, err := s.turns.BeginCombat(combat.NeedsFirstStrike(combat.Participants(attacking, defending, decl)))
	if err != nil {
		return err
	}
	attacking.HasAttackedThisTurn = true
	combat.TapAttackers(attackers)

	result := s.combat.Resolve(attacking, defending, decl)
	for _, step := range steps[1:] {
		if err := s.turns.AdvanceTo(step); err != nil {
			return err
		}
	}
	if err := s.turns.EndCombat(); err != nil {
		return err
	}
	s.attackers = nil

	blocked := 0
	for _, blockers := range decl.Blocks {
		if len(blockers) > 0 {
			blocked++
		}
	}
	s.addLog(side, CategoryCombat, "%s attacks with %d, %d blocked, %d damage to %s",
		side, len(attackers), blocked, result.PlayerDamage, defending.Side)
	for _, gainer := range rules.Sides {
		if n := result.LifeGained[gainer]; n > 0 {
			s.addLog(gainer, CategoryCombat, "%s gains %d life", gainer, n)
		}
	}

	s.sweep()
	s.checkGameOver()
	return nil
}

func elementNames(elements []mana.Element) []string {
	out := make([]string, len(elements))
	for i, e := range elements {
		out[i] = string(e)
	}
	return out
}
