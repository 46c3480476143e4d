package game

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/ai"
	"github.com/elementsduel/duel-server-go/internal/game/combat"
	"github.com/elementsduel/duel-server-go/internal/game/effects"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// beginTurn walks side through untap, upkeep and draw into its main phase.
func (s *session) beginTurn(side rules.Side) {
	if s.over {
		return
	}
	if err := s.turns.StartTurn(side); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to start turn", zap.String("game_id", s.id), zap.Error(err))
		}
		return
	}
	p := s.refresh(side)

	s.bus.Publish(rules.NewEventWithAmount(rules.EventBeginTurn, string(side), "", side, s.turns.TurnNumber()))
	s.addLog(side, CategoryTurn, "turn %d: %s", s.turns.TurnNumber(), side)

	s.mustAdvance(rules.StepUpkeep)
	for _, out := range s.effects.Upkeep(p, s.player(side.Opponent())) {
		s.addLog(side, CategoryEffect, "upkeep: %s", out.Text)
	}
	s.sweep()
	if s.checkGameOver() {
		return
	}

	s.mustAdvance(rules.StepDraw)
	if _, ok := s.zones.Draw(p); !ok {
		s.addLog(side, CategoryNotice, "%s has no cards left to draw", side)
	}
	s.mustAdvance(rules.StepMain1)
}

// refresh untaps side's board and resets its per-turn state.
func (s *session) refresh(side rules.Side) *zones.Player {
	p := s.player(side)
	for _, c := range p.Board.Cards() {
		c.Tapped = false
		c.SelectedElement = ""
		c.SummoningSick = false
	}
	p.Pool.Empty()
	p.LandsPlayedThisTurn = 0
	p.HasAttackedThisTurn = false
	s.attackers = nil
	return p
}

// handOver runs fn, which passes the turn away from the human and plays the
// computer's turn. If fn panics, the turn in progress is abandoned and the
// human gets a fresh main phase.
func (s *session) handOver(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		side := s.turns.Active()
		if s.logger != nil {
			s.logger.Error("turn handoff panicked",
				zap.String("game_id", s.id),
				zap.String("side", string(side)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
		s.addLog(side, CategorySystem, "%s's turn was cut short", side)
		s.returnControl()
	}()
	fn()
}

// returnControl ends whatever turn is in progress and starts the human's
// turn straight into main, skipping upkeep and draw.
func (s *session) returnControl() {
	s.attackers = nil
	if s.over {
		return
	}
	s.turns.ForceEnd()
	if err := s.turns.StartTurn(rules.SidePlayer); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to return control", zap.String("game_id", s.id), zap.Error(err))
		}
		return
	}
	s.refresh(rules.SidePlayer)
	s.addLog(rules.SidePlayer, CategoryTurn, "turn %d: %s", s.turns.TurnNumber(), rules.SidePlayer)
	s.mustAdvance(rules.StepMain1)
}

func (s *session) mustAdvance(step rules.Step) {
	if err := s.turns.AdvanceTo(step); err != nil && s.logger != nil {
		s.logger.Error("turn sequence out of order",
			zap.String("game_id", s.id),
			zap.String("step", step.String()),
			zap.Error(err),
		)
	}
}

// cleanup runs when side's turn ends: marked damage wears off both boards
// and side's unspent mana is lost.
func (s *session) cleanup(side rules.Side) {
	for _, p := range s.players {
		for _, c := range p.Creatures() {
			c.Damage = 0
		}
	}
	s.player(side).Pool.Empty()
	s.attackers = nil
}

// playComputerTurn plays side's turn with policy and hands the turn over.
// A failing pipeline is logged and the turn still ends, so control always
// returns to the other seat.
func (s *session) playComputerTurn(side rules.Side, policy *ai.Policy) {
	if s.over || s.turns.Active() != side {
		return
	}
	if err := s.computerTurn(side, policy); err != nil {
		if s.logger != nil {
			s.logger.Error("computer turn failed",
				zap.String("game_id", s.id),
				zap.String("side", string(side)),
				zap.Error(err),
			)
		}
		s.addLog(side, CategorySystem, "%s's turn was cut short", side)
	}
	if s.over {
		return
	}

	next, err := s.turns.EndTurn(side)
	if err != nil {
		s.turns.ForceEnd()
		s.attackers = nil
		next = side.Opponent()
	}
	s.cleanup(side)
	s.beginTurn(next)
}

// computerTurn is the computer's main phase: one land, tap every land, use
// artifacts, cast creatures then artifacts then (on hard) spells, attack.
func (s *session) computerTurn(side rules.Side, policy *ai.Policy) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computer turn panicked: %v", r)
		}
	}()
	p := s.player(side)

	if land := policy.ChooseLand(p.Hand.Cards()); land != nil {
		if err := tolerate(s.playLand(side, land.InstanceID)); err != nil {
			return err
		}
	}

	for _, land := range p.Lands() {
		if land.Tapped {
			continue
		}
		element := policy.ChooseLandElement(land, p.Hand.Cards())
		if err := tolerate(s.tapLand(side, land.InstanceID, element)); err != nil {
			return err
		}
	}

	for _, artifact := range p.Artifacts() {
		if artifact.Tapped || artifact.Def.Activated == nil {
			continue
		}
		if err := tolerate(s.activate(side, artifact.InstanceID)); err != nil {
			return err
		}
		if s.over {
			return nil
		}
	}

	casts := [][]*zones.Card{
		policy.OrderCreatures(p.Hand.Filter((*zones.Card).IsCreature)),
		p.Hand.Filter((*zones.Card).IsArtifact),
	}
	if policy.CastsSpells() {
		casts = append(casts, p.Hand.Filter((*zones.Card).IsSpell))
	}
	for _, cards := range casts {
		for _, c := range cards {
			if !mana.CanPay(c.Cost(), p.Pool) {
				continue
			}
			if err := tolerate(s.playCard(side, c.InstanceID, effects.Hints{})); err != nil {
				return err
			}
			if s.over {
				return nil
			}
		}
	}

	attackers := policy.ChooseAttackers(p.Board.Filter(combat.CanAttack))
	if len(attackers) == 0 {
		return nil
	}
	if err := s.enterAttack(side); err != nil {
		return tolerate(err)
	}
	for _, c := range attackers {
		if err := tolerate(s.toggleAttacker(side, c.InstanceID)); err != nil {
			return err
		}
	}
	return tolerate(s.confirmAttack(side))
}

// tolerate drops illegal-action errors: the computer skips moves the rules
// refuse.
func tolerate(err error) error {
	if err == nil || errors.Is(err, rules.ErrIllegalAction) {
		return nil
	}
	return err
}
