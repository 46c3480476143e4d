package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// sweep moves every creature with lethal marked damage to its owner's
// graveyard, the human's board first.
func (s *session) sweep() int {
	died := 0
	for _, side := range rules.Sides {
		p := s.player(side)
		for _, c := range p.Creatures() {
			if !c.IsLethal() {
				continue
			}
			if err := s.zones.MoveToGraveyard(p, c); err != nil {
				if s.logger != nil {
					s.logger.Error("failed to move dead creature",
						zap.String("game_id", s.id),
						zap.String("card_id", c.InstanceID),
						zap.Error(err),
					)
				}
				continue
			}
			died++
			s.addLog(side, CategoryCombat, "%s is destroyed", c.Name())
		}
	}
	return died
}

// checkGameOver ends the game when a player is at 0 life. The human is
// checked first, so the human loses when both reach 0 together.
func (s *session) checkGameOver() bool {
	if s.over {
		return true
	}
	var winner rules.Side
	switch {
	case s.player(rules.SidePlayer).Life <= 0:
		winner = rules.SideEnemy
	case s.player(rules.SideEnemy).Life <= 0:
		winner = rules.SidePlayer
	default:
		return false
	}

	s.turns.Finish(winner)
	s.over = true
	s.attackers = nil
	s.result = &GameResult{
		GameID:     s.id,
		Winner:     winner,
		Difficulty: s.difficulty,
		Turns:      s.turns.TurnNumber(),
		PlayerLife: s.player(rules.SidePlayer).Life,
		EnemyLife:  s.player(rules.SideEnemy).Life,
		Stats:      s.stats.Summary(),
		FinishedAt: time.Now(),
	}
	s.bus.Publish(rules.NewEvent(rules.EventGameOver, s.id, "", winner))
	s.addLog(winner, CategorySystem, "%s wins", winner)

	if s.logger != nil {
		s.logger.Info("game over",
			zap.String("game_id", s.id),
			zap.String("winner", string(winner)),
			zap.Int("turns", s.result.Turns),
			zap.Duration("duration", time.Since(s.createdAt)),
		)
	}
	return true
}
