package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

var errBadCommand = errors.New("bad command")

// Command is one inbound player command, sent as JSON over the websocket
// or to POST /api/games/:id/commands.
type Command struct {
	Type     string   `json:"type,omitempty"`
	Command  string   `json:"command" binding:"required"`
	CardID   string   `json:"card_id,omitempty"`
	Element  string   `json:"element,omitempty"`
	Elements []string `json:"elements,omitempty"`
	Targets  []string `json:"targets,omitempty"`
}

func (s *Server) dispatch(ctx context.Context, id string, cmd Command) error {
	switch cmd.Command {
	case "chooseElements":
		elements, err := parseElements(cmd.Elements)
		if err != nil {
			return err
		}
		return s.engine.ChooseElements(ctx, id, elements)
	case "startGame":
		return s.engine.StartGame(ctx, id)
	case "mulligan":
		return s.engine.Mulligan(ctx, id)
	case "playLand":
		return s.engine.PlayLand(ctx, id, cmd.CardID)
	case "playCard":
		return s.engine.PlayCard(ctx, id, cmd.CardID, cmd.Targets)
	case "tapLand":
		var element mana.Element
		if cmd.Element != "" {
			e, err := mana.ParseElement(cmd.Element)
			if err != nil {
				return fmt.Errorf("%w: %v", errBadCommand, err)
			}
			element = e
		}
		return s.engine.TapLand(ctx, id, cmd.CardID, element)
	case "activateArtifact":
		return s.engine.ActivateArtifact(ctx, id, cmd.CardID)
	case "enterAttackPhase":
		return s.engine.EnterAttackPhase(ctx, id)
	case "toggleAttacker":
		return s.engine.ToggleAttacker(ctx, id, cmd.CardID)
	case "confirmAttack":
		return s.engine.ConfirmAttack(ctx, id)
	case "endTurn":
		return s.engine.EndTurn(ctx, id)
	case "autopilot":
		return s.engine.Autopilot(ctx, id)
	default:
		return fmt.Errorf("%w: unknown command %q", errBadCommand, cmd.Command)
	}
}

func parseElements(names []string) ([]mana.Element, error) {
	elements := make([]mana.Element, 0, len(names))
	for _, name := range names {
		e, err := mana.ParseElement(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		elements = append(elements, e)
	}
	return elements, nil
}
