package combat

import (
	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// Declaration is a confirmed attack: attackers in declaration order and, per
// attacker, its blockers in damage assignment order.
type Declaration struct {
	Attackers []string
	Blocks    map[string][]string
}

// Assignment records one damage assignment.
type Assignment struct {
	Step     rules.Step
	SourceID string
	TargetID string // card instance, or the defending side when ToPlayer
	ToPlayer bool
	Amount   int
}

// Result summarizes a resolved combat.
type Result struct {
	FirstStrikeStep bool
	PlayerDamage    int
	LifeGained      map[rules.Side]int
	Assignments     []Assignment
}

// Resolver runs combat damage between two boards.
type Resolver struct {
	logger *zap.Logger
	bus    *rules.EventBus
}

// NewResolver creates a combat resolver.
func NewResolver(logger *zap.Logger, bus *rules.EventBus) *Resolver {
	return &Resolver{logger: logger, bus: bus}
}

type group struct {
	attacker *zones.Card
	blockers []*zones.Card
}

// Participants returns the attackers and blockers named by decl that are
// still on their boards.
func Participants(attacking, defending *zones.Player, decl Declaration) []*zones.Card {
	var out []*zones.Card
	for _, g := range buildGroups(attacking, defending, decl) {
		out = append(out, g.attacker)
		out = append(out, g.blockers...)
	}
	return out
}

func buildGroups(attacking, defending *zones.Player, decl Declaration) []group {
	var attackers []*zones.Card
	for _, id := range decl.Attackers {
		if c, i := attacking.Board.Find(id); i >= 0 && c.IsCreature() {
			attackers = append(attackers, c)
		}
	}
	blocks := NormalizeBlocks(attackers, defending, decl.Blocks)

	groups := make([]group, 0, len(attackers))
	for _, a := range attackers {
		g := group{attacker: a}
		for _, id := range blocks[a.InstanceID] {
			b, _ := defending.Board.Find(id)
			g.blockers = append(g.blockers, b)
		}
		groups = append(groups, g)
	}
	return groups
}

// Resolve applies combat damage. When any participant has first or double
// strike a first-strike step runs before the normal step. Creatures whose
// marked damage was already lethal when a step began deal no damage in it.
// Dead creatures stay on the board; the caller runs state-based actions.
func (r *Resolver) Resolve(attacking, defending *zones.Player, decl Declaration) *Result {
	groups := buildGroups(attacking, defending, decl)
	result := &Result{LifeGained: make(map[rules.Side]int)}

	var participants []*zones.Card
	for _, g := range groups {
		participants = append(participants, g.attacker)
		participants = append(participants, g.blockers...)
	}
	result.FirstStrikeStep = NeedsFirstStrike(participants)

	steps := []rules.Step{rules.StepCombatDamage}
	if result.FirstStrikeStep {
		steps = []rules.Step{rules.StepFirstStrikeDamage, rules.StepCombatDamage}
	}

	struckFirst := make(map[string]bool)
	for _, step := range steps {
		firstStrike := step == rules.StepFirstStrikeDamage

		// Liveness is fixed at the start of the step: damage within a step is simultaneous.
		alive := make(map[string]bool, len(participants))
		for _, c := range participants {
			alive[c.InstanceID] = !c.IsLethal()
		}
		dealsDamage := func(c *zones.Card) bool {
			if !alive[c.InstanceID] {
				return false
			}
			if firstStrike {
				return c.Has(catalog.FirstStrike) || c.Has(catalog.DoubleStrike)
			}
			return c.Has(catalog.DoubleStrike) || !struckFirst[c.InstanceID]
		}

		var strikers []string
		for _, g := range groups {
			if dealsDamage(g.attacker) {
				strikers = append(strikers, g.attacker.InstanceID)
				r.attackerDamage(step, g, alive, attacking, defending, result)
			}
			for _, b := range g.blockers {
				if !dealsDamage(b) || !alive[g.attacker.InstanceID] {
					continue
				}
				strikers = append(strikers, b.InstanceID)
				dealt := r.markCreature(step, b, g.attacker, b.Power(), result)
				r.lifelink(b, defending, dealt, result)
			}
		}
		if firstStrike {
			for _, id := range strikers {
				struckFirst[id] = true
			}
		}

		r.bus.Publish(rules.NewEventWithAmount(rules.EventCombatDamageApplied, "", "", attacking.Side, len(strikers)))
		if r.logger != nil {
			r.logger.Debug("combat damage assigned",
				zap.String("side", string(attacking.Side)),
				zap.Bool("first_strike", firstStrike),
				zap.Int("strikers", len(strikers)),
			)
		}
	}
	return result
}

func (r *Resolver) attackerDamage(step rules.Step, g group, alive map[string]bool, attacking, defending *zones.Player, result *Result) {
	attacker := g.attacker
	power := attacker.Power()
	if power <= 0 {
		return
	}
	trample := attacker.Has(catalog.Trample)
	deathtouch := attacker.Has(catalog.Deathtouch)

	if len(g.blockers) == 0 {
		dealt := r.damagePlayer(step, attacker, defending, power, result)
		r.lifelink(attacker, attacking, dealt, result)
		return
	}

	var live []*zones.Card
	for _, b := range g.blockers {
		if alive[b.InstanceID] {
			live = append(live, b)
		}
	}
	if len(live) == 0 {
		// Blocked, but every blocker is gone: only trample reaches the player.
		if trample {
			dealt := r.damagePlayer(step, attacker, defending, power, result)
			r.lifelink(attacker, attacking, dealt, result)
		}
		return
	}

	dealt := 0
	remaining := power
	for i, b := range live {
		if remaining <= 0 {
			break
		}
		lethal := b.LethalDamage()
		if deathtouch && lethal > 1 {
			lethal = 1
		}
		amount := lethal
		if amount > remaining {
			amount = remaining
		}
		if i == len(live)-1 && !trample {
			amount = remaining
		}
		dealt += r.markCreature(step, attacker, b, amount, result)
		remaining -= amount
	}
	if remaining > 0 && trample {
		dealt += r.damagePlayer(step, attacker, defending, remaining, result)
	}
	r.lifelink(attacker, attacking, dealt, result)
}

// markCreature marks damage on target. Deathtouch makes any nonzero amount lethal.
func (r *Resolver) markCreature(step rules.Step, source, target *zones.Card, amount int, result *Result) int {
	if amount <= 0 {
		return 0
	}
	target.Damage += amount
	if source.Has(catalog.Deathtouch) && target.Damage < target.Toughness() {
		target.Damage = target.Toughness()
	}
	result.Assignments = append(result.Assignments, Assignment{
		Step:     step,
		SourceID: source.InstanceID,
		TargetID: target.InstanceID,
		Amount:   amount,
	})
	r.bus.Publish(rules.NewEventWithAmount(rules.EventDamagedCreature, target.InstanceID, source.InstanceID, target.Owner, amount))
	return amount
}

func (r *Resolver) damagePlayer(step rules.Step, source *zones.Card, defending *zones.Player, amount int, result *Result) int {
	if amount <= 0 {
		return 0
	}
	defending.ChangeLife(-amount)
	result.PlayerDamage += amount
	result.Assignments = append(result.Assignments, Assignment{
		Step:     step,
		SourceID: source.InstanceID,
		TargetID: string(defending.Side),
		ToPlayer: true,
		Amount:   amount,
	})
	r.bus.Publish(rules.NewEventWithAmount(rules.EventDamagedPlayer, string(defending.Side), source.InstanceID, defending.Side, amount))
	return amount
}

func (r *Resolver) lifelink(source *zones.Card, controller *zones.Player, dealt int, result *Result) {
	if dealt <= 0 || !source.Has(catalog.Lifelink) {
		return
	}
	controller.ChangeLife(dealt)
	result.LifeGained[controller.Side] += dealt
	r.bus.Publish(rules.NewEventWithAmount(rules.EventLifeChanged, string(controller.Side), source.InstanceID, controller.Side, dealt))
}
