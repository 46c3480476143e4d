// Package effects resolves spell and artifact effects and the upkeep triggers
// of persistent artifacts.
package effects

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

// Hints are optional caller-chosen targets.
type Hints struct {
	CardIDs []string
}

// Context is who resolves an effect and from which card.
type Context struct {
	Caster   *zones.Player
	Opponent *zones.Player
	Source   *zones.Card
	Hints    Hints
}

// Outcome describes what a resolved effect changed.
type Outcome struct {
	Tag          catalog.EffectTag
	SourceID     string
	Text         string
	PlayerDamage int
	LifeGained   int
	Drawn        int
	Affected     []string // instance ids damaged, buffed, tapped or moved
	Created      []string
	Fizzled      bool // no legal target
}

// Resolver applies effects to game state.
type Resolver struct {
	logger  *zap.Logger
	bus     *rules.EventBus
	zones   *zones.Manager
	catalog *catalog.Catalog
	rng     *rand.Rand
}

// NewResolver creates an effect resolver. Random targets are drawn from rng.
func NewResolver(logger *zap.Logger, bus *rules.EventBus, zm *zones.Manager, cat *catalog.Catalog, rng *rand.Rand) *Resolver {
	return &Resolver{logger: logger, bus: bus, zones: zm, catalog: cat, rng: rng}
}

// IsPersistent reports whether an artifact with this effect stays on the
// board and triggers at upkeep instead of resolving once.
func IsPersistent(eff catalog.Effect) bool {
	switch e := eff.(type) {
	case catalog.Draw, catalog.Heal, catalog.ManaBoost:
		return true
	case catalog.Damage:
		return !e.AllCreatures
	default:
		return false
	}
}

// StaysOnBoard reports whether an artifact remains after it is played.
// Artifacts with only an activated ability stay.
func StaysOnBoard(def *catalog.Definition) bool {
	return def.Effect == nil || IsPersistent(def.Effect)
}

// Resolve applies eff for ctx.Caster. Dead creatures are left on the board
// for the caller's state-based sweep.
func (r *Resolver) Resolve(ctx Context, eff catalog.Effect) Outcome {
	out := Outcome{Tag: eff.Tag()}
	if ctx.Source != nil {
		out.SourceID = ctx.Source.InstanceID
	}

	switch e := eff.(type) {
	case catalog.Damage:
		r.damage(ctx, e, &out)
	case catalog.Heal:
		out.LifeGained = ctx.Caster.ChangeLife(e.Amount)
		r.publishLife(ctx, ctx.Caster, out.LifeGained)
		out.Text = fmt.Sprintf("%s gains %d life", ctx.Caster.Side, out.LifeGained)
	case catalog.HealDraw:
		out.LifeGained = ctx.Caster.ChangeLife(e.Heal)
		r.publishLife(ctx, ctx.Caster, out.LifeGained)
		out.Drawn = len(r.zones.DrawN(ctx.Caster, e.Draw))
		out.Text = fmt.Sprintf("%s gains %d life and draws %d", ctx.Caster.Side, out.LifeGained, out.Drawn)
	case catalog.Draw:
		out.Drawn = len(r.zones.DrawN(ctx.Caster, e.Count))
		out.Text = fmt.Sprintf("%s draws %d", ctx.Caster.Side, out.Drawn)
	case catalog.DrawOnPlay:
		out.Drawn = len(r.zones.DrawN(ctx.Caster, e.Count))
		out.Text = fmt.Sprintf("%s draws %d", ctx.Caster.Side, out.Drawn)
	case catalog.Drain:
		out.PlayerDamage = -ctx.Opponent.ChangeLife(-e.Amount)
		r.publishPlayerDamage(ctx, out.PlayerDamage)
		out.LifeGained = ctx.Caster.ChangeLife(e.Amount)
		r.publishLife(ctx, ctx.Caster, out.LifeGained)
		out.Text = fmt.Sprintf("%s drains %d life from %s", ctx.Caster.Side, e.Amount, ctx.Opponent.Side)
	case catalog.Destroy:
		r.destroy(ctx, &out)
	case catalog.Buff:
		r.buff(ctx, e, &out)
	case catalog.Tap:
		r.tap(ctx, &out)
	case catalog.Bounce:
		r.bounce(ctx, e, &out)
	case catalog.Revive:
		if card, ok := r.zones.Revive(ctx.Caster); ok {
			out.Created = append(out.Created, card.InstanceID)
			out.Text = fmt.Sprintf("%s returns to the board", card.Name())
		} else {
			out.Fizzled = true
			out.Text = "no creature to revive"
		}
	case catalog.AOE:
		for _, c := range ctx.Opponent.Creatures() {
			r.damageCreature(ctx, c, e.Amount, &out)
		}
		out.Text = fmt.Sprintf("%d damage to every %s creature", e.Amount, ctx.Opponent.Side)
	case catalog.ManaBoost:
		ctx.Caster.Pool.Add(e.Element, e.Amount)
		r.bus.Publish(rules.NewEventWithAmount(rules.EventManaAdded, string(ctx.Caster.Side), out.SourceID, ctx.Caster.Side, e.Amount))
		out.Text = fmt.Sprintf("%s adds %d %s mana", ctx.Caster.Side, e.Amount, e.Element)
	case catalog.Token:
		r.token(ctx, e, &out)
	case catalog.Discard:
		r.discard(ctx, e, &out)
	default:
		out.Fizzled = true
		out.Text = fmt.Sprintf("unsupported effect %s", eff.Tag())
	}

	event := rules.NewEventWithAmount(rules.EventEffectResolved, "", out.SourceID, ctx.Caster.Side, len(out.Affected))
	event.Data = string(out.Tag)
	r.bus.Publish(event)
	if r.logger != nil {
		r.logger.Debug("effect resolved",
			zap.String("tag", string(out.Tag)),
			zap.String("side", string(ctx.Caster.Side)),
			zap.Bool("fizzled", out.Fizzled),
		)
	}
	return out
}

// Upkeep triggers every persistent artifact on caster's board.
func (r *Resolver) Upkeep(caster, opponent *zones.Player) []Outcome {
	var outcomes []Outcome
	for _, artifact := range caster.Artifacts() {
		if artifact.Def == nil || artifact.Def.Effect == nil || !IsPersistent(artifact.Def.Effect) {
			continue
		}
		r.bus.Publish(rules.NewEvent(rules.EventUpkeepTriggered, artifact.InstanceID, artifact.InstanceID, caster.Side))
		outcomes = append(outcomes, r.Resolve(Context{
			Caster:   caster,
			Opponent: opponent,
			Source:   artifact,
		}, artifact.Def.Effect))
	}
	return outcomes
}

func (r *Resolver) damage(ctx Context, e catalog.Damage, out *Outcome) {
	if e.AllCreatures {
		for _, c := range ctx.Opponent.Creatures() {
			r.damageCreature(ctx, c, e.Amount, out)
		}
		out.Text = fmt.Sprintf("%d damage to every %s creature", e.Amount, ctx.Opponent.Side)
		return
	}
	if target := r.hintedCreature(ctx.Opponent, ctx.Hints, true); target != nil {
		r.damageCreature(ctx, target, e.Amount, out)
		out.Text = fmt.Sprintf("%d damage to %s", e.Amount, target.Name())
		return
	}
	out.PlayerDamage = -ctx.Opponent.ChangeLife(-e.Amount)
	r.publishPlayerDamage(ctx, out.PlayerDamage)
	out.Text = fmt.Sprintf("%d damage to %s", e.Amount, ctx.Opponent.Side)
}

func (r *Resolver) destroy(ctx Context, out *Outcome) {
	target := r.pick(targetable(ctx.Opponent, nil))
	if target == nil {
		out.Fizzled = true
		out.Text = "no creature to destroy"
		return
	}
	if err := r.zones.MoveToGraveyard(ctx.Opponent, target); err != nil {
		out.Fizzled = true
		out.Text = err.Error()
		return
	}
	out.Affected = append(out.Affected, target.InstanceID)
	out.Text = fmt.Sprintf("%s is destroyed", target.Name())
}

func (r *Resolver) buff(ctx Context, e catalog.Buff, out *Outcome) {
	var targets []*zones.Card
	if e.All {
		targets = ctx.Caster.Creatures()
	} else if c := r.hintedCreature(ctx.Caster, ctx.Hints, false); c != nil {
		targets = []*zones.Card{c}
	} else if c := r.pick(ctx.Caster.Creatures()); c != nil {
		targets = []*zones.Card{c}
	}
	if len(targets) == 0 {
		out.Fizzled = true
		out.Text = "no creature to buff"
		return
	}
	for _, c := range targets {
		c.PowerBonus += e.Power
		c.ToughnessBonus += e.Toughness
		c.Granted |= e.Grant
		out.Affected = append(out.Affected, c.InstanceID)
	}
	out.Text = fmt.Sprintf("+%d/+%d to %d creature(s)", e.Power, e.Toughness, len(targets))
	if e.Grant != catalog.None {
		out.Text += " with " + e.Grant.String()
	}
}

func (r *Resolver) tap(ctx Context, out *Outcome) {
	target := r.pick(targetable(ctx.Opponent, func(c *zones.Card) bool { return !c.Tapped }))
	if target == nil {
		out.Fizzled = true
		out.Text = "no creature to tap"
		return
	}
	target.Tapped = true
	out.Affected = append(out.Affected, target.InstanceID)
	out.Text = fmt.Sprintf("%s is tapped", target.Name())
}

func (r *Resolver) bounce(ctx Context, e catalog.Bounce, out *Outcome) {
	count := e.Count
	if count <= 0 {
		count = 2
	}
	candidates := targetable(ctx.Opponent, nil)
	zones.Shuffle(candidates, r.rng)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	for _, c := range candidates {
		if err := r.zones.ReturnToHand(ctx.Opponent, c); err == nil {
			out.Affected = append(out.Affected, c.InstanceID)
		}
	}
	if len(out.Affected) == 0 {
		out.Fizzled = true
		out.Text = "no creature to bounce"
		return
	}
	out.Text = fmt.Sprintf("%d creature(s) returned to %s's hand", len(out.Affected), ctx.Opponent.Side)
}

func (r *Resolver) token(ctx Context, e catalog.Token, out *Outcome) {
	spec, ok := r.catalog.Token(e.Token)
	if !ok {
		out.Fizzled = true
		out.Text = fmt.Sprintf("unknown token %s", e.Token)
		return
	}
	count := e.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		c := r.zones.CreateToken(ctx.Caster, spec)
		out.Created = append(out.Created, c.InstanceID)
	}
	out.Text = fmt.Sprintf("%d %s token(s) created", count, spec.Name)
}

func (r *Resolver) discard(ctx Context, e catalog.Discard, out *Outcome) {
	hand := ctx.Opponent.Hand.Cards()
	zones.Shuffle(hand, r.rng)
	if len(hand) > e.Count {
		hand = hand[:e.Count]
	}
	for _, c := range hand {
		if err := r.zones.Discard(ctx.Opponent, c); err == nil {
			out.Affected = append(out.Affected, c.InstanceID)
		}
	}
	discarded := len(out.Affected)
	if e.DrawAfter && discarded > 0 {
		out.Drawn = len(r.zones.DrawN(ctx.Caster, discarded))
	}
	if discarded == 0 {
		out.Fizzled = true
		out.Text = fmt.Sprintf("%s has no cards to discard", ctx.Opponent.Side)
		return
	}
	out.Text = fmt.Sprintf("%s discards %d", ctx.Opponent.Side, discarded)
	if out.Drawn > 0 {
		out.Text += fmt.Sprintf(", %s draws %d", ctx.Caster.Side, out.Drawn)
	}
}

func (r *Resolver) damageCreature(ctx Context, c *zones.Card, amount int, out *Outcome) {
	if amount <= 0 {
		return
	}
	c.Damage += amount
	out.Affected = append(out.Affected, c.InstanceID)
	r.bus.Publish(rules.NewEventWithAmount(rules.EventDamagedCreature, c.InstanceID, out.SourceID, c.Owner, amount))
}

func (r *Resolver) publishPlayerDamage(ctx Context, amount int) {
	if amount <= 0 {
		return
	}
	r.bus.Publish(rules.NewEventWithAmount(rules.EventDamagedPlayer, string(ctx.Opponent.Side), sourceID(ctx), ctx.Opponent.Side, amount))
}

func (r *Resolver) publishLife(ctx Context, p *zones.Player, amount int) {
	if amount == 0 {
		return
	}
	r.bus.Publish(rules.NewEventWithAmount(rules.EventLifeChanged, string(p.Side), sourceID(ctx), p.Side, amount))
}

// hintedCreature returns the first hinted creature on p's board. Opposing
// targets must not have hexproof.
func (r *Resolver) hintedCreature(p *zones.Player, hints Hints, opposing bool) *zones.Card {
	for _, id := range hints.CardIDs {
		c, i := p.Board.Find(id)
		if i < 0 || !c.IsCreature() {
			continue
		}
		if opposing && c.Has(catalog.Hexproof) {
			continue
		}
		return c
	}
	return nil
}

func (r *Resolver) pick(cards []*zones.Card) *zones.Card {
	if len(cards) == 0 {
		return nil
	}
	return cards[r.rng.Intn(len(cards))]
}

// targetable lists p's creatures that random opposing effects may pick.
func targetable(p *zones.Player, extra func(*zones.Card) bool) []*zones.Card {
	return p.Board.Filter(func(c *zones.Card) bool {
		return c.IsCreature() && !c.Has(catalog.Hexproof) && (extra == nil || extra(c))
	})
}

func sourceID(ctx Context) string {
	if ctx.Source == nil {
		return ""
	}
	return ctx.Source.InstanceID
}
