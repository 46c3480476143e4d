package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/elementsduel/duel-server-go/internal/game/mana"
)

//go:embed cards.yaml
var defaultData []byte

// File represents the top-level YAML structure of the card data.
type File struct {
	Tokens []TokenEntry `yaml:"tokens"`
	Cards  []CardEntry  `yaml:"cards"`
}

// TokenEntry represents a token spec in the YAML file.
type TokenEntry struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Power     int      `yaml:"power"`
	Toughness int      `yaml:"toughness"`
	Abilities []string `yaml:"abilities"`
}

// CardEntry represents a single card in the YAML file.
type CardEntry struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Category  string         `yaml:"category"`
	Cost      map[string]int `yaml:"cost"`
	Power     int            `yaml:"power"`
	Toughness int            `yaml:"toughness"`
	Abilities []string       `yaml:"abilities"`
	Effect    *EffectEntry   `yaml:"effect"`
	Activated *EffectEntry   `yaml:"activated"`
	Produces  []string       `yaml:"produces"`
	Any       bool           `yaml:"any"`
}

// EffectEntry is the data form of an Effect.
type EffectEntry struct {
	Type     string   `yaml:"type"`
	Amount   int      `yaml:"amount"`
	Target   string   `yaml:"target"`
	BuffType string   `yaml:"buff_type"`
	Grant    []string `yaml:"grant"`
	Draw     int      `yaml:"draw"`
	Count    int      `yaml:"count"`
	Token    string   `yaml:"token"`
	Element  string   `yaml:"element"`
}

// Catalog is a read-only set of card definitions and token specs.
type Catalog struct {
	cards  map[string]*Definition
	order  []*Definition
	tokens map[string]*TokenSpec
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded card data.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultData)
	})
	return defaultCatalog, defaultErr
}

// Raw returns the embedded card data file.
func Raw() []byte {
	return append([]byte(nil), defaultData...)
}

// Parse decodes and validates YAML card data.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	c := &Catalog{
		cards:  make(map[string]*Definition, len(f.Cards)),
		tokens: make(map[string]*TokenSpec, len(f.Tokens)),
	}

	for _, entry := range f.Tokens {
		spec, err := buildToken(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := c.tokens[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate token id %q", spec.ID)
		}
		c.tokens[spec.ID] = spec
	}

	for _, entry := range f.Cards {
		def, err := buildDefinition(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := c.cards[def.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", def.ID)
		}
		if tok, ok := def.Effect.(Token); ok {
			if _, known := c.tokens[tok.Token]; !known {
				return nil, fmt.Errorf("card %q: unknown token %q", def.ID, tok.Token)
			}
		}
		c.cards[def.ID] = def
		c.order = append(c.order, def)
	}
	return c, nil
}

// Lookup returns the definition with the given id.
func (c *Catalog) Lookup(id string) (*Definition, bool) {
	def, ok := c.cards[id]
	return def, ok
}

// All returns every definition in file order.
func (c *Catalog) All() []*Definition {
	return append([]*Definition(nil), c.order...)
}

// ByCategory returns the definitions of one category in file order.
func (c *Catalog) ByCategory(cat Category) []*Definition {
	var out []*Definition
	for _, def := range c.order {
		if def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// Token returns the token spec with the given id.
func (c *Catalog) Token(id string) (*TokenSpec, bool) {
	spec, ok := c.tokens[id]
	return spec, ok
}

// Tokens returns every token spec sorted by id.
func (c *Catalog) Tokens() []*TokenSpec {
	out := make([]*TokenSpec, 0, len(c.tokens))
	for _, spec := range c.tokens {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BasicLand returns the first land that produces exactly e.
func (c *Catalog) BasicLand(e mana.Element) (*Definition, bool) {
	for _, def := range c.order {
		if def.IsLand() && !def.AnyElement && len(def.Produces) == 1 && def.Produces[0] == e {
			return def, true
		}
	}
	return nil, false
}

func buildToken(entry TokenEntry) (*TokenSpec, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("token without id")
	}
	if entry.Power < 0 || entry.Toughness < 0 {
		return nil, fmt.Errorf("token %q: negative stats", entry.ID)
	}
	abilities, err := ParseAbilities(entry.Abilities)
	if err != nil {
		return nil, fmt.Errorf("token %q: %w", entry.ID, err)
	}
	return &TokenSpec{
		ID:        entry.ID,
		Name:      entry.Name,
		Power:     entry.Power,
		Toughness: entry.Toughness,
		Abilities: abilities,
	}, nil
}

func buildDefinition(entry CardEntry) (*Definition, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("card without id")
	}
	category, err := ParseCategory(entry.Category)
	if err != nil {
		return nil, fmt.Errorf("card %q: %w", entry.ID, err)
	}
	def := &Definition{
		ID:         entry.ID,
		Name:       entry.Name,
		Category:   category,
		Power:      entry.Power,
		Toughness:  entry.Toughness,
		AnyElement: entry.Any,
	}
	if def.Name == "" {
		def.Name = def.ID
	}
	if def.Power < 0 || def.Toughness < 0 {
		return nil, fmt.Errorf("card %q: negative stats", entry.ID)
	}

	if entry.Cost == nil && category != CategoryLand {
		return nil, fmt.Errorf("card %q: missing cost", entry.ID)
	}
	def.Cost = mana.Cost{}
	for key, n := range entry.Cost {
		e, err := mana.ParseElement(key)
		if err != nil {
			return nil, fmt.Errorf("card %q: cost: %w", entry.ID, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("card %q: negative %s cost", entry.ID, e)
		}
		if n > 0 {
			def.Cost[e] = n
		}
	}

	if def.Abilities, err = ParseAbilities(entry.Abilities); err != nil {
		return nil, fmt.Errorf("card %q: %w", entry.ID, err)
	}
	if def.Abilities.Has(DoubleStrike) && def.Abilities.Has(FirstStrike) {
		def.Abilities &^= FirstStrike
	}

	for _, p := range entry.Produces {
		e, err := mana.ParseElement(p)
		if err != nil {
			return nil, fmt.Errorf("card %q: produces: %w", entry.ID, err)
		}
		def.Produces = append(def.Produces, e)
	}

	if entry.Effect != nil {
		if def.Effect, err = buildEffect(entry.Effect); err != nil {
			return nil, fmt.Errorf("card %q: effect: %w", entry.ID, err)
		}
	}
	if entry.Activated != nil {
		if def.Activated, err = buildEffect(entry.Activated); err != nil {
			return nil, fmt.Errorf("card %q: activated: %w", entry.ID, err)
		}
	}

	switch category {
	case CategoryLand:
		if len(def.Produces) == 0 && !def.AnyElement {
			return nil, fmt.Errorf("card %q: land produces nothing", entry.ID)
		}
	case CategoryCreature:
		if def.Toughness == 0 {
			return nil, fmt.Errorf("card %q: creature without toughness", entry.ID)
		}
	case CategorySpell:
		if def.Effect == nil {
			return nil, fmt.Errorf("card %q: spell without effect", entry.ID)
		}
	case CategoryArtifact:
		if def.Effect == nil && def.Activated == nil {
			return nil, fmt.Errorf("card %q: artifact without effect", entry.ID)
		}
	}
	return def, nil
}

func buildEffect(entry *EffectEntry) (Effect, error) {
	switch EffectTag(entry.Type) {
	case TagDamage:
		if entry.Target != "" && entry.Target != "all" {
			return nil, fmt.Errorf("unknown damage target %q", entry.Target)
		}
		return Damage{Amount: entry.Amount, AllCreatures: entry.Target == "all"}, nil
	case TagHeal:
		return Heal{Amount: entry.Amount}, nil
	case TagHealDraw:
		return HealDraw{Heal: entry.Amount, Draw: entry.Draw}, nil
	case TagDraw:
		return Draw{Count: entry.Amount}, nil
	case TagDrawOnPlay:
		return DrawOnPlay{Count: entry.Amount}, nil
	case TagDrain:
		return Drain{Amount: entry.Amount}, nil
	case TagDestroy:
		return Destroy{}, nil
	case TagBuff, TagBuffDefense:
		grant, err := ParseAbilities(entry.Grant)
		if err != nil {
			return nil, err
		}
		b := Buff{All: entry.Target == "all", Grant: grant}
		switch {
		case EffectTag(entry.Type) == TagBuffDefense:
			b.Toughness = entry.Amount
		case entry.BuffType == "power":
			b.Power = entry.Amount
		case entry.BuffType == "":
			b.Power, b.Toughness = entry.Amount, entry.Amount
		default:
			return nil, fmt.Errorf("unknown buff type %q", entry.BuffType)
		}
		return b, nil
	case TagTap:
		return Tap{}, nil
	case TagBounce:
		count := entry.Count
		if count == 0 {
			count = 2
		}
		return Bounce{Count: count}, nil
	case TagRevive:
		return Revive{}, nil
	case TagAOE:
		return AOE{Amount: entry.Amount}, nil
	case TagMana:
		e := mana.Colorless
		if entry.Element != "" {
			var err error
			if e, err = mana.ParseElement(entry.Element); err != nil {
				return nil, err
			}
		}
		return ManaBoost{Amount: entry.Amount, Element: e}, nil
	case TagToken:
		count := entry.Count
		if count == 0 {
			count = 1
		}
		return Token{Token: entry.Token, Count: count}, nil
	case TagDiscard:
		return Discard{Count: entry.Amount}, nil
	case TagDiscardDraw:
		return Discard{Count: entry.Amount, DrawAfter: true}, nil
	default:
		return nil, fmt.Errorf("unknown effect type %q", entry.Type)
	}
}
