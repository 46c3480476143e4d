package mana

import (
	"fmt"
	"strings"
	"sync"
)

// Element is a kind of mana. The five colors plus colorless.
type Element string

const (
	Fire      Element = "fire"
	Water     Element = "water"
	Earth     Element = "earth"
	Swamp     Element = "swamp"
	Light     Element = "light"
	Colorless Element = "colorless"
)

// Colors lists the five colored elements in canonical order.
var Colors = []Element{Fire, Water, Earth, Swamp, Light}

// Elements lists every element, colorless last. This order is also the
// tie-break order used when draining generic costs.
var Elements = []Element{Fire, Water, Earth, Swamp, Light, Colorless}

var elementRank = map[Element]int{
	Fire:      0,
	Water:     1,
	Earth:     2,
	Swamp:     3,
	Light:     4,
	Colorless: 5,
}

// ParseElement converts a lowercase or mixed-case name to an Element.
func ParseElement(s string) (Element, error) {
	e := Element(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := elementRank[e]; !ok {
		return "", fmt.Errorf("unknown element: %q", s)
	}
	return e, nil
}

// IsColor reports whether e is one of the five colors.
func (e Element) IsColor() bool {
	_, ok := elementRank[e]
	return ok && e != Colorless
}

// Valid reports whether e is a known element.
func (e Element) Valid() bool {
	_, ok := elementRank[e]
	return ok
}

// Pool is a player's mana pool. Amounts are never negative.
type Pool struct {
	mu      sync.RWMutex
	amounts map[Element]int
}

// NewPool creates an empty mana pool.
func NewPool() *Pool {
	return &Pool{amounts: make(map[Element]int)}
}

// Add adds mana of the given element. Non-positive amounts and unknown
// elements are ignored.
func (p *Pool) Add(e Element, amount int) {
	if amount <= 0 || !e.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.amounts[e] += amount
}

// Get returns the amount of mana of the given element.
func (p *Pool) Get(e Element) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.amounts[e]
}

// Total returns the amount of mana across all elements.
func (p *Pool) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := 0
	for _, n := range p.amounts {
		total += n
	}
	return total
}

// Spend removes mana of one element.
// Returns false, leaving the pool untouched, if there is not enough.
func (p *Pool) Spend(e Element, amount int) bool {
	if amount <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.amounts[e] < amount {
		return false
	}
	p.amounts[e] -= amount
	if p.amounts[e] == 0 {
		delete(p.amounts, e)
	}
	return true
}

// Empty removes all mana from the pool.
func (p *Pool) Empty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.amounts = make(map[Element]int)
}

// Copy creates a deep copy of the pool.
func (p *Pool) Copy() *Pool {
	return &Pool{amounts: p.Snapshot()}
}

// Snapshot returns the non-zero amounts keyed by element.
func (p *Pool) Snapshot() map[Element]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Element]int, len(p.amounts))
	for e, n := range p.amounts {
		if n > 0 {
			out[e] = n
		}
	}
	return out
}

func (p *Pool) String() string {
	snap := p.Snapshot()
	parts := make([]string, 0, len(snap))
	for _, e := range Elements {
		if n := snap[e]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e, n))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
