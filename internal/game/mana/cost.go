package mana

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Cost maps an element to the amount required. The Colorless entry is the
// generic component: it can be paid with mana of any element.
type Cost map[Element]int

var symbolElements = map[string]Element{
	"F": Fire,
	"W": Water,
	"E": Earth,
	"S": Swamp,
	"L": Light,
}

var costSymbol = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a symbol string such as "{2}{F}{F}".
// Supports:
// - Generic: {1}, {2}, ... (stored under Colorless)
// - Colored: {F} fire, {W} water, {E} earth, {S} swamp, {L} light
func ParseCost(costStr string) (Cost, error) {
	cost := Cost{}
	if strings.TrimSpace(costStr) == "" {
		return cost, nil
	}

	matches := costSymbol.FindAllStringSubmatch(costStr, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no mana symbols in %q", costStr)
	}
	for _, match := range matches {
		symbol := strings.ToUpper(strings.TrimSpace(match[1]))
		if e, ok := symbolElements[symbol]; ok {
			cost[e]++
			continue
		}
		num, err := strconv.Atoi(symbol)
		if err != nil || num < 0 {
			return nil, fmt.Errorf("unknown mana symbol: {%s}", symbol)
		}
		if num > 0 {
			cost[Colorless] += num
		}
	}
	return cost, nil
}

// Validate checks that every key is a known element and no amount is negative.
func (c Cost) Validate() error {
	for e, n := range c {
		if !e.Valid() {
			return fmt.Errorf("unknown cost element %q", e)
		}
		if n < 0 {
			return fmt.Errorf("negative %s cost: %d", e, n)
		}
	}
	return nil
}

// Total returns the total amount of mana required.
func (c Cost) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Generic returns the colorless (generic) component.
func (c Cost) Generic() int {
	return c[Colorless]
}

// Colored returns the colored requirements only.
func (c Cost) Colored() Cost {
	out := Cost{}
	for _, e := range Colors {
		if n := c[e]; n > 0 {
			out[e] = n
		}
	}
	return out
}

// ColorElements returns the colors this cost requires, in canonical order.
func (c Cost) ColorElements() []Element {
	out := make([]Element, 0, len(c))
	for _, e := range Colors {
		if c[e] > 0 {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns an independent copy.
func (c Cost) Clone() Cost {
	out := make(Cost, len(c))
	for e, n := range c {
		out[e] = n
	}
	return out
}

// String renders the cost as symbols, generic first: "{2}{F}{F}".
func (c Cost) String() string {
	var parts []string
	if n := c[Colorless]; n > 0 {
		parts = append(parts, fmt.Sprintf("{%d}", n))
	}
	letters := make([]string, 0, len(symbolElements))
	for letter := range symbolElements {
		letters = append(letters, letter)
	}
	sort.Slice(letters, func(i, j int) bool {
		return elementRank[symbolElements[letters[i]]] < elementRank[symbolElements[letters[j]]]
	})
	for _, letter := range letters {
		for i := 0; i < c[symbolElements[letter]]; i++ {
			parts = append(parts, "{"+letter+"}")
		}
	}
	if len(parts) == 0 {
		return "{0}"
	}
	return strings.Join(parts, "")
}
