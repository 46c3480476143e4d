package deck

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementsduel/duel-server-go/internal/game/catalog"
	"github.com/elementsduel/duel-server-go/internal/game/mana"
	"github.com/elementsduel/duel-server-go/internal/game/rules"
	"github.com/elementsduel/duel-server-go/internal/game/zones"
)

func newTestBuilder(t *testing.T, seed int64) *Builder {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return NewBuilder(cat, rand.New(rand.NewSource(seed)), nil)
}

func TestBuildDeckLegality(t *testing.T) {
	choices := [][]mana.Element{{mana.Fire}, {mana.Water}, {mana.Light}}
	for i, a := range mana.Colors {
		for _, b := range mana.Colors[i+1:] {
			choices = append(choices, []mana.Element{a, b})
		}
	}

	for seed := int64(1); seed <= 5; seed++ {
		for _, elements := range choices {
			name := fmt.Sprintf("seed%d/%v", seed, elements)
			t.Run(name, func(t *testing.T) {
				b := newTestBuilder(t, seed)
				cards, err := b.Build(rules.SidePlayer, elements)
				require.NoError(t, err)
				require.Len(t, cards, Size)

				counts := make(map[catalog.Category]int)
				lands := make(map[string]int)
				ids := make(map[string]bool)
				for _, c := range cards {
					counts[c.Category()]++
					assert.False(t, ids[c.InstanceID], "duplicate instance id")
					ids[c.InstanceID] = true
					assert.Equal(t, rules.SidePlayer, c.Owner)
					if c.IsLand() {
						lands[c.CardID()]++
						continue
					}
					for e := range c.Cost() {
						if e == mana.Colorless {
							continue
						}
						assert.Contains(t, elements, e, "%s is not castable from %v", c.CardID(), elements)
					}
				}

				assert.Equal(t, LandCount, counts[catalog.CategoryLand])
				assert.Equal(t, WastelandCount, lands[catalog.WastelandID])
				assert.Equal(t, NonlandCount, Size-counts[catalog.CategoryLand])
				assert.GreaterOrEqual(t, counts[catalog.CategoryCreature], 18)
				assert.LessOrEqual(t, counts[catalog.CategoryCreature], 24)
				assert.GreaterOrEqual(t, counts[catalog.CategorySpell], 7)
				assert.LessOrEqual(t, counts[catalog.CategorySpell], 13)

				if len(elements) == 2 {
					first := lands[string(elements[0])+"_land"]
					second := lands[string(elements[1])+"_land"]
					assert.Equal(t, 22, first+second)
					assert.GreaterOrEqual(t, first, 10)
					assert.LessOrEqual(t, first, 12)
				} else {
					assert.Equal(t, 22, lands[string(elements[0])+"_land"])
				}
			})
		}
	}
}

func TestBuildDeckIsReproducible(t *testing.T) {
	ids := func(cards []*zones.Card) []string {
		out := make([]string, len(cards))
		for i, c := range cards {
			out[i] = c.InstanceID + ":" + c.CardID()
		}
		return out
	}

	a, err := newTestBuilder(t, 42).Build(rules.SideEnemy, []mana.Element{mana.Earth, mana.Swamp})
	require.NoError(t, err)
	b, err := newTestBuilder(t, 42).Build(rules.SideEnemy, []mana.Element{mana.Earth, mana.Swamp})
	require.NoError(t, err)

	assert.Equal(t, ids(a), ids(b))
}

func TestBuildRejectsBadElementChoices(t *testing.T) {
	b := newTestBuilder(t, 1)
	for _, elements := range [][]mana.Element{
		nil,
		{mana.Fire, mana.Water, mana.Earth},
		{mana.Fire, mana.Fire},
		{mana.Colorless},
		{mana.Element("plasma")},
	} {
		_, err := b.Build(rules.SidePlayer, elements)
		assert.ErrorIs(t, err, rules.ErrIllegalAction, "elements %v", elements)
	}
}

func TestLegal(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	robot, _ := cat.Lookup("robot") // fire + earth
	golem, _ := cat.Lookup("iron_golem")

	assert.True(t, Legal(robot, []mana.Element{mana.Fire, mana.Earth}))
	assert.False(t, Legal(robot, []mana.Element{mana.Fire}))
	assert.True(t, Legal(golem, []mana.Element{mana.Water}), "colorless costs are always legal")
}

func TestRandomElementsDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		got := RandomElements(rng, 2)
		require.Len(t, got, 2)
		assert.NotEqual(t, got[0], got[1])
		assert.NoError(t, ValidateElements(got))
	}
}

// Chi-square goodness of fit over all 24 orderings of a 4-card deck.
func TestShuffleUniformity(t *testing.T) {
	const (
		trials = 24000
		// Critical value for 23 degrees of freedom at p = 0.001.
		critical = 49.73
	)

	rng := rand.New(rand.NewSource(20240611))
	base := make([]*zones.Card, 4)
	for i := range base {
		base[i] = &zones.Card{InstanceID: string(rune('a' + i))}
	}

	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		cards := append([]*zones.Card(nil), base...)
		Shuffle(cards, rng)
		var key strings.Builder
		for _, c := range cards {
			key.WriteString(c.InstanceID)
		}
		counts[key.String()]++
	}

	require.Len(t, counts, 24, "every permutation should appear")
	expected := float64(trials) / 24
	chi := 0.0
	for _, observed := range counts {
		d := float64(observed) - expected
		chi += d * d / expected
	}
	assert.Less(t, chi, critical, "chi-square %.2f suggests a biased shuffle", chi)
}
