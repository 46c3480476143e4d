// Package watchers keeps per-game tallies by listening to rules events.
package watchers

import (
	"sync"

	"github.com/elementsduel/duel-server-go/internal/game/rules"
)

// Watcher observes events on a game's bus.
type Watcher interface {
	Key() string
	Watch(event rules.Event)
	Reset()
}

// sideCounter counts events per side.
type sideCounter struct {
	key       string
	eventType rules.EventType
	byAmount  bool
	counts    map[rules.Side]int
}

func newSideCounter(key string, eventType rules.EventType, byAmount bool) *sideCounter {
	return &sideCounter{key: key, eventType: eventType, byAmount: byAmount, counts: make(map[rules.Side]int)}
}

func (w *sideCounter) Key() string { return w.key }

func (w *sideCounter) Watch(event rules.Event) {
	if event.Type != w.eventType || event.Side == "" {
		return
	}
	if w.byAmount {
		w.counts[event.Side] += event.Amount
		return
	}
	w.counts[event.Side]++
}

func (w *sideCounter) Reset() {
	w.counts = make(map[rules.Side]int)
}

// Count returns the tally for side.
func (w *sideCounter) Count(side rules.Side) int {
	return w.counts[side]
}

// CardsPlayedWatcher counts creatures, spells and artifacts cast per side.
type CardsPlayedWatcher struct{ *sideCounter }

func NewCardsPlayedWatcher() *CardsPlayedWatcher {
	return &CardsPlayedWatcher{newSideCounter("CardsPlayedWatcher", rules.EventCardPlayed, false)}
}

// CreaturesDiedWatcher counts creatures that went from the board to the
// graveyard, by owner.
type CreaturesDiedWatcher struct{ *sideCounter }

func NewCreaturesDiedWatcher() *CreaturesDiedWatcher {
	return &CreaturesDiedWatcher{newSideCounter("CreaturesDiedWatcher", rules.EventCreatureDied, false)}
}

// CardsDrawnWatcher counts cards drawn, opening hands included.
type CardsDrawnWatcher struct{ *sideCounter }

func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	return &CardsDrawnWatcher{newSideCounter("CardsDrawnWatcher", rules.EventDrewCard, false)}
}

// DamageTakenWatcher sums damage dealt to each player from combat and effects.
type DamageTakenWatcher struct{ *sideCounter }

func NewDamageTakenWatcher() *DamageTakenWatcher {
	return &DamageTakenWatcher{newSideCounter("DamageTakenWatcher", rules.EventDamagedPlayer, true)}
}

// SideStats is one side's tallies.
type SideStats struct {
	CardsPlayed   int `json:"cards_played"`
	CreaturesDied int `json:"creatures_died"`
	CardsDrawn    int `json:"cards_drawn"`
	DamageTaken   int `json:"damage_taken"`
}

// Summary maps each side to its tallies.
type Summary map[rules.Side]SideStats

// Set is the standard group of watchers for one game.
type Set struct {
	mu     sync.Mutex
	played *CardsPlayedWatcher
	died   *CreaturesDiedWatcher
	drawn  *CardsDrawnWatcher
	damage *DamageTakenWatcher
	handle int
	bus    *rules.EventBus
}

// NewSet creates the watchers without attaching them.
func NewSet() *Set {
	return &Set{
		played: NewCardsPlayedWatcher(),
		died:   NewCreaturesDiedWatcher(),
		drawn:  NewCardsDrawnWatcher(),
		damage: NewDamageTakenWatcher(),
	}
}

func (s *Set) watchers() []Watcher {
	return []Watcher{s.played, s.died, s.drawn, s.damage}
}

// Attach subscribes the set to bus.
func (s *Set) Attach(bus *rules.EventBus) {
	s.bus = bus
	s.handle = bus.Subscribe(func(event rules.Event) {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, w := range s.watchers() {
			w.Watch(event)
		}
	})
}

// Detach unsubscribes the set.
func (s *Set) Detach() {
	if s.bus != nil {
		s.bus.Unsubscribe(s.handle)
		s.bus = nil
	}
}

// Reset clears every tally.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers() {
		w.Reset()
	}
}

// Summary returns the current tallies for both sides.
func (s *Set) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Summary, len(rules.Sides))
	for _, side := range rules.Sides {
		out[side] = SideStats{
			CardsPlayed:   s.played.Count(side),
			CreaturesDied: s.died.Count(side),
			CardsDrawn:    s.drawn.Count(side),
			DamageTaken:   s.damage.Count(side),
		}
	}
	return out
}
