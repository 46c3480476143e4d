package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a rules event.
type EventType string

const (
	// Game/Turn events
	EventGameStarted  EventType = "GAME_STARTED"
	EventBeginTurn    EventType = "BEGIN_TURN"
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventStepChanged  EventType = "STEP_CHANGED"
	EventMulligan     EventType = "MULLIGAN"
	EventGameOver     EventType = "GAME_OVER"

	// Zone events
	EventZoneChange EventType = "ZONE_CHANGE"
	EventDrewCard   EventType = "DREW_CARD"

	// Land/Spell/Ability events
	EventLandPlayed      EventType = "LAND_PLAYED"
	EventCardPlayed      EventType = "CARD_PLAYED"
	EventActivated       EventType = "ACTIVATED_ABILITY"
	EventManaAdded       EventType = "MANA_ADDED"
	EventManaPaid        EventType = "MANA_PAID"
	EventEffectResolved  EventType = "EFFECT_RESOLVED"
	EventUpkeepTriggered EventType = "UPKEEP_TRIGGERED"
	EventTokenCreated    EventType = "TOKEN_CREATED"

	// Life/Damage events
	EventDamagedCreature EventType = "DAMAGED_CREATURE"
	EventDamagedPlayer   EventType = "DAMAGED_PLAYER"
	EventLifeChanged     EventType = "PLAYER_LIFE_CHANGE"
	EventCreatureDied    EventType = "CREATURE_DIED"

	// Combat events
	EventAttackerDeclared    EventType = "ATTACKER_DECLARED"
	EventBlockerDeclared     EventType = "BLOCKER_DECLARED"
	EventCombatDamageApplied EventType = "COMBAT_DAMAGE_APPLIED"
)

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type      EventType
	ID        string    // Unique event ID
	TargetID  string    // ID of the target (card instance or side)
	SourceID  string    // ID of the source card instance
	Side      Side      // Seat the event concerns
	Amount    int       // Numeric value (damage, life, mana, cards)
	Data      string    // Additional string data (zone names, element, phase)
	Timestamp time.Time // When the event occurred
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

type handledListener struct {
	handle   int
	listener Listener
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      []handledListener             // All listeners, in subscription order
	typedListeners map[EventType][]TypedListener // Listeners filtered by event type
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners = append(bus.listeners, handledListener{handle: handle, listener: listener})
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, l := range bus.listeners {
		if l.handle == handle {
			bus.listeners = append(bus.listeners[:i], bus.listeners[i+1:]...)
			break
		}
	}
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously:
// listeners for every event first, then listeners for event.Type, each group
// in subscription order. Listeners run outside the bus lock and may publish
// further events.
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	bus.mu.RLock()
	all := append([]handledListener(nil), bus.listeners...)
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, l := range all {
		l.listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, sourceID string, side Side) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		SourceID:  sourceID,
		Side:      side,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, sourceID string, side Side, amount int) Event {
	evt := NewEvent(eventType, targetID, sourceID, side)
	evt.Amount = amount
	return evt
}
