package session

import (
	"time"

	"github.com/wricardo/carreritas/game/engine"
)

// EventType names a committed mutation of a game session
type EventType string

const (
	EventPlayerCreated   EventType = "player_created"
	EventTurnApplied     EventType = "turn_applied"
	EventRoundAdvanced   EventType = "round_advanced"
	EventSessionFinished EventType = "session_finished"
	EventPlayerRemoved   EventType = "player_removed"
)

// Event is delivered to observers after a mutation has been committed
type Event struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id"`
	Track     string              `json:"track"`
	Settings  Settings            `json:"settings"`
	Round     int                 `json:"round"`
	Finished  bool                `json:"finished"`
	Player    *engine.Player      `json:"player,omitempty"`
	Outcome   *engine.TurnOutcome `json:"outcome,omitempty"`
	Winners   []engine.Player     `json:"winners,omitempty"`
	Players   []engine.Player     `json:"players"`
	Timestamp time.Time           `json:"timestamp"`
}

// Observer receives session events in commit order.
// Observers may read from the session but must not mutate it.
type Observer interface {
	OnEvent(event Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(event Event)

// OnEvent calls f(event)
func (f ObserverFunc) OnEvent(event Event) {
	f(event)
}
