package session

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/wricardo/carreritas/game/engine"
)

// Snapshot is the serializable state of a game session
type Snapshot struct {
	ID             string          `json:"id"`
	TrackName      string          `json:"track_name"`
	Settings       Settings        `json:"settings"`
	Players        []engine.Player `json:"players"`
	NextJoin       int             `json:"next_join"`
	Expected       string          `json:"expected,omitempty"`
	Round          int             `json:"round"`
	Started        bool            `json:"started"`
	Finished       bool            `json:"finished"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
}

// Snapshot captures the session state
func (s *GameSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:             s.id,
		TrackName:      s.track.Name(),
		Settings:       s.settings,
		Players:        s.playersCopy(),
		NextJoin:       s.nextJoin,
		Expected:       s.expected,
		Round:          s.round,
		Started:        s.started,
		Finished:       s.finished,
		CreatedAt:      s.createdAt,
		LastAccessedAt: s.lastAccessedAt,
	}
}

// Restore rebuilds a session from a snapshot taken on the same track
func Restore(snap Snapshot, track *engine.Track, rng *rand.Rand, observers ...Observer) (*GameSession, error) {
	if track == nil {
		return nil, fmt.Errorf("track cannot be nil")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source cannot be nil")
	}
	if snap.TrackName != track.Name() {
		return nil, fmt.Errorf("snapshot was taken on track %q, got %q", snap.TrackName, track.Name())
	}
	if err := snap.Settings.Validate(); err != nil {
		return nil, err
	}

	s := newSession(snap.ID, track, snap.Settings, rng, observers)
	for i := range snap.Players {
		p := snap.Players[i]
		if !track.InBounds(p.Position) {
			return nil, fmt.Errorf("player %s at (%d,%d): %w", p.ID, p.Position.X, p.Position.Y, engine.ErrOutOfRange)
		}
		s.players = append(s.players, &p)
	}
	s.nextJoin = snap.NextJoin
	s.expected = snap.Expected
	s.round = snap.Round
	s.started = snap.Started
	s.finished = snap.Finished
	s.createdAt = snap.CreatedAt
	s.lastAccessedAt = snap.LastAccessedAt

	return s, nil
}
