package service

import (
	"time"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/session"
)

// CreateGameRequest holds the options for a new game. Zero values fall back
// to the track and server defaults.
type CreateGameRequest struct {
	ID               string  `json:"id,omitempty"`
	TrackID          string  `json:"track_id,omitempty"`
	Seed             *int64  `json:"seed,omitempty"`
	SpeedConstant    float64 `json:"speed_constant,omitempty"`
	PlayerSeparation int     `json:"player_separation,omitempty"`
}

// GameInfo provides information about a game
type GameInfo struct {
	ID             string           `json:"id"`
	TrackID        string           `json:"track_id"`
	Settings       session.Settings `json:"settings"`
	Seed           *int64           `json:"seed,omitempty"`
	Round          int              `json:"round"`
	Started        bool             `json:"started"`
	Finished       bool             `json:"finished"`
	RoundComplete  bool             `json:"round_complete"`
	Expected       string           `json:"expected,omitempty"`
	Players        []engine.Player  `json:"players"`
	Winners        []engine.Player  `json:"winners,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	LastAccessedAt time.Time        `json:"last_accessed_at"`
}

// TurnResult contains the result of one played turn
type TurnResult struct {
	Outcome       engine.TurnOutcome `json:"outcome"`
	Player        engine.Player      `json:"player"`
	Round         int                `json:"round"`
	RoundComplete bool               `json:"round_complete"`
	Finished      bool               `json:"finished"`
	Winners       []engine.Player    `json:"winners,omitempty"`
	Message       string             `json:"message"`
}

// TrackInfo provides information about a track
type TrackInfo struct {
	ID            string  `json:"id"` // The identifier to use for game creation
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	StartLine     int     `json:"start_line"`
	Drivable      int     `json:"drivable"`
	SpeedConstant float64 `json:"speed_constant,omitempty"`
	Default       bool    `json:"default"`
}

// TrackDetail is a track listing entry plus its layout
type TrackDetail struct {
	TrackInfo
	Layout []string `json:"layout"`
}
