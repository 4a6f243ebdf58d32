package service

import (
	"context"
	"errors"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/session"
)

var (
	ErrTrackNotFound = errors.New("track not found")
	ErrInvalidInput  = errors.New("invalid input")
)

// GameService defines all race operations exposed to transports
type GameService interface {
	// Game Management
	CreateGame(ctx context.Context, req CreateGameRequest) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	DeleteGame(ctx context.Context, gameID string) error

	// Players
	JoinGame(ctx context.Context, gameID, playerID, name string) (*engine.Player, error)
	LeaveGame(ctx context.Context, gameID, playerID string) error

	// Turns. NextPlayer and PlayTurn are separate calls so the front end can
	// collect input for the selected player in between.
	NextPlayer(ctx context.Context, gameID string) (*engine.Player, error)
	PlayTurn(ctx context.Context, gameID, playerID string, cmd engine.Command) (*TurnResult, error)

	// Presentation
	RenderFrame(ctx context.Context, gameID string) (string, error)

	// Tracks
	ListTracks(ctx context.Context) ([]*TrackInfo, error)
	GetTrack(ctx context.Context, trackID string) (*TrackDetail, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, track *engine.Track, settings session.Settings, seed int64) (*session.GameSession, error)
	Get(id string) (*session.GameSession, error)
	List() []*session.GameSession
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// TrackManager handles track loading
type TrackManager interface {
	LoadConfig(id string) (*engine.TrackConfig, error)
	LoadTrack(id string) (*engine.Track, error)
	ListConfigs() ([]*TrackInfo, error)
	GetInfo(id string) (*TrackInfo, error)
	DefaultID() string
}
