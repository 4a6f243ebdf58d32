package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/render"
	"github.com/wricardo/carreritas/game/session"
)

// maxNameLength bounds player names so frames and logs stay readable
const maxNameLength = 32

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	tracks   TrackManager
	defaults session.Settings
}

// NewGameService creates a new game service instance. defaults apply to games
// whose track and request do not override them.
func NewGameService(sessions SessionManager, tracks TrackManager, defaults session.Settings) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		tracks:   tracks,
		defaults: defaults,
	}
}

// CreateGame creates a new game on the requested track
func (s *gameServiceImpl) CreateGame(ctx context.Context, req CreateGameRequest) (*GameInfo, error) {
	trackID := req.TrackID
	if trackID == "" {
		trackID = s.tracks.DefaultID()
	}

	config, err := s.tracks.LoadConfig(trackID)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			// Provide helpful error message with available options
			if available, listErr := s.tracks.ListConfigs(); listErr == nil && len(available) > 0 {
				ids := make([]string, 0, len(available))
				for _, t := range available {
					ids = append(ids, t.ID)
				}
				return nil, fmt.Errorf("%w: '%s'. Available tracks: %v", ErrTrackNotFound, trackID, ids)
			}
		}
		return nil, fmt.Errorf("failed to load track %s: %w", trackID, err)
	}
	track, err := s.tracks.LoadTrack(trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to load track %s: %w", trackID, err)
	}

	settings := s.defaults
	if config.SpeedConstant > 0 {
		settings.SpeedConstant = config.SpeedConstant
	}
	if req.SpeedConstant != 0 {
		settings.SpeedConstant = req.SpeedConstant
	}
	if req.PlayerSeparation != 0 {
		settings.PlayerSeparation = req.PlayerSeparation
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	sess, err := s.sessions.Create(req.ID, track, settings, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info().Str("game", sess.ID()).Str("track", trackID).Int64("seed", seed).Msg("game created")

	info := gameInfo(sess)
	info.Seed = &seed
	return info, nil
}

// GetGame retrieves game information
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	sess, err := s.get(gameID)
	if err != nil {
		return nil, err
	}
	return gameInfo(sess), nil
}

// ListGames returns all active games, oldest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	sessions := s.sessions.List()
	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, gameInfo(sess))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteGame removes a game
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID string) error {
	if err := s.sessions.Delete(gameID); err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}
	log.Info().Str("game", gameID).Msg("game deleted")
	return nil
}

// JoinGame adds a player to a game that has not started. An empty player ID
// gets a generated one.
func (s *gameServiceImpl) JoinGame(ctx context.Context, gameID, playerID, name string) (*engine.Player, error) {
	sess, err := s.get(gameID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: player name longer than %d characters", ErrInvalidInput, maxNameLength)
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}

	player, err := sess.Join(playerID, name)
	if err != nil {
		return nil, err
	}

	log.Info().Str("game", sess.ID()).Str("player", player.ID).Str("name", player.Name).
		Int("x", player.Position.X).Int("y", player.Position.Y).Msg("player joined")
	return &player, nil
}

// LeaveGame removes a player, e.g. after a disconnect
func (s *gameServiceImpl) LeaveGame(ctx context.Context, gameID, playerID string) error {
	sess, err := s.get(gameID)
	if err != nil {
		return err
	}
	if err := sess.RemovePlayer(playerID); err != nil {
		return err
	}
	log.Info().Str("game", sess.ID()).Str("player", playerID).Msg("player left")
	return nil
}

// NextPlayer selects the player whose turn it is
func (s *gameServiceImpl) NextPlayer(ctx context.Context, gameID string) (*engine.Player, error) {
	sess, err := s.get(gameID)
	if err != nil {
		return nil, err
	}
	player, err := sess.SelectNextPlayer()
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// PlayTurn applies a command for the selected player
func (s *gameServiceImpl) PlayTurn(ctx context.Context, gameID, playerID string, cmd engine.Command) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := s.get(gameID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.ApplyTurn(playerID, cmd)
	if err != nil {
		return nil, err
	}

	player, err := sess.Player(playerID)
	if err != nil {
		// removed between the turn and the read
		player = engine.Player{ID: playerID}
		player.Apply(outcome)
	}

	result := &TurnResult{
		Outcome:       outcome,
		Player:        player,
		Round:         sess.Round(),
		RoundComplete: sess.IsRoundComplete(),
		Finished:      sess.IsFinished(),
		Winners:       sess.Winners(),
	}
	result.Message = turnMessage(player, result)

	log.Debug().Str("game", sess.ID()).Str("player", playerID).Bool("applied", outcome.Applied).
		Int("gear", outcome.Gear).Int("x", outcome.Position.X).Int("y", outcome.Position.Y).Msg("turn played")
	return result, nil
}

// RenderFrame draws the game as text
func (s *gameServiceImpl) RenderFrame(ctx context.Context, gameID string) (string, error) {
	sess, err := s.get(gameID)
	if err != nil {
		return "", err
	}
	return render.Frame(sess.Track(), sess.Players()), nil
}

// ListTracks returns the available tracks
func (s *gameServiceImpl) ListTracks(ctx context.Context) ([]*TrackInfo, error) {
	return s.tracks.ListConfigs()
}

// GetTrack returns one track with its layout
func (s *gameServiceImpl) GetTrack(ctx context.Context, trackID string) (*TrackDetail, error) {
	config, err := s.tracks.LoadConfig(trackID)
	if err != nil {
		return nil, err
	}
	info, err := s.tracks.GetInfo(trackID)
	if err != nil {
		return nil, err
	}
	return &TrackDetail{TrackInfo: *info, Layout: config.Layout}, nil
}

func (s *gameServiceImpl) get(gameID string) (*session.GameSession, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", gameID, err)
	}
	s.sessions.UpdateLastAccessed(gameID)
	return sess, nil
}

func gameInfo(sess *session.GameSession) *GameInfo {
	snap := sess.Snapshot()
	info := &GameInfo{
		ID:             snap.ID,
		TrackID:        snap.TrackName,
		Settings:       snap.Settings,
		Round:          snap.Round,
		Started:        snap.Started,
		Finished:       snap.Finished,
		RoundComplete:  sess.IsRoundComplete(),
		Expected:       snap.Expected,
		Players:        snap.Players,
		CreatedAt:      snap.CreatedAt,
		LastAccessedAt: snap.LastAccessedAt,
	}
	for _, p := range snap.Players {
		if p.IsWinner {
			info.Winners = append(info.Winners, p)
		}
	}
	return info
}

func turnMessage(player engine.Player, result *TurnResult) string {
	var msg string
	if result.Outcome.Applied {
		msg = fmt.Sprintf("%s moved to (%d,%d) in gear %d", player.Name,
			result.Outcome.Position.X, result.Outcome.Position.Y, result.Outcome.Gear)
	} else {
		msg = fmt.Sprintf("%s loses the turn: (%d,%d) is off the track", player.Name,
			result.Outcome.Destination.X, result.Outcome.Destination.Y)
	}

	switch {
	case result.Finished && len(result.Winners) > 1:
		names := make([]string, len(result.Winners))
		for i, w := range result.Winners {
			names[i] = w.Name
		}
		msg += fmt.Sprintf(". More than one winner: %s", strings.Join(names, ", "))
	case result.Finished && len(result.Winners) == 1:
		msg += fmt.Sprintf(". %s wins", result.Winners[0].Name)
	}
	return msg
}
