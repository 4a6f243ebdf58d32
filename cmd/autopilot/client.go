package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/service"
)

// Client talks to a running carreritas REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateGame(ctx context.Context, trackID string) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.do(ctx, http.MethodPost, "/api/games", service.CreateGameRequest{TrackID: trackID}, &game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &game, nil
}

func (c *Client) Game(ctx context.Context, gameID string) (*service.GameInfo, error) {
	var game service.GameInfo
	if err := c.do(ctx, http.MethodGet, gamePath(gameID, ""), nil, &game); err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &game, nil
}

// Track fetches a track layout and rebuilds it locally for planning
func (c *Client) Track(ctx context.Context, trackID string) (*engine.Track, error) {
	var detail service.TrackDetail
	if err := c.do(ctx, http.MethodGet, "/api/tracks/"+url.PathEscape(trackID), nil, &detail); err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return engine.NewTrackFromConfig(&engine.TrackConfig{
		Name:          detail.Name,
		Description:   detail.Description,
		Width:         detail.Width,
		Height:        detail.Height,
		Layout:        detail.Layout,
		SpeedConstant: detail.SpeedConstant,
	})
}

func (c *Client) Join(ctx context.Context, gameID, name string) (*engine.Player, error) {
	var player engine.Player
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/players"), body, &player); err != nil {
		return nil, fmt.Errorf("join game: %w", err)
	}
	return &player, nil
}

func (c *Client) Next(ctx context.Context, gameID string) (*engine.Player, error) {
	var player engine.Player
	if err := c.do(ctx, http.MethodGet, gamePath(gameID, "/next"), nil, &player); err != nil {
		return nil, fmt.Errorf("next player: %w", err)
	}
	return &player, nil
}

func (c *Client) Turn(ctx context.Context, gameID, playerID string, cmd engine.Command) (*service.TurnResult, error) {
	body := map[string]any{
		"player_id": playerID,
		"accel":     string(cmd.Accel),
		"heading":   cmd.Heading,
	}
	var result service.TurnResult
	if err := c.do(ctx, http.MethodPost, gamePath(gameID, "/turns"), body, &result); err != nil {
		return nil, fmt.Errorf("play turn: %w", err)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func gamePath(gameID, suffix string) string {
	return "/api/games/" + url.PathEscape(gameID) + suffix
}
