package mcp

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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/render"
	"github.com/wricardo/carreritas/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Carreritas",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Carreritas - turn based racing over MCP

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Drive from the start line at the bottom of the track, around the course, and
stop on the bottom row in the right half of the track. Every player who is on
the finish line when a round completes wins.

A TURN:
1. next_player tells you whose turn it is (and claims it)
2. play_turn submits that player's acceleration and heading change

AVAILABLE TOOLS:
- create_game: Create a new game on a track
- join_game: Add a player before the first turn
- leave_game: Remove a player
- next_player: Select the player whose turn it is
- play_turn: Accelerate, brake or coast and turn by -90, -45, 0, 45 or 90 degrees
- game_state: Players, round and a text frame of the track
- list_tracks: Available tracks
- race_instructions: Full rules`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	gameID := map[string]any{
		"type":        "string",
		"description": "Game ID",
	}

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_game",
		Description: "Create a new game, optionally choosing the track and random seed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_id": map[string]any{
					"type":        "string",
					"description": "Game ID to use (optional, generated when empty)",
				},
				"track_id": map[string]any{
					"type":        "string",
					"description": "Track to race on (optional, see list_tracks)",
				},
				"seed": map[string]any{
					"type":        "integer",
					"description": "Random seed for player colors (optional)",
				},
			},
		},
	}, c.handleCreateGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_game",
		Description: "Add a player to a game that has not started",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_id": gameID,
				"name": map[string]any{
					"type":        "string",
					"description": "Player name",
				},
				"player_id": map[string]any{
					"type":        "string",
					"description": "Player ID (optional, generated when empty)",
				},
			},
			Required: []string{"game_id", "name"},
		},
	}, c.handleJoinGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_game",
		Description: "Remove a player from a game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_id": gameID,
				"player_id": map[string]any{
					"type":        "string",
					"description": "Player ID",
				},
			},
			Required: []string{"game_id", "player_id"},
		},
	}, c.handleLeaveGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "next_player",
		Description: "Select the player whose turn it is. Only that player may play the next turn.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"game_id": gameID},
			Required:   []string{"game_id"},
		},
	}, c.handleNextPlayer)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turn",
		Description: "Play the selected player's turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"game_id": gameID,
				"player_id": map[string]any{
					"type":        "string",
					"description": "Player ID returned by next_player",
				},
				"accel": map[string]any{
					"type":        "string",
					"enum":        []string{string(engine.AccelAccelerate), string(engine.AccelBrake), string(engine.AccelNone)},
					"description": "Shift one gear up, one gear down, or keep the gear",
				},
				"heading": map[string]any{
					"type":        "integer",
					"enum":        engine.HeadingChoices,
					"description": "Heading change in degrees",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this turn",
				},
			},
			Required: []string{"game_id", "player_id", "accel", "heading"},
		},
	}, c.handlePlayTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the players, round and a text frame of a game",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"game_id": gameID},
			Required:   []string{"game_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_tracks",
		Description: "List the available tracks",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListTracks)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "race_instructions",
		Description: "Get the full race rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HTTPHandler serves MCP JSON-RPC messages posted over HTTP
func (c *Client) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := c.mcpServer.HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if s, ok := result.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		*s = string(data)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

func requiredString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func gamePath(gameID string, parts ...string) string {
	return "/api/games/" + url.PathEscape(gameID) + strings.Join(parts, "")
}

// Tool handlers

func (c *Client) handleCreateGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	var req service.CreateGameRequest
	req.ID, _ = args["game_id"].(string)
	req.TrackID, _ = args["track_id"].(string)
	if seed, ok := args["seed"].(float64); ok {
		v := int64(seed)
		req.Seed = &v
	}

	var game service.GameInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/games", req, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created game: %s\nTrack: %s\nSpeed constant: %v, player separation: %d\n",
		game.ID, game.TrackID, game.Settings.SpeedConstant, game.Settings.PlayerSeparation)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleJoinGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, err := requiredString(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, _ := args["name"].(string)
	playerID, _ := args["player_id"].(string)

	var player engine.Player
	body := map[string]string{"player_id": playerID, "name": name}
	if err := c.apiCall(ctx, http.MethodPost, gamePath(gameID, "/players"), body, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s joined game %s as player %s at (%d,%d)\n",
		player.Name, gameID, player.ID, player.Position.X, player.Position.Y)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleLeaveGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, err := requiredString(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	playerID, err := requiredString(args, "player_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall(ctx, http.MethodDelete, gamePath(gameID, "/players/", url.PathEscape(playerID)), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Player %s left game %s\n", playerID, gameID)), nil
}

func (c *Client) handleNextPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := requiredString(arguments(request), "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var player engine.Player
	if err := c.apiCall(ctx, http.MethodGet, gamePath(gameID, "/next"), nil, &player); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Next: %s (player_id %s)\n%s\n", player.Name, player.ID, render.Status(player))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handlePlayTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	gameID, err := requiredString(args, "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	playerID, _ := args["player_id"].(string)
	accel, _ := args["accel"].(string)
	heading, _ := args["heading"].(float64)

	if intent, ok := args["intent"].(string); ok && intent != "" {
		log.Debug().Str("game", gameID).Str("player", playerID).Str("intent", intent).Msg("mcp turn intent")
	}

	body := map[string]any{"player_id": playerID, "accel": accel, "heading": int(heading)}
	var result service.TurnResult
	if err := c.apiCall(ctx, http.MethodPost, gamePath(gameID, "/turns"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	gameID, err := requiredString(arguments(request), "game_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var game service.GameInfo
	if err := c.apiCall(ctx, http.MethodGet, gamePath(gameID), nil, &game); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var frame string
	if err := c.apiCall(ctx, http.MethodGet, gamePath(gameID, "/frame"), nil, &frame); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGame(&game) + "\n" + frame), nil
}

func (c *Client) handleListTracks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var tracks []service.TrackInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/tracks", nil, &tracks); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available tracks:\n")
	for _, t := range tracks {
		marker := ""
		if t.Default {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "- %s%s: %s, %dx%d, start line %d cells\n", t.ID, marker, t.Name, t.Width, t.Height, t.StartLine)
		if t.Description != "" {
			fmt.Fprintf(&b, "  %s\n", t.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `CARRERITAS RULES

TRACK:
- '#' cells are drivable, '.' cells are off the track
- Cars start on the bottom row, spaced along the start line
- The finish line is the bottom row, right of the middle of the track

CARS:
- Each car has a gear from 0 to 6 and a heading in degrees
- Heading 0 points up the track; -90 turns right, 90 turns left
- A turn moves the car speed_constant * gear cells along its heading

A TURN:
1. Call next_player. The player with the fewest turns goes next; ties go to
   whoever joined first. Only that player may play.
2. Call play_turn with:
   - accel: accelerate (+1 gear), brake (-1 gear) or none
   - heading: -90, -45, 0, 45 or 90, added to the current heading
3. If the destination is off the track the move is lost: the car stays put
   and keeps its heading, but the gear change sticks and the turn counts.
   Destinations past the edge are clamped to the edge.

ROUNDS AND WINNING:
- A round completes when every player has played the same number of turns
- Winners are checked only then: everyone on the finish line wins
- Players can join only before the first turn, and may leave at any time

TIPS:
- High gears cover a lot of ground but make corners hard to hit
- Brake before turns so the destination stays on the track`

	return mcp.NewToolResultText(instructions), nil
}

func formatTurnResult(result *service.TurnResult) string {
	var b strings.Builder
	b.WriteString(result.Message)
	b.WriteString("\n")
	b.WriteString(render.Status(result.Player))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Round: %d, round complete: %v\n", result.Round, result.RoundComplete)
	if result.Finished {
		b.WriteString("GAME OVER\n")
	}
	return b.String()
}

func formatGame(game *service.GameInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game %s on %s\n", game.ID, game.TrackID)
	fmt.Fprintf(&b, "Round: %d, started: %v, finished: %v\n", game.Round, game.Started, game.Finished)
	if game.Expected != "" {
		fmt.Fprintf(&b, "Waiting for: %s\n", game.Expected)
	}
	if len(game.Winners) > 0 {
		names := make([]string, len(game.Winners))
		for i, w := range game.Winners {
			names[i] = w.Name
		}
		fmt.Fprintf(&b, "Winners: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
