// Package mcp exposes races to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so agents, browsers and terminals all drive the same games.
//
// MCP Tools:
//   - create_game: Create a game on a track
//   - join_game / leave_game: Manage players
//   - next_player: Claim the turn for the player who moves next
//   - play_turn: Submit acceleration and heading change for that player
//   - game_state: Players, round, winners and a text frame
//   - list_tracks: Available tracks
//   - race_instructions: Rules
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount client.HTTPHandler() at /mcp
package mcp
