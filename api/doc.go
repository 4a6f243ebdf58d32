// Package api provides the HTTP REST API for races.
//
// Endpoints:
//
// Games:
//   - POST /api/games - Create a game ({"id", "track_id", "seed", "speed_constant", "player_separation"}, all optional)
//   - GET /api/games - List games (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/games/{id} - Get one game
//   - DELETE /api/games/{id} - Delete a game
//
// Players and turns:
//   - POST /api/games/{id}/players - Join before the first turn ({"player_id", "name"})
//   - DELETE /api/games/{id}/players/{pid} - Leave at any time
//   - GET /api/games/{id}/next - Select the player whose turn it is
//   - POST /api/games/{id}/turns - Play the selected player's turn
//   - GET /api/games/{id}/frame - Text rendering of the race
//
// Tracks:
//   - GET /api/tracks - List tracks
//   - GET /api/tracks/{name} - Track details with its layout
//
// Events:
//   - GET /ws?game={id} - WebSocket stream of game events
//
// A turn is a two step exchange: GET .../next claims the turn, then the
// client posts the command for that player:
//
//	{"player_id": "ana", "accel": "accelerate|brake|none", "heading": -90|-45|0|45|90}
//
// Errors are returned as JSON with the HTTP status code:
//
//	{"error": "game ab12: session not found", "code": 404}
//
// 400 is returned for invalid commands and input, 404 for unknown games,
// players and tracks, and 409 for turn order and game state conflicts.
package api
