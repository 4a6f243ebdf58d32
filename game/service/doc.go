// Package service provides the business logic layer for the race server.
//
// GameService is the one entry point the transports (HTTP, WebSocket, MCP and
// the terminal front end) talk to. It resolves tracks through a TrackManager,
// keeps games in a SessionManager and turns session errors into results the
// transports can report. Session errors are returned wrapped, so callers test
// them with errors.Is against the session and engine sentinels.
//
// Usage:
//
//	tracks, _ := config.NewManager("configs")
//	games := session.NewManager(tracks)
//	svc := service.NewGameService(games, tracks, session.DefaultSettings())
//
//	game, err := svc.CreateGame(ctx, service.CreateGameRequest{TrackID: "hairpin"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc.JoinGame(ctx, game.ID, "", "Ana")
//
//	next, _ := svc.NextPlayer(ctx, game.ID)
//	result, err := svc.PlayTurn(ctx, game.ID, next.ID, engine.Command{Accel: engine.AccelAccelerate})
//
// Turns:
//
// NextPlayer selects whose turn it is and PlayTurn applies that player's
// command. Input is collected between the two calls, outside any lock. A
// command from anyone but the selected player fails with
// session.ErrNotPlayersTurn.
package service
