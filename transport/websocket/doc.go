// Package websocket streams game events to browsers and other watchers.
//
// A central Hub keeps the clients of each game. Clients connect to
// /ws?game=<id> and receive one JSON message per committed session event:
//
//	{"game_id": "ab12", "event": "turn_applied", "data": {...session.Event...}}
//
// The Hub is a session.Observer; register it on the session manager and start
// Run in its own goroutine:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	sessions.AddObserver(hub)
//
// Clients only listen. Slow clients whose send buffer fills up are dropped.
package websocket
