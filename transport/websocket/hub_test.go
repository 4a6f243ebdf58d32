package websocket

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/session"
)

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, gameID: "ab12", send: make(chan []byte, 1)}

	hub.registerClient(client)
	assert.Equal(t, 1, hub.ClientCount("AB12"))

	hub.unregisterClient(client)
	assert.Equal(t, 0, hub.ClientCount("ab12"))
	_, open := <-client.send
	assert.False(t, open, "send channel is closed on unregister")

	// unregistering twice is harmless
	hub.unregisterClient(client)
}

func TestHubBroadcastMessage(t *testing.T) {
	hub := NewHub()
	watcher := &Client{hub: hub, gameID: "ab12", send: make(chan []byte, 1)}
	other := &Client{hub: hub, gameID: "cd34", send: make(chan []byte, 1)}
	hub.registerClient(watcher)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{GameID: "AB12", Event: "turn_applied", Data: map[string]int{"round": 1}})

	var msg Message
	require.NoError(t, json.Unmarshal(<-watcher.send, &msg))
	assert.Equal(t, "turn_applied", msg.Event)
	assert.Len(t, other.send, 0)

	// a full client is dropped instead of blocking the hub
	hub.broadcastMessage(&Message{GameID: "ab12", Event: "a"})
	hub.broadcastMessage(&Message{GameID: "ab12", Event: "b"})
	assert.Equal(t, 0, hub.ClientCount("ab12"))
	assert.Equal(t, 1, hub.ClientCount("cd34"))
}

func TestHubStreamsSessionEvents(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("game"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?game=race"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("race") == 1 }, 2*time.Second, 10*time.Millisecond)

	layout := make([]string, 100)
	for i := range layout {
		layout[i] = strings.Repeat("#", 100)
	}
	track, err := engine.NewTrackFromConfig(&engine.TrackConfig{Name: "open", Width: 100, Height: 100, Layout: layout})
	require.NoError(t, err)
	s, err := session.New("race", track, session.DefaultSettings(), rand.New(rand.NewSource(1)), hub)
	require.NoError(t, err)

	_, err = s.Join("a", "Ana")
	require.NoError(t, err)
	next, err := s.SelectNextPlayer()
	require.NoError(t, err)
	_, err = s.ApplyTurn(next.ID, engine.Command{Accel: engine.AccelAccelerate})
	require.NoError(t, err)

	want := []string{"player_created", "turn_applied", "round_advanced"}
	for _, event := range want {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			GameID string        `json:"game_id"`
			Event  string        `json:"event"`
			Data   session.Event `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "race", msg.GameID)
		assert.Equal(t, event, msg.Event)
		require.Len(t, msg.Data.Players, 1)
	}

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection closes when the hub stops")
}

func TestHubStopped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	// nothing blocks once the hub has stopped
	for i := 0; i < broadcastBuffer+10; i++ {
		hub.BroadcastEvent("ab12", "x", nil)
	}
}
