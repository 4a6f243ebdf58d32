package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/carreritas/api"
	"github.com/wricardo/carreritas/game/config"
	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/service"
	"github.com/wricardo/carreritas/game/session"
)

func openLayout(size int) []string {
	layout := make([]string, size)
	for i := range layout {
		layout[i] = strings.Repeat("#", size)
	}
	return layout
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	tracks, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, tracks.SaveConfig("fast", &engine.TrackConfig{
		Name: "Fast", Description: "open field", Width: 100, Height: 100, Layout: openLayout(100), SpeedConstant: 40,
	}))

	sessions := session.NewManager(tracks)
	srv := httptest.NewServer(api.NewServer(service.NewGameService(sessions, tracks, session.DefaultSettings()), nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestChoose_TakesTheWinningMove(t *testing.T) {
	track, err := engine.NewTrackFromConfig(&engine.TrackConfig{Name: "open", Width: 100, Height: 100, Layout: openLayout(100)})
	require.NoError(t, err)

	player := engine.Player{ID: "a", Position: engine.Position{X: 20, Y: 99}}
	for _, depth := range []int{0, 1, 2} {
		cmd := Choose(track, player, 40, depth)
		assert.Equal(t, engine.Command{Accel: engine.AccelAccelerate, Heading: -90}, cmd, "depth %d", depth)
	}
}

func TestChoose_StaysOnTrack(t *testing.T) {
	track, err := engine.NewTrackFromConfig(engine.DefaultTrackConfig())
	require.NoError(t, err)
	spawn, err := track.SpawnPosition(0, engine.DefaultPlayerSeparation)
	require.NoError(t, err)

	player := engine.Player{ID: "a", Position: spawn}
	cmd := Choose(track, player, engine.DefaultSpeedConstant, 1)
	outcome, err := engine.ResolveTurn(player, cmd, track, engine.DefaultSpeedConstant)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.LessOrEqual(t, engine.DistanceToFinish(track, outcome.Position), engine.DistanceToFinish(track, spawn))
}

func TestRace_BotsOnly(t *testing.T) {
	srv := newServer(t)

	game, err := race(context.Background(), NewClient(srv.URL+"/"), options{
		TrackID:  "fast",
		Bots:     []string{"A", "B"},
		Depth:    2,
		MaxTurns: 10,
		Poll:     10 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.True(t, game.Finished)
	require.Len(t, game.Winners, 2)

	var out bytes.Buffer
	printResult(&out, game)
	assert.Equal(t, "Game "+game.ID+" finished. Winners: A, B\n", out.String())
}

func TestRace_WaitsForOtherPlayers(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewClient(srv.URL)
	game, err := c.CreateGame(ctx, "fast")
	require.NoError(t, err)
	human, err := c.Join(ctx, game.ID, "Human")
	require.NoError(t, err)

	type outcome struct {
		game *service.GameInfo
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		g, err := race(ctx, c, options{GameID: game.ID, Bots: []string{"Bot"}, Depth: 1, MaxTurns: 10, Poll: 10 * time.Millisecond})
		done <- outcome{g, err}
	}()

	// The human joined first, so the bot has to wait for this turn
	require.Eventually(t, func() bool {
		g, err := c.Game(ctx, game.ID)
		return err == nil && len(g.Players) == 2
	}, 2*time.Second, 10*time.Millisecond)
	next, err := c.Next(ctx, game.ID)
	require.NoError(t, err)
	require.Equal(t, human.ID, next.ID)
	_, err = c.Turn(ctx, game.ID, human.ID, engine.Command{Accel: engine.AccelNone})
	require.NoError(t, err)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.True(t, res.game.Finished)
		require.Len(t, res.game.Winners, 1)
		assert.Equal(t, "Bot", res.game.Winners[0].Name)
	case <-ctx.Done():
		t.Fatal("bot did not finish the race")
	}
}

func TestClient_Errors(t *testing.T) {
	srv := newServer(t)
	c := NewClient(srv.URL)

	_, err := c.Game(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "404 Not Found")

	_, err = c.Track(context.Background(), "nope")
	require.Error(t, err)

	_, err = race(context.Background(), c, options{TrackID: "nope", Bots: []string{"A"}, MaxTurns: 1})
	require.Error(t, err)
}
