package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/carreritas/game/session"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, session.DefaultSettings(), s.Game)
	assert.Equal(t, "localhost:8080", s.HTTP.Addr())
	assert.Equal(t, "configs", s.TracksDir)
	assert.Equal(t, "sessions", s.SessionsDir)
	assert.Equal(t, 24*time.Hour, s.SessionMaxAge)
	assert.Equal(t, "none", s.Store.Driver)
	assert.False(t, s.StoreEnabled())
	assert.Equal(t, "", s.Influx.URL)
	assert.Equal(t, "info", s.Log.Level)
	assert.False(t, s.Ngrok.Enabled)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CARRERITAS_HTTP_PORT", "9090")
	t.Setenv("CARRERITAS_GAME_SPEED_CONSTANT", "7.5")
	t.Setenv("CARRERITAS_STORE_DRIVER", "sqlite")
	t.Setenv("CARRERITAS_SESSION_MAX_AGE", "30m")
	t.Setenv("NGROK_AUTHTOKEN", "tok")

	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 9090, s.HTTP.Port)
	assert.Equal(t, 7.5, s.Game.SpeedConstant)
	assert.True(t, s.StoreEnabled())
	assert.Equal(t, 30*time.Minute, s.SessionMaxAge)
	assert.Equal(t, "tok", s.Ngrok.AuthToken)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
game:
  speed_constant: 3
  player_separation: 10
http:
  port: 7000
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carreritas.yaml"), []byte(yaml), 0644))

	s, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, session.Settings{SpeedConstant: 3, PlayerSeparation: 10}, s.Game)
	assert.Equal(t, 7000, s.HTTP.Port)
	assert.Equal(t, "debug", s.Log.Level)

	// explicit file must exist
	_, err = Load(New(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("CARRERITAS_GAME_PLAYER_SEPARATION", "0")
	_, err := Load(New(), "")
	assert.ErrorIs(t, err, session.ErrInvalidSettings)

	t.Setenv("CARRERITAS_GAME_PLAYER_SEPARATION", "20")
	t.Setenv("CARRERITAS_STORE_DRIVER", "mongo")
	_, err = Load(New(), "")
	assert.ErrorContains(t, err, "store.driver")

	t.Setenv("CARRERITAS_STORE_DRIVER", "none")
	t.Setenv("CARRERITAS_HTTP_PORT", "70000")
	_, err = Load(New(), "")
	assert.ErrorContains(t, err, "http.port")
}
