package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTrackConfig() *TrackConfig {
	return &TrackConfig{
		Name:        "Test Track",
		Description: "Small test track",
		Width:       10,
		Height:      6,
		Layout: []string{
			"##########",
			"##......##",
			"##......##",
			"##......##",
			"##......##",
			"####..####",
		},
	}
}

func TestNewTrack_Validation(t *testing.T) {
	_, err := NewTrack("bad", 0, 5, nil)
	assert.ErrorIs(t, err, ErrInvalidTrack)

	_, err = NewTrack("ragged", 2, 2, [][]bool{{true, true}, {true}})
	assert.ErrorIs(t, err, ErrInvalidTrack)

	_, err = NewTrack("short", 2, 2, [][]bool{{true, true}})
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestTrack_Queries(t *testing.T) {
	track, err := NewTrackFromConfig(createTestTrackConfig())
	require.NoError(t, err)

	assert.Equal(t, 10, track.Width())
	assert.Equal(t, 6, track.Height())
	assert.True(t, track.InBounds(Position{X: 0, Y: 0}))
	assert.True(t, track.InBounds(Position{X: 9, Y: 5}))
	assert.False(t, track.InBounds(Position{X: 10, Y: 5}))
	assert.False(t, track.InBounds(Position{X: -1, Y: 0}))

	ok, err := track.Drivable(Position{X: 0, Y: 0})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = track.Drivable(Position{X: 4, Y: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = track.Drivable(Position{X: 4, Y: 6})
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.Equal(t, []int{0, 1, 2, 3, 6, 7, 8, 9}, track.StartLine())
	assert.Equal(t, Position{X: 0, Y: 5}, track.Clamp(Position{X: -7, Y: 12}))
}

func TestTrack_FinishLine(t *testing.T) {
	track := openTrack(t, 100, 100)

	assert.True(t, track.FinishLine(Position{X: 60, Y: 99}))
	assert.True(t, track.FinishLine(Position{X: 51, Y: 99}))
	assert.False(t, track.FinishLine(Position{X: 50, Y: 99}))
	assert.False(t, track.FinishLine(Position{X: 60, Y: 98}))
}

func TestTrack_SpawnPosition(t *testing.T) {
	track, err := NewTrackFromConfig(createTestTrackConfig())
	require.NoError(t, err)

	// Start segment is x=0..3
	p, err := track.SpawnPosition(0, 1)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 5}, p)

	p, err = track.SpawnPosition(2, 1)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 5}, p)

	// x=4 is off the start segment even though x=6 is drivable again
	_, err = track.SpawnPosition(3, 1)
	assert.ErrorIs(t, err, ErrStartLineFull)

	assert.Equal(t, 3, track.SpawnCapacity(1))
	assert.Equal(t, 1, track.SpawnCapacity(2))
	assert.Equal(t, 0, track.SpawnCapacity(20))
}

func TestDefaultTrack(t *testing.T) {
	config := DefaultTrackConfig()
	require.NoError(t, ValidateTrackConfig(config))

	track, err := NewTrackFromConfig(config)
	require.NoError(t, err)

	assert.Equal(t, 2, track.SpawnCapacity(DefaultPlayerSeparation))
	p, err := track.SpawnPosition(0, DefaultPlayerSeparation)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 25, Y: 99}, p)

	assert.Greater(t, DistanceToFinish(track, p), 0)
	assert.Equal(t, 0, DistanceToFinish(track, Position{X: 60, Y: 99}))
	assert.Equal(t, config.Layout, track.Rows())
}

func TestValidateTrackConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *TrackConfig)
		errMsg string
	}{
		{"missing name", func(c *TrackConfig) { c.Name = "" }, "name is required"},
		{"too narrow", func(c *TrackConfig) { c.Width = 3 }, "width must be between"},
		{"row count", func(c *TrackConfig) { c.Layout = c.Layout[:5] }, "layout must have 6 rows"},
		{"row width", func(c *TrackConfig) { c.Layout[2] = "###" }, "row 3 must have 10 characters"},
		{"bad char", func(c *TrackConfig) { c.Layout[1] = "##..X...##" }, "invalid character 'X'"},
		{"no start line", func(c *TrackConfig) { c.Layout[5] = ".........." }, "bottom row must contain a start line"},
		{"no finish zone", func(c *TrackConfig) { c.Layout[5] = "######...." }, "finish zone"},
		{"negative speed", func(c *TrackConfig) { c.SpeedConstant = -1 }, "speed_constant"},
	}

	require.NoError(t, ValidateTrackConfig(createTestTrackConfig()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestTrackConfig()
			tt.mutate(config)
			err := ValidateTrackConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadTrackConfig(t *testing.T) {
	dir := t.TempDir()
	data, err := json.MarshalIndent(createTestTrackConfig(), "", "  ")
	require.NoError(t, err)
	path := filepath.Join(dir, "test.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	config, err := LoadTrackConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Track", config.Name)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadTrackConfig(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to parse"))

	_, err = LoadTrackConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadTrackConfig_ReadsTheGivenPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0755))
	data, err := json.Marshal(createTestTrackConfig())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "test.json"), data, 0644))

	other := createTestTrackConfig()
	other.Name = "Elsewhere"
	data, err = json.Marshal(other)
	require.NoError(t, err)
	elsewhere := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(elsewhere, "test.json"), data, 0644))

	t.Setenv("TRACKS_DIR", elsewhere)
	t.Chdir(dir)

	config, err := LoadTrackConfig(filepath.Join("configs", "test.json"))
	require.NoError(t, err)
	assert.Equal(t, "Test Track", config.Name)
}
