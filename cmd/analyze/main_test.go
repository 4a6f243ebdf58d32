package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/carreritas/game/engine"
)

func writeTrack(t *testing.T, config *engine.TrackConfig) string {
	t.Helper()
	data, err := json.Marshal(config)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestMinTurns(t *testing.T) {
	tests := []struct {
		dist, speed float64
		expected    int
	}{
		{0, 5, 0},
		{5, 5, 1},
		{6, 5, 2},
		{15, 5, 2},
		{105, 5, 6},
		{135, 5, 7},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, minTurns(test.dist, test.speed), "dist %v speed %v", test.dist, test.speed)
	}
}

func TestAnalyzeTrack_Open(t *testing.T) {
	layout := make([]string, 100)
	for i := range layout {
		layout[i] = strings.Repeat("#", 100)
	}
	path := writeTrack(t, &engine.TrackConfig{Name: "open", Width: 100, Height: 100, Layout: layout, SpeedConstant: 10})

	var out bytes.Buffer
	require.NoError(t, analyzeTrack(&out, path))

	text := out.String()
	assert.Contains(t, text, "Name: open")
	assert.Contains(t, text, "Speed constant: 10")
	assert.Contains(t, text, "g6=60")
	assert.Contains(t, text, "Start slots: 4")
	// slot 0 at x=20 is 31 cells from the first finish cell at x=51
	assert.Contains(t, text, "Slot 0 at (20,99): 31.0 cells to the finish, at least 3 turns")
}

func TestAnalyzeTrack_Default(t *testing.T) {
	path := writeTrack(t, engine.DefaultTrackConfig())

	var out bytes.Buffer
	require.NoError(t, analyzeTrack(&out, path))
	assert.Contains(t, out.String(), "Speed constant: 5")
	assert.Contains(t, out.String(), "Start slots: 2")
}

func TestAnalyzeTrack_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, analyzeTrack(&out, filepath.Join(t.TempDir(), "missing.json")))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "bad", "width": 2, "height": 2, "layout": ["##", "##"]}`), 0644))
	assert.Error(t, analyzeTrack(&out, path))
}
