package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/carreritas/game/engine"
)

func smallTrack(t *testing.T) *engine.Track {
	t.Helper()
	track, err := engine.NewTrackFromConfig(&engine.TrackConfig{
		Name:   "small",
		Width:  6,
		Height: 5,
		Layout: []string{
			"######",
			"#....#",
			"#....#",
			"#....#",
			"##..##",
		},
	})
	require.NoError(t, err)
	return track
}

func TestMarker(t *testing.T) {
	assert.Equal(t, byte('A'), Marker(engine.Player{Name: "ana"}))
	assert.Equal(t, byte('B'), Marker(engine.Player{Name: "  bruno"}))
	assert.Equal(t, byte('3'), Marker(engine.Player{Name: "42", JoinOrder: 3}))
	assert.Equal(t, byte('2'), Marker(engine.Player{Name: "", JoinOrder: 12}))
}

func TestFrame(t *testing.T) {
	players := []engine.Player{
		{Name: "Ana", Position: engine.Position{X: 1, Y: 4}, Gear: 1, TurnsPlayed: 2},
		{Name: "Bruno", JoinOrder: 1, Position: engine.Position{X: 5, Y: 4}, Heading: -90, IsWinner: true},
	}

	lines := strings.Split(strings.TrimSuffix(Frame(smallTrack(t), players), "\n"), "\n")
	require.Len(t, lines, 7)

	assert.Equal(t, "######", lines[0])
	assert.Equal(t, "#....#", lines[1])
	assert.Equal(t, "#A..#B", lines[4])

	assert.Contains(t, lines[5], "Ana")
	assert.Contains(t, lines[5], "(1,4)")
	assert.Contains(t, lines[5], "gear 1")
	assert.NotContains(t, lines[5], "WINNER")

	assert.Contains(t, lines[6], "heading 270°")
	assert.True(t, strings.HasSuffix(lines[6], "WINNER"))
}

func TestFrame_SharedCellAndOutOfBounds(t *testing.T) {
	players := []engine.Player{
		{Name: "Ana", Position: engine.Position{X: 0, Y: 0}},
		{Name: "Bea", Position: engine.Position{X: 0, Y: 0}},
		{Name: "Cid", Position: engine.Position{X: 40, Y: 40}},
	}

	lines := strings.Split(Frame(smallTrack(t), players), "\n")
	assert.Equal(t, "*#####", lines[0])
	assert.Contains(t, lines[7], "(40,40)")
}
