package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTrack builds a fully drivable track, minus the listed cells
func openTrack(t *testing.T, width, height int, blocked ...Position) *Track {
	t.Helper()
	grid := make([][]bool, height)
	for y := range grid {
		grid[y] = make([]bool, width)
		for x := range grid[y] {
			grid[y][x] = true
		}
	}
	for _, p := range blocked {
		grid[p.Y][p.X] = false
	}
	track, err := NewTrack("open", width, height, grid)
	require.NoError(t, err)
	return track
}

func TestResolveTurn_Scenarios(t *testing.T) {
	t.Run("accelerate straight up", func(t *testing.T) {
		track := openTrack(t, 100, 100)
		player := Player{ID: "p1", Position: Position{X: 40, Y: 99}}

		outcome, err := ResolveTurn(player, Command{Accel: AccelAccelerate, Heading: 0}, track, 5)
		require.NoError(t, err)

		assert.True(t, outcome.Applied)
		assert.Equal(t, 1, outcome.Gear)
		assert.Equal(t, Position{X: 0, Y: 5}, outcome.Displacement)
		assert.Equal(t, Position{X: 40, Y: 94}, outcome.Position)
		assert.Equal(t, 0.0, outcome.Heading)
		assert.Equal(t, 1, outcome.TurnsPlayed)
	})

	t.Run("turn right into a wall forfeits", func(t *testing.T) {
		track := openTrack(t, 100, 100, Position{X: 30, Y: 94})
		player := Player{ID: "p1", Position: Position{X: 40, Y: 94}, Gear: 1, TurnsPlayed: 1}

		outcome, err := ResolveTurn(player, Command{Accel: AccelAccelerate, Heading: 90}, track, 5)
		require.NoError(t, err)

		assert.False(t, outcome.Applied)
		assert.Equal(t, 2, outcome.Gear)
		assert.Equal(t, Position{X: 10, Y: 0}, outcome.Displacement)
		assert.Equal(t, Position{X: 30, Y: 94}, outcome.Destination)
		assert.Equal(t, Position{X: 40, Y: 94}, outcome.Position)
		assert.Equal(t, 0.0, outcome.Heading)
		assert.Equal(t, 2, outcome.TurnsPlayed)
	})

	t.Run("turn right on open track moves left on the grid", func(t *testing.T) {
		track := openTrack(t, 100, 100)
		player := Player{Position: Position{X: 40, Y: 94}, Gear: 1, TurnsPlayed: 1}

		outcome, err := ResolveTurn(player, Command{Accel: AccelAccelerate, Heading: 90}, track, 5)
		require.NoError(t, err)

		assert.True(t, outcome.Applied)
		assert.Equal(t, 90.0, outcome.Heading)
		assert.Equal(t, Position{X: 30, Y: 94}, outcome.Position)
	})
}

func TestResolveTurn_GearClamping(t *testing.T) {
	track := openTrack(t, 20, 20)
	for gear := MinGear; gear <= MaxGear; gear++ {
		for _, accel := range []AccelInput{AccelNone, AccelAccelerate, AccelBrake} {
			player := Player{Position: Position{X: 10, Y: 10}, Gear: gear}
			outcome, err := ResolveTurn(player, Command{Accel: accel}, track, 1)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, outcome.Gear, MinGear)
			assert.LessOrEqual(t, outcome.Gear, MaxGear)

			switch {
			case accel == AccelAccelerate && gear < MaxGear:
				assert.Equal(t, gear+1, outcome.Gear)
			case accel == AccelBrake && gear > MinGear:
				assert.Equal(t, gear-1, outcome.Gear)
			default:
				assert.Equal(t, gear, outcome.Gear)
			}
		}
	}
}

func TestResolveTurn_ClampsToBounds(t *testing.T) {
	track := openTrack(t, 10, 10)

	tests := []struct {
		name     string
		player   Player
		cmd      Command
		expected Position
	}{
		{"past the top", Player{Position: Position{X: 5, Y: 2}, Gear: 5}, Command{Accel: AccelNone, Heading: 0}, Position{X: 5, Y: 0}},
		{"past the bottom", Player{Position: Position{X: 5, Y: 8}, Gear: 5, Heading: 180}, Command{Accel: AccelNone, Heading: 0}, Position{X: 5, Y: 9}},
		{"past the left", Player{Position: Position{X: 1, Y: 5}, Gear: 5}, Command{Accel: AccelNone, Heading: 90}, Position{X: 0, Y: 5}},
		{"past the right", Player{Position: Position{X: 8, Y: 5}, Gear: 5}, Command{Accel: AccelNone, Heading: -90}, Position{X: 9, Y: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := ResolveTurn(tt.player, tt.cmd, track, 5)
			require.NoError(t, err)
			assert.True(t, outcome.Applied)
			assert.Equal(t, tt.expected, outcome.Position)
			assert.True(t, track.InBounds(outcome.Position))
		})
	}
}

func TestResolveTurn_DiagonalTruncates(t *testing.T) {
	track := openTrack(t, 100, 100)
	player := Player{Position: Position{X: 50, Y: 50}}

	// 5 * sin(45°) = 3.53..., truncated to 3 on both axes
	outcome, err := ResolveTurn(player, Command{Accel: AccelAccelerate, Heading: 45}, track, 5)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 3, Y: 3}, outcome.Displacement)
	assert.Equal(t, Position{X: 47, Y: 47}, outcome.Position)

	// Negative components truncate toward zero too
	outcome, err = ResolveTurn(player, Command{Accel: AccelAccelerate, Heading: -45}, track, 5)
	require.NoError(t, err)
	assert.Equal(t, Position{X: -3, Y: 3}, outcome.Displacement)
	assert.Equal(t, Position{X: 53, Y: 47}, outcome.Position)
}

func TestResolveTurn_HeadingAccumulates(t *testing.T) {
	track := openTrack(t, 50, 50)
	player := Player{Position: Position{X: 25, Y: 25}, Heading: 315}

	outcome, err := ResolveTurn(player, Command{Accel: AccelNone, Heading: 90}, track, 5)
	require.NoError(t, err)
	assert.Equal(t, 405.0, outcome.Heading)

	player.Apply(outcome)
	assert.Equal(t, 45.0, player.EffectiveHeading())

	player.Heading = -90
	assert.Equal(t, 270.0, player.EffectiveHeading())
}

func TestResolveTurn_GearZeroStaysPut(t *testing.T) {
	track := openTrack(t, 10, 10)
	player := Player{Position: Position{X: 4, Y: 4}}

	outcome, err := ResolveTurn(player, Command{Accel: AccelNone, Heading: -45}, track, 5)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, player.Position, outcome.Position)
	assert.Equal(t, -45.0, outcome.Heading)
}

func TestResolveTurn_Deterministic(t *testing.T) {
	track := openTrack(t, 60, 60, Position{X: 20, Y: 20})
	player := Player{Position: Position{X: 30, Y: 30}, Gear: 3, Heading: 135}
	cmd := Command{Accel: AccelBrake, Heading: -45}

	first, err := ResolveTurn(player, cmd, track, 5)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ResolveTurn(player, cmd, track, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolveTurn_InvalidCommand(t *testing.T) {
	track := openTrack(t, 10, 10)
	player := Player{Position: Position{X: 5, Y: 5}, Gear: 2}

	for _, cmd := range []Command{
		{Accel: "turbo", Heading: 0},
		{Accel: AccelNone, Heading: 30},
		{Accel: AccelNone, Heading: 180},
	} {
		_, err := ResolveTurn(player, cmd, track, 5)
		assert.ErrorIs(t, err, ErrInvalidCommand, "command %+v", cmd)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		accel, heading string
		expected       Command
		wantErr        bool
	}{
		{"1", "0", Command{Accel: AccelAccelerate, Heading: 0}, false},
		{"2", "+90", Command{Accel: AccelBrake, Heading: 90}, false},
		{"none", "-45", Command{Accel: AccelNone, Heading: -45}, false},
		{"Accelerate", "#0", Command{Accel: AccelAccelerate, Heading: -90}, false},
		{"b", "#4", Command{Accel: AccelBrake, Heading: 90}, false},
		{"3", "0", Command{}, true},
		{"1", "#5", Command{}, true},
		{"1", "30", Command{}, true},
		{"1", "left", Command{}, true},
	}

	for _, tt := range tests {
		cmd, err := ParseCommand(tt.accel, tt.heading)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidCommand, "input %q %q", tt.accel, tt.heading)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expected, cmd)
	}
}
