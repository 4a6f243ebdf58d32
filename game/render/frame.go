// Package render draws race state as plain text.
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/wricardo/carreritas/game/engine"
)

// Marker returns the character used for a player on the track: the first
// letter of the name, or the join order digit when the name has no letter.
func Marker(p engine.Player) byte {
	for _, r := range p.Name {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return byte(unicode.ToUpper(r))
		}
	}
	return byte('0' + p.JoinOrder%10)
}

// Frame draws the track with every player on it, followed by one status line
// per player in join order. Players sharing a cell show as '*'.
func Frame(track *engine.Track, players []engine.Player) string {
	rows := track.Rows()
	grid := make([][]byte, len(rows))
	for y, row := range rows {
		grid[y] = []byte(row)
	}

	occupied := make(map[engine.Position]bool, len(players))
	for _, p := range players {
		if !track.InBounds(p.Position) {
			continue
		}
		cell := &grid[p.Position.Y][p.Position.X]
		if occupied[p.Position] {
			*cell = '*'
		} else {
			*cell = Marker(p)
		}
		occupied[p.Position] = true
	}

	var b strings.Builder
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	for _, p := range players {
		b.WriteString(Status(p))
		b.WriteByte('\n')
	}
	return b.String()
}

// Status is a one-line summary of a player
func Status(p engine.Player) string {
	line := fmt.Sprintf("%c %-12s (%d,%d) gear %d heading %3.0f° turns %d",
		Marker(p), p.Name, p.Position.X, p.Position.Y, p.Gear, p.EffectiveHeading(), p.TurnsPlayed)
	if p.IsWinner {
		line += " WINNER"
	}
	return line
}
