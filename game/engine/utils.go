package engine

import "sort"

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// DistanceToFinish returns the Manhattan distance from p to the closest drivable
// finish cell, or -1 if the track has none
func DistanceToFinish(t *Track, p Position) int {
	best := -1
	y := t.Height() - 1
	for x := t.Width()/2 + 1; x < t.Width(); x++ {
		cell := Position{X: x, Y: y}
		if ok, _ := t.Drivable(cell); !ok {
			continue
		}
		if d := ManhattanDistance(p, cell); best == -1 || d < best {
			best = d
		}
	}
	return best
}

// SortByTurnOrder orders players by turns played, then by join order
func SortByTurnOrder(players []Player) {
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].TurnsPlayed != players[j].TurnsPlayed {
			return players[i].TurnsPlayed < players[j].TurnsPlayed
		}
		return players[i].JoinOrder < players[j].JoinOrder
	})
}
