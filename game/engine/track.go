package engine

import (
	"fmt"
	"sort"
)

// Track is the validity map a race is driven on. It is immutable once built.
type Track struct {
	name     string
	width    int
	height   int
	drivable [][]bool // indexed [y][x]
	start    []int
}

// NewTrack builds a track from a drivable grid indexed [y][x]
func NewTrack(name string, width, height int, drivable [][]bool) (*Track, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidTrack, width, height)
	}
	if len(drivable) != height {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrInvalidTrack, height, len(drivable))
	}

	grid := make([][]bool, height)
	for y, row := range drivable {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrInvalidTrack, y, len(row), width)
		}
		grid[y] = append([]bool(nil), row...)
	}

	t := &Track{
		name:     name,
		width:    width,
		height:   height,
		drivable: grid,
	}
	for x, ok := range grid[height-1] {
		if ok {
			t.start = append(t.start, x)
		}
	}
	sort.Ints(t.start)

	return t, nil
}

// Name returns the track name
func (t *Track) Name() string { return t.name }

// Width returns the number of columns
func (t *Track) Width() int { return t.width }

// Height returns the number of rows
func (t *Track) Height() int { return t.height }

// InBounds reports whether p lies inside the track
func (t *Track) InBounds(p Position) bool {
	return p.X >= 0 && p.X < t.width && p.Y >= 0 && p.Y < t.height
}

// Drivable reports whether p is part of the track. Callers clamp before asking.
func (t *Track) Drivable(p Position) (bool, error) {
	if !t.InBounds(p) {
		return false, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfRange, p.X, p.Y, t.width, t.height)
	}
	return t.drivable[p.Y][p.X], nil
}

// Clamp moves p to the nearest in-bounds cell, component-wise
func (t *Track) Clamp(p Position) Position {
	return Position{
		X: clampInt(p.X, 0, t.width-1),
		Y: clampInt(p.Y, 0, t.height-1),
	}
}

// StartLine returns the drivable x coordinates of the bottom row, ascending
func (t *Track) StartLine() []int {
	return append([]int(nil), t.start...)
}

// FinishLine reports whether p is in the winning zone: bottom row, right of the middle
func (t *Track) FinishLine(p Position) bool {
	return p.Y == t.height-1 && p.X > t.width/2
}

// SpawnPosition returns the grid slot for the index-th player to join.
// Slots are spaced by separation from the start of the start line and must
// stay on the contiguous drivable segment that begins there.
func (t *Track) SpawnPosition(index, separation int) (Position, error) {
	if len(t.start) == 0 {
		return Position{}, fmt.Errorf("%w: track %q has no start line", ErrStartLineFull, t.name)
	}
	if index < 0 || separation <= 0 {
		return Position{}, fmt.Errorf("%w: index %d, separation %d", ErrStartLineFull, index, separation)
	}

	first := t.start[0]
	last := first
	for _, x := range t.start[1:] {
		if x != last+1 {
			break
		}
		last = x
	}

	x := first + separation*(index+1)
	if x > last {
		return Position{}, fmt.Errorf("%w: slot %d at x=%d is past the start segment [%d,%d]",
			ErrStartLineFull, index, x, first, last)
	}

	return Position{X: x, Y: t.height - 1}, nil
}

// SpawnCapacity returns how many players fit on the start line at the given separation
func (t *Track) SpawnCapacity(separation int) int {
	n := 0
	for {
		if _, err := t.SpawnPosition(n, separation); err != nil {
			return n
		}
		n++
	}
}

// DrivableCount returns the number of drivable cells
func (t *Track) DrivableCount() int {
	count := 0
	for _, row := range t.drivable {
		for _, ok := range row {
			if ok {
				count++
			}
		}
	}
	return count
}

// Rows renders the grid back into layout strings
func (t *Track) Rows() []string {
	rows := make([]string, t.height)
	for y, row := range t.drivable {
		b := make([]byte, t.width)
		for x, ok := range row {
			if ok {
				b[x] = TrackChar
			} else {
				b[x] = OffTrackChar
			}
		}
		rows[y] = string(b)
	}
	return rows
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
