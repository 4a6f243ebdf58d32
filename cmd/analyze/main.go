// Command analyze prints quick, human-readable race heuristics about track
// files. For each track it summarizes dimensions and speed, how far a car can
// travel per turn in every gear, and a lower bound on the turns each start
// slot needs to reach the finish zone.
//
// Usage:
//
//	analyze [track.json ...]
//
// Without arguments every *.json file in ./configs is analyzed.
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/carreritas/game/engine"
)

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		files, _ = filepath.Glob(filepath.Join("configs", "*.json"))
		sort.Strings(files)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no track files found")
		os.Exit(1)
	}

	failed := false
	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", file)
		if err := analyzeTrack(os.Stdout, file); err != nil {
			fmt.Printf("Error: %v\n", err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func analyzeTrack(w io.Writer, path string) error {
	config, err := engine.LoadTrackConfig(path)
	if err != nil {
		return err
	}
	track, err := engine.NewTrackFromConfig(config)
	if err != nil {
		return err
	}

	speed := config.SpeedConstant
	if speed <= 0 {
		speed = engine.DefaultSpeedConstant
	}

	fmt.Fprintf(w, "Name: %s\n", config.Name)
	fmt.Fprintf(w, "Size: %d x %d\n", track.Width(), track.Height())
	fmt.Fprintf(w, "Speed constant: %v\n", speed)

	fmt.Fprintf(w, "Reach per turn:")
	for gear := 1; gear <= engine.MaxGear; gear++ {
		fmt.Fprintf(w, " g%d=%v", gear, speed*float64(gear))
	}
	fmt.Fprintln(w)

	capacity := track.SpawnCapacity(engine.DefaultPlayerSeparation)
	fmt.Fprintf(w, "Start slots: %d\n", capacity)
	if capacity == 0 {
		fmt.Fprintf(w, "⚠️  WARNING: no start slot at separation %d\n", engine.DefaultPlayerSeparation)
		return nil
	}

	for i := 0; i < capacity; i++ {
		p, err := track.SpawnPosition(i, engine.DefaultPlayerSeparation)
		if err != nil {
			return err
		}
		dist := closestFinish(track, p)
		if dist < 0 {
			fmt.Fprintf(w, "⚠️  WARNING: no drivable finish cell\n")
			return nil
		}
		fmt.Fprintf(w, "  Slot %d at (%d,%d): %.1f cells to the finish, at least %d turns\n",
			i, p.X, p.Y, dist, minTurns(dist, speed))
	}
	return nil
}

// closestFinish returns the straight-line distance from p to the nearest
// drivable finish cell, or -1 if there is none
func closestFinish(track *engine.Track, p engine.Position) float64 {
	best := -1.0
	y := track.Height() - 1
	for x := 0; x < track.Width(); x++ {
		cell := engine.Position{X: x, Y: y}
		if !track.FinishLine(cell) {
			continue
		}
		if ok, _ := track.Drivable(cell); !ok {
			continue
		}
		d := math.Hypot(float64(cell.X-p.X), float64(cell.Y-p.Y))
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// minTurns is the fewest turns that could cover dist when shifting up one
// gear per turn from a standstill
func minTurns(dist, speed float64) int {
	covered := 0.0
	turns := 0
	for covered < dist {
		turns++
		covered += speed * float64(min(turns, engine.MaxGear))
	}
	return turns
}
