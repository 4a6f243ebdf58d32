// Package validate checks that track configurations are playable.
//
// Beyond the structural checks done by engine.ValidateTrackConfig it looks
// at the things that make a race possible:
//   - Room on the start line for at least one player at the configured separation
//   - Drivable cells in the finish zone (bottom row, right of the middle)
//   - Connectivity: the finish zone is reachable from the start segment using
//     4-directional steps over drivable cells
package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/carreritas/game/engine"
)

// Report captures the outcome of checking a single track.
// Notes hold informational lines, Errors the problems that make it unplayable.
type Report struct {
	File          string   `json:"file"`
	Name          string   `json:"name"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Drivable      int      `json:"drivable"`
	StartSegment  [2]int   `json:"start_segment"`
	SpawnCapacity int      `json:"spawn_capacity"`
	FinishCells   int      `json:"finish_cells"`
	Reachable     int      `json:"reachable"`
	Valid         bool     `json:"valid"`
	Notes         []string `json:"notes"`
	Errors        []string `json:"errors"`
}

func (r *Report) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// File loads and checks a single track JSON file
func File(path string, separation int) Report {
	report := Report{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		report.fail("Failed to read file: %v", err)
		return report
	}

	var config engine.TrackConfig
	if err := json.Unmarshal(data, &config); err != nil {
		report.fail("Invalid JSON: %v", err)
		return report
	}

	report = Track(&config, separation)
	report.File = filepath.Base(path)
	return report
}

// Track checks a track configuration
func Track(config *engine.TrackConfig, separation int) Report {
	report := Report{Valid: true, Notes: []string{}, Errors: []string{}}
	if config == nil {
		report.fail("config cannot be nil")
		return report
	}
	report.Name = config.Name

	track, err := engine.NewTrackFromConfig(config)
	if err != nil {
		report.fail("%v", err)
		return report
	}

	report.Width, report.Height = track.Width(), track.Height()
	report.Drivable = track.DrivableCount()
	report.Notes = append(report.Notes, fmt.Sprintf("%dx%d, %d drivable cells (%.0f%%)",
		report.Width, report.Height, report.Drivable, 100*float64(report.Drivable)/float64(report.Width*report.Height)))

	start := startSegment(track)
	report.StartSegment = [2]int{start[0].X, start[len(start)-1].X}
	report.SpawnCapacity = track.SpawnCapacity(separation)
	report.Notes = append(report.Notes, fmt.Sprintf("Start segment x=%d..%d, room for %d players %d cells apart",
		report.StartSegment[0], report.StartSegment[1], report.SpawnCapacity, separation))
	if report.SpawnCapacity == 0 {
		report.fail("Start segment x=%d..%d has no room for a player at separation %d",
			report.StartSegment[0], report.StartSegment[1], separation)
	}

	finish := finishCells(track)
	report.FinishCells = len(finish)
	if len(finish) == 0 {
		report.fail("Finish zone (bottom row, x > %d) has no drivable cells", track.Width()/2)
		return report
	}

	visited := floodFill(track, start)
	report.Reachable = len(visited)
	reached := 0
	for _, p := range finish {
		if visited[p] {
			reached++
		}
	}
	if reached == 0 {
		report.fail("Connectivity failure: none of the %d finish cells is reachable from the start segment", len(finish))
	} else {
		report.Notes = append(report.Notes, fmt.Sprintf("✓ Connectivity: %d/%d finish cells reachable, %d/%d drivable cells reachable",
			reached, len(finish), report.Reachable, report.Drivable))
	}

	return report
}

// Dir checks every *.json file in dir, sorted by name
func Dir(dir string, separation int) ([]Report, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list track files: %w", err)
	}
	sort.Strings(files)

	reports := make([]Report, 0, len(files))
	for _, file := range files {
		reports = append(reports, File(file, separation))
	}
	return reports, nil
}

// Print writes a concise report per track and returns whether all are valid
func Print(w io.Writer, reports []Report) bool {
	allValid := true
	for _, r := range reports {
		title := r.File
		if title == "" {
			title = r.Name
		}
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), title)

		if r.Valid {
			fmt.Fprintln(w, "✅ VALID")
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
		}
		for _, note := range r.Notes {
			fmt.Fprintln(w, "  "+note)
		}
		for _, err := range r.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All tracks are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some tracks have errors")
	}
	return allValid
}

// startSegment returns the contiguous drivable run at the start of the bottom row
func startSegment(track *engine.Track) []engine.Position {
	xs := track.StartLine()
	y := track.Height() - 1
	segment := []engine.Position{{X: xs[0], Y: y}}
	for _, x := range xs[1:] {
		if x != segment[len(segment)-1].X+1 {
			break
		}
		segment = append(segment, engine.Position{X: x, Y: y})
	}
	return segment
}

func finishCells(track *engine.Track) []engine.Position {
	var cells []engine.Position
	y := track.Height() - 1
	for x := 0; x < track.Width(); x++ {
		p := engine.Position{X: x, Y: y}
		if !track.FinishLine(p) {
			continue
		}
		if ok, _ := track.Drivable(p); ok {
			cells = append(cells, p)
		}
	}
	return cells
}

// floodFill visits every drivable cell reachable from the seeds
func floodFill(track *engine.Track, seeds []engine.Position) map[engine.Position]bool {
	visited := make(map[engine.Position]bool)
	queue := append([]engine.Position(nil), seeds...)
	for _, p := range seeds {
		visited[p] = true
	}

	directions := []engine.Position{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range directions {
			next := engine.Position{X: current.X + d.X, Y: current.Y + d.Y}
			if visited[next] || !track.InBounds(next) {
				continue
			}
			if ok, _ := track.Drivable(next); ok {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}
