package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Layout characters
const (
	TrackChar    = '#'
	OffTrackChar = '.'
)

// TrackConfig represents a track definition loaded from JSON
type TrackConfig struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Layout        []string `json:"layout"`
	SpeedConstant float64  `json:"speed_constant,omitempty"`
}

// ValidateTrackConfig validates a track configuration for correctness and playability
func ValidateTrackConfig(config *TrackConfig) error {
	if config == nil {
		return fmt.Errorf("track validation: config cannot be nil")
	}
	if config.Name == "" {
		return fmt.Errorf("track validation: name is required")
	}

	if config.Width < MinTrackSize || config.Width > MaxTrackSize {
		return fmt.Errorf("track validation: width must be between %d and %d, got %d", MinTrackSize, MaxTrackSize, config.Width)
	}
	if config.Height < MinTrackSize || config.Height > MaxTrackSize {
		return fmt.Errorf("track validation: height must be between %d and %d, got %d", MinTrackSize, MaxTrackSize, config.Height)
	}
	if config.SpeedConstant < 0 {
		return fmt.Errorf("track validation: speed_constant must be positive, got %v", config.SpeedConstant)
	}

	if len(config.Layout) != config.Height {
		return fmt.Errorf("track validation: layout must have %d rows to match height, got %d",
			config.Height, len(config.Layout))
	}

	for i, row := range config.Layout {
		if len(row) != config.Width {
			return fmt.Errorf("track validation: row %d must have %d characters to match width, got %d",
				i+1, config.Width, len(row))
		}
		for j, char := range row {
			if char != TrackChar && char != OffTrackChar {
				return fmt.Errorf("track validation: invalid character '%c' at row %d, col %d", char, i+1, j+1)
			}
		}
	}

	// The race starts and ends on the bottom row
	bottom := config.Layout[config.Height-1]
	if !strings.ContainsRune(bottom, TrackChar) {
		return fmt.Errorf("track validation: bottom row must contain a start line")
	}
	if !strings.ContainsRune(bottom[config.Width/2+1:], TrackChar) {
		return fmt.Errorf("track validation: bottom row must contain a finish zone right of column %d", config.Width/2+1)
	}

	return nil
}

// NewTrackFromConfig decodes a validated config into a track
func NewTrackFromConfig(config *TrackConfig) (*Track, error) {
	if err := ValidateTrackConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrack, err)
	}

	grid := make([][]bool, config.Height)
	for y, row := range config.Layout {
		grid[y] = make([]bool, config.Width)
		for x := 0; x < len(row); x++ {
			grid[y][x] = row[x] == TrackChar
		}
	}

	return NewTrack(config.Name, config.Width, config.Height, grid)
}

// LoadTrackConfig loads a track configuration from a JSON file
func LoadTrackConfig(filename string) (*TrackConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config TrackConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse track file '%s': %w", filename, err)
	}

	if err := ValidateTrackConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultTrackConfig returns the built-in 100x100 hairpin: up the left leg,
// across the top and back down the right leg to the finish zone.
func DefaultTrackConfig() *TrackConfig {
	const size = 100

	drivable := func(x, y int) bool {
		leftLeg := x >= 5 && x <= 45 && y >= 20
		rightLeg := x >= 55 && x <= 95 && y >= 20
		bridge := x >= 5 && x <= 95 && y >= 5 && y <= 35
		return leftLeg || rightLeg || bridge
	}

	layout := make([]string, size)
	for y := 0; y < size; y++ {
		var b strings.Builder
		for x := 0; x < size; x++ {
			if drivable(x, y) {
				b.WriteByte(TrackChar)
			} else {
				b.WriteByte(OffTrackChar)
			}
		}
		layout[y] = b.String()
	}

	return &TrackConfig{
		Name:        "hairpin",
		Description: "Built-in hairpin: climb the left leg, cross the top, finish on the bottom right",
		Width:       size,
		Height:      size,
		Layout:      layout,
	}
}

// ConfigFromTrack encodes a track back into a config
func ConfigFromTrack(t *Track, description string) *TrackConfig {
	return &TrackConfig{
		Name:        t.Name(),
		Description: description,
		Width:       t.Width(),
		Height:      t.Height(),
		Layout:      t.Rows(),
	}
}
