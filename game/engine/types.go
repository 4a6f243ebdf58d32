package engine

import (
	"errors"
	"math"
)

const (
	// Gear limits
	MinGear = 0
	MaxGear = 6

	// Defaults for the session configuration surface
	DefaultSpeedConstant    = 5.0
	DefaultPlayerSeparation = 20

	// Track validation constants
	MinTrackSize = 5
	MaxTrackSize = 500
)

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrOutOfRange     = errors.New("position out of range")
	ErrStartLineFull  = errors.New("no room left on the start line")
	ErrInvalidTrack   = errors.New("invalid track")
)

// AccelInput is the acceleration part of a turn command
type AccelInput string

const (
	AccelNone       AccelInput = "none"
	AccelAccelerate AccelInput = "accelerate"
	AccelBrake      AccelInput = "brake"
)

// HeadingChoices lists the heading deltas a player may pick each turn, in degrees
var HeadingChoices = []int{-90, -45, 0, 45, 90}

// Position represents x,y coordinates on the track
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Color is the RGB color a player is drawn with
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Command is what a player submits for one turn
type Command struct {
	Accel   AccelInput `json:"accel"`
	Heading int        `json:"heading"`
}

// Player holds the per-game state of one racer
type Player struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	JoinOrder   int      `json:"join_order"`
	Position    Position `json:"position"`
	Heading     float64  `json:"heading"`
	Gear        int      `json:"gear"`
	TurnsPlayed int      `json:"turns_played"`
	IsWinner    bool     `json:"is_winner"`
	Color       Color    `json:"color"`
}

// TurnOutcome is the result of resolving one command against a player and a track
type TurnOutcome struct {
	PlayerID     string   `json:"player_id"`
	Applied      bool     `json:"applied"`
	Gear         int      `json:"gear"`
	Heading      float64  `json:"heading"`
	Position     Position `json:"position"`
	TurnsPlayed  int      `json:"turns_played"`
	Displacement Position `json:"displacement"`
	Destination  Position `json:"destination"`
}

// Apply writes a turn outcome back into the player
func (p *Player) Apply(outcome TurnOutcome) {
	p.Gear = outcome.Gear
	p.Heading = outcome.Heading
	p.Position = outcome.Position
	p.TurnsPlayed = outcome.TurnsPlayed
}

// EffectiveHeading returns the heading normalized to [0, 360)
func (p Player) EffectiveHeading() float64 {
	h := math.Mod(p.Heading, 360)
	if h < 0 {
		h += 360
	}
	return h
}
