package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateCommand checks the command against the allowed enum values
func ValidateCommand(cmd Command) error {
	switch cmd.Accel {
	case AccelNone, AccelAccelerate, AccelBrake:
	default:
		return fmt.Errorf("%w: unknown acceleration %q", ErrInvalidCommand, cmd.Accel)
	}
	for _, h := range HeadingChoices {
		if cmd.Heading == h {
			return nil
		}
	}
	return fmt.Errorf("%w: heading must be one of %v, got %d", ErrInvalidCommand, HeadingChoices, cmd.Heading)
}

// ResolveTurn computes the outcome of one command. It does not mutate the player.
//
// The gear change always sticks. The heading change and the move only stick when
// the clamped destination is drivable; otherwise the turn is forfeited. Either
// way the player's turn counter advances by one.
func ResolveTurn(player Player, cmd Command, track *Track, speedConstant float64) (TurnOutcome, error) {
	if err := ValidateCommand(cmd); err != nil {
		return TurnOutcome{}, err
	}

	gear := player.Gear
	switch cmd.Accel {
	case AccelAccelerate:
		gear = min(gear+1, MaxGear)
	case AccelBrake:
		gear = max(gear-1, MinGear)
	}

	heading := player.Heading + float64(cmd.Heading)
	displacement := Displacement(heading, speedConstant*float64(gear))

	// Heading 0 points up the track, towards decreasing y
	destination := track.Clamp(Position{
		X: player.Position.X - displacement.X,
		Y: player.Position.Y - displacement.Y,
	})

	ok, err := track.Drivable(destination)
	if err != nil {
		return TurnOutcome{}, err
	}

	outcome := TurnOutcome{
		PlayerID:     player.ID,
		Applied:      ok,
		Gear:         gear,
		Heading:      player.Heading,
		Position:     player.Position,
		TurnsPlayed:  player.TurnsPlayed + 1,
		Displacement: displacement,
		Destination:  destination,
	}
	if ok {
		outcome.Heading = heading
		outcome.Position = destination
	}

	return outcome, nil
}

// Displacement returns the integer step for a heading in degrees and a magnitude.
// Components are truncated toward zero.
func Displacement(headingDeg, magnitude float64) Position {
	rad := headingDeg * math.Pi / 180
	return Position{
		X: int(math.Sin(rad) * magnitude),
		Y: int(math.Cos(rad) * magnitude),
	}
}

// ParseAccel maps front-end input to an acceleration. Besides the names it
// accepts the menu codes "1" (accelerate), "2" (brake) and "0" (none).
func ParseAccel(s string) (AccelInput, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accelerate", "accel", "a", "1", "+":
		return AccelAccelerate, nil
	case "brake", "b", "2", "-":
		return AccelBrake, nil
	case "none", "n", "0", "", "=":
		return AccelNone, nil
	}
	return "", fmt.Errorf("%w: unknown acceleration %q", ErrInvalidCommand, s)
}

// ParseHeading maps front-end input to a heading delta. It accepts either the
// degrees themselves ("-45", "+90") or a menu index prefixed with '#' ("#0".."#4").
func ParseHeading(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		idx, err := strconv.Atoi(s[1:])
		if err != nil || idx < 0 || idx >= len(HeadingChoices) {
			return 0, fmt.Errorf("%w: unknown heading option %q", ErrInvalidCommand, s)
		}
		return HeadingChoices[idx], nil
	}

	deg, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("%w: heading %q is not a number", ErrInvalidCommand, s)
	}
	for _, h := range HeadingChoices {
		if deg == h {
			return deg, nil
		}
	}
	return 0, fmt.Errorf("%w: heading must be one of %v, got %d", ErrInvalidCommand, HeadingChoices, deg)
}

// ParseCommand builds a validated command from raw front-end input
func ParseCommand(accel, heading string) (Command, error) {
	a, err := ParseAccel(accel)
	if err != nil {
		return Command{}, err
	}
	h, err := ParseHeading(heading)
	if err != nil {
		return Command{}, err
	}
	return Command{Accel: a, Heading: h}, nil
}
